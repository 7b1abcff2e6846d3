package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pageturn/chat/internal/pubsub"
)

// Topic returns the pub/sub topic carrying a club's event stream. One
// topic per club is what scopes ordering: watermill delivers per-topic in
// publish order, and each room runs a single subscriber.
func Topic(clubID string) string {
	return "chat.club.events." + clubID
}

// Sender is one live connection able to receive room broadcasts.
// Implementations must not block: a slow or dead connection drops frames
// instead of stalling the room.
type Sender interface {
	ID() string
	Send(payload []byte)
}

// room is the live state for one club: the set of joined connections and
// the subscription feeding them. Created lazily on first join, torn down
// when the last member leaves.
type room struct {
	clubID   string
	mu       sync.RWMutex
	sessions map[string]Sender
	cancel   context.CancelFunc
}

func (r *room) broadcast(payload []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.Send(payload)
	}
}

// Registry maps club ids to their active rooms. Delivery is
// fire-and-forget: a session gone between enumeration and send is skipped.
type Registry struct {
	mu         sync.Mutex
	rooms      map[string]*room
	subscriber pubsub.Subscriber
	logger     *slog.Logger
}

// NewRegistry creates a registry that feeds each room from the given
// subscriber.
func NewRegistry(sub pubsub.Subscriber) *Registry {
	return &Registry{
		rooms:      make(map[string]*room),
		subscriber: sub,
		logger:     slog.Default().With("component", "room_registry"),
	}
}

// Join adds the session to the club's room, creating the room and its
// event subscription on first join.
func (reg *Registry) Join(clubID string, s Sender) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[clubID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		r = &room{
			clubID:   clubID,
			sessions: make(map[string]Sender),
			cancel:   cancel,
		}
		if err := reg.subscriber.Subscribe(ctx, Topic(clubID), func(_ context.Context, msg pubsub.Message) error {
			r.broadcast(msg.Payload)
			return nil
		}); err != nil {
			cancel()
			return err
		}
		reg.rooms[clubID] = r
		reg.logger.Info("Room opened", "club_id", clubID)
	}

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return nil
}

// Leave removes the session from the club's room. It is idempotent and
// safe to call for a session that never completed its join. The room and
// its subscription are torn down when the last member leaves.
func (reg *Registry) Leave(clubID string, s Sender) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r, ok := reg.rooms[clubID]
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.sessions, s.ID())
	empty := len(r.sessions) == 0
	r.mu.Unlock()

	if empty {
		r.cancel()
		delete(reg.rooms, clubID)
		reg.logger.Info("Room closed", "club_id", clubID)
	}
}

// Broadcast sends a payload to every session currently joined to the club,
// bypassing the event bus. Event fan-out normally goes through the per-club
// topic so ordering holds; this direct path exists for payloads outside the
// ordered stream.
func (reg *Registry) Broadcast(clubID string, payload []byte) {
	reg.mu.Lock()
	r, ok := reg.rooms[clubID]
	reg.mu.Unlock()
	if !ok {
		return
	}
	r.broadcast(payload)
}

// Close tears down every room and its subscription.
func (reg *Registry) Close() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for clubID, r := range reg.rooms {
		r.cancel()
		delete(reg.rooms, clubID)
	}
}
