package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/domain"
)

// State is a session's position in its lifecycle. Transitions only move
// forward; Closed is terminal.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

const writeWait = 10 * time.Second

// Session binds one websocket connection to an authenticated user and a
// club room. The club binding is set once at join and immutable for the
// connection's lifetime; a client opens a new connection to switch clubs.
type Session struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	mgr      *Manager
	identity directory.Identity
	profile  directory.Profile
	clubID   string

	state     atomic.Int32
	closeOnce sync.Once
	joined    atomic.Bool

	// sendMu guards send against a late sequencer op or room broadcast
	// racing the channel close during teardown.
	sendMu     sync.RWMutex
	sendClosed bool

	logger *slog.Logger
}

// NewSession wraps an accepted connection for an already-authenticated
// identity. The caller drives the rest of the lifecycle: Join, then Run.
func NewSession(mgr *Manager, conn *websocket.Conn, identity directory.Identity, clubID string) *Session {
	s := &Session{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, 256),
		mgr:      mgr,
		identity: identity,
		clubID:   clubID,
		logger: slog.Default().With(
			"component", "chat_session",
			"user_id", identity.UserID,
			"club_id", clubID,
		),
	}
	s.state.Store(int32(StateAuthenticated))
	return s
}

// ID implements room.Sender.
func (s *Session) ID() string {
	return s.id
}

// Send implements room.Sender. It never blocks: if this connection's
// buffer is full the frame is dropped, and the client catches up through a
// history fetch on reconnect.
func (s *Session) Send(payload []byte) {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()

	if s.sendClosed {
		return
	}
	select {
	case s.send <- payload:
	default:
		s.logger.Warn("Session send buffer full, dropping frame")
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Join moves the session from Authenticated to Joined: membership and role
// resolution, room registration, presence broadcast, history push. On
// failure the session transitions straight to Closed.
func (s *Session) Join() error {
	var club *directory.Club
	err := s.mgr.withTimeout(func(ctx context.Context) error {
		var err error
		club, err = s.mgr.clubs.GetClub(ctx, s.clubID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("club %s: %w", s.clubID, domain.ErrForbidden)
		}
		s.refuse(err)
		return err
	}

	member := club.CreatorID == s.identity.UserID
	if !member {
		err = s.mgr.withTimeout(func(ctx context.Context) error {
			var err error
			member, err = s.mgr.clubs.IsMember(ctx, s.clubID, s.identity.UserID)
			return err
		})
		if err != nil {
			s.refuse(err)
			return err
		}
	}
	if !member {
		err = fmt.Errorf("user %s is not a member of club %s: %w", s.identity.UserID, s.clubID, domain.ErrForbidden)
		s.refuse(err)
		return err
	}

	// Display profile is best effort; a missing one falls back to the id.
	_ = s.mgr.withTimeout(func(ctx context.Context) error {
		profile, err := s.mgr.users.GetProfile(ctx, s.identity.UserID)
		if err == nil {
			s.profile = profile
		}
		return nil
	})
	if s.profile.DisplayName == "" {
		s.profile.DisplayName = s.identity.UserID
	}

	if err := s.mgr.rooms.Join(s.clubID, s); err != nil {
		s.refuse(fmt.Errorf("joining room: %w", err))
		return err
	}
	s.joined.Store(true)
	s.state.Store(int32(StateJoined))

	s.mgr.presence.MarkOnline(s.clubID, s.identity.UserID)
	s.publishPresence()

	// Initial history, pushed to this connection only.
	messages, err := s.mgr.History(s.clubID, DefaultHistoryLimit, time.Time{})
	if err != nil {
		s.logger.Error("History push failed", "error", err)
		s.sendError(err)
	} else {
		s.sendEvent(HistoryEvent(messages))
	}

	s.logger.Info("Session joined")
	return nil
}

// Run pumps the connection until it closes, then tears the session down.
// It blocks for the life of the connection.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

// readPump reads inbound frames and dispatches them until the connection
// drops. There is at most one reader per connection.
func (s *Session) readPump() {
	defer s.Close()

	for {
		_, payload, err := s.conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.Info("WebSocket closed by client")
			} else if err != io.EOF {
				s.logger.Error("WebSocket read error", "error", err)
			}
			return
		}

		var event ClientEvent
		if err := decodeClientEvent(payload, &event); err != nil {
			s.sendError(err)
			continue
		}
		s.handleEvent(event)
	}
}

// writePump writes outbound frames; it is the only writer on the
// connection and exits when the send channel closes.
func (s *Session) writePump() {
	defer s.conn.Close(websocket.StatusNormalClosure, "server closed session")

	for payload := range s.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := s.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			s.logger.Error("WebSocket write error", "error", err)
			return
		}
	}
}

// handleEvent is the Joined self-loop: validate, sequence the mutation,
// broadcast on success, report failures to the sender only.
func (s *Session) handleEvent(event ClientEvent) {
	if s.State() != StateJoined {
		return
	}

	switch event.Type {
	case ActionSend:
		body := strings.TrimSpace(event.Body)
		if body == "" {
			s.sendError(fmt.Errorf("empty message body: %w", domain.ErrValidation))
			return
		}
		s.sequence(func() { s.applySend(body) })

	case ActionEdit:
		if event.MessageID == "" {
			s.sendError(fmt.Errorf("missing message id: %w", domain.ErrValidation))
			return
		}
		s.sequence(func() { s.applyEdit(event.MessageID, event.Body) })

	case ActionDelete:
		if event.MessageID == "" {
			s.sendError(fmt.Errorf("missing message id: %w", domain.ErrValidation))
			return
		}
		s.sequence(func() { s.applyDelete(event.MessageID) })

	default:
		s.sendError(fmt.Errorf("unknown event type %q: %w", event.Type, domain.ErrValidation))
	}
}

func (s *Session) sequence(op func()) {
	if err := s.mgr.seq.Submit(s.clubID, op); err != nil {
		s.sendError(err)
	}
}

// applySend runs on the club sequencer.
func (s *Session) applySend(body string) {
	author := Author{
		ID:     s.identity.UserID,
		Name:   s.profile.DisplayName,
		Avatar: s.profile.AvatarRef,
	}

	var msg *Message
	err := s.mgr.withTimeout(func(ctx context.Context) error {
		var err error
		msg, err = s.mgr.store.Append(ctx, s.clubID, author, body)
		return err
	})
	if err != nil {
		s.sendError(err)
		return
	}

	if err := s.mgr.notifier.MessageCreated(context.Background(), msg); err != nil {
		s.logger.Error("Broadcast of created message failed", "error", err, "message_id", msg.ID)
	}
}

// applyEdit runs on the club sequencer.
func (s *Session) applyEdit(messageID, body string) {
	var msg *Message
	err := s.mgr.withTimeout(func(ctx context.Context) error {
		var err error
		msg, err = s.mgr.store.UpdateBody(ctx, messageID, s.identity.UserID, body)
		return err
	})
	if err != nil {
		s.sendError(err)
		return
	}

	if err := s.mgr.notifier.MessageUpdated(context.Background(), msg); err != nil {
		s.logger.Error("Broadcast of updated message failed", "error", err, "message_id", msg.ID)
	}
}

// applyDelete runs on the club sequencer.
func (s *Session) applyDelete(messageID string) {
	role, err := s.mgr.deleteRoleFor(s.identity, s.clubID)
	if err != nil {
		s.sendError(err)
		return
	}

	var msg *Message
	err = s.mgr.withTimeout(func(ctx context.Context) error {
		var err error
		msg, err = s.mgr.store.SoftDelete(ctx, messageID, s.identity.UserID, role)
		return err
	})
	if err != nil {
		s.sendError(err)
		return
	}

	if err := s.mgr.notifier.MessageDeleted(context.Background(), s.clubID, msg.ID, msg.DeletedBy); err != nil {
		s.logger.Error("Broadcast of deletion failed", "error", err, "message_id", msg.ID)
	}
}

// publishPresence broadcasts the club's online set through the sequencer,
// so presence frames interleave with message frames in a single order.
// The snapshot is taken when the operation runs, not when it is queued.
func (s *Session) publishPresence() {
	clubID := s.clubID
	err := s.mgr.seq.Submit(clubID, func() {
		snapshot := s.mgr.presence.Snapshot(clubID)
		if err := s.mgr.notifier.PresenceUpdated(context.Background(), clubID, snapshot); err != nil {
			s.logger.Error("Presence broadcast failed", "error", err)
		}
	})
	if err != nil {
		s.logger.Warn("Presence broadcast dropped", "error", err)
	}
}

// sendEvent writes a frame to this connection only.
func (s *Session) sendEvent(ev *ServerEvent) {
	payload, err := encodeEvent(ev)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err, "type", ev.Type)
		return
	}
	s.Send(payload)
}

// sendError reports a failure inline to the originating connection. Other
// room members never see partial or failed operations.
func (s *Session) sendError(err error) {
	s.sendEvent(ErrorEvent(domain.ErrorCode(err), err.Error()))
}

// refuse reports a join failure directly on the connection, then closes it.
// The send channel is not in play yet at this point.
func (s *Session) refuse(cause error) {
	payload, err := encodeEvent(ErrorEvent(domain.ErrorCode(cause), cause.Error()))
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		_ = s.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
	}
	s.state.Store(int32(StateClosed))
	_ = s.conn.Close(websocket.StatusPolicyViolation, domain.ErrorCode(cause))
}

// Close tears the session down. It is unconditional and idempotent: safe
// to run even if the join never completed, and a second call is a no-op.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))

		if s.joined.Load() {
			s.mgr.rooms.Leave(s.clubID, s)
			s.mgr.presence.MarkOffline(s.clubID, s.identity.UserID)
			s.publishPresence()
		}

		s.sendMu.Lock()
		s.sendClosed = true
		close(s.send)
		s.sendMu.Unlock()
		_ = s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.logger.Info("Session closed")
	})
}
