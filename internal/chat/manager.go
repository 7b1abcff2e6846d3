package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/domain"
	"github.com/pageturn/chat/internal/presence"
	"github.com/pageturn/chat/internal/room"
)

const (
	// DefaultStoreTimeout bounds a single store or directory call made on
	// behalf of a session.
	DefaultStoreTimeout = 5 * time.Second

	// retryBackoff is the pause before the single retry of a store call
	// that came back unavailable.
	retryBackoff = 200 * time.Millisecond
)

// Manager owns the shared collaborators every chat session works against.
// Sessions mediate all inbound events through it: authorization checks,
// store mutations, then fan-out.
type Manager struct {
	store        MessageStore
	users        directory.UserDirectory
	clubs        directory.ClubDirectory
	presence     *presence.Tracker
	rooms        *room.Registry
	notifier     *Notifier
	seq          *Sequencer
	storeTimeout time.Duration
	logger       *slog.Logger
}

// Dependencies holds all the services a Manager requires to operate.
// This struct is used for constructor injection to make dependencies explicit.
type Dependencies struct {
	Store    MessageStore
	Users    directory.UserDirectory
	Clubs    directory.ClubDirectory
	Presence *presence.Tracker
	Rooms    *room.Registry
	Notifier *Notifier

	// StoreTimeout overrides DefaultStoreTimeout when positive.
	StoreTimeout time.Duration
}

// NewManager creates a session manager, injecting its dependencies.
func NewManager(deps Dependencies) *Manager {
	timeout := deps.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Manager{
		store:        deps.Store,
		users:        deps.Users,
		clubs:        deps.Clubs,
		presence:     deps.Presence,
		rooms:        deps.Rooms,
		notifier:     deps.Notifier,
		seq:          NewSequencer(),
		storeTimeout: timeout,
		logger:       slog.Default().With("component", "chat_manager"),
	}
}

// Shutdown drains the per-club sequencers and closes every room.
func (m *Manager) Shutdown() {
	m.seq.Close()
	m.rooms.Close()
}

// withTimeout runs op under the manager's store timeout and retries once
// with a short backoff when the store reports itself unavailable.
// Persistent failure surfaces ErrUnavailable; the event is dropped rather
// than retried forever.
func (m *Manager) withTimeout(op func(ctx context.Context) error) error {
	run := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), m.storeTimeout)
		defer cancel()
		return op(ctx)
	}

	err := run()
	if !retryable(err) {
		return err
	}

	time.Sleep(retryBackoff)
	if err = run(); retryable(err) {
		return domain.ErrUnavailable
	}
	return err
}

func retryable(err error) bool {
	return err != nil &&
		(errors.Is(err, domain.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded))
}

// deleteRoleFor resolves the attribution for a delete request at operation
// time, with priority creator > admin > owner. The club is re-read so a
// creator change between join and delete is honored, not the session's
// join-time snapshot.
func (m *Manager) deleteRoleFor(identity directory.Identity, clubID string) (DeleteRole, error) {
	var club *directory.Club
	err := m.withTimeout(func(ctx context.Context) error {
		var err error
		club, err = m.clubs.GetClub(ctx, clubID)
		return err
	})
	if err != nil {
		return RoleNone, err
	}

	switch {
	case club.CreatorID == identity.UserID:
		return RoleCreator, nil
	case identity.IsAdmin:
		return RoleAdmin, nil
	default:
		return RoleOwner, nil
	}
}

// History fetches the club's message log for the initial push and the REST
// endpoint. Deleted messages come back with redacted bodies.
func (m *Manager) History(clubID string, limit int, before time.Time) ([]*Message, error) {
	var messages []*Message
	err := m.withTimeout(func(ctx context.Context) error {
		var err error
		messages, err = m.store.ListByClub(ctx, clubID, limit, before)
		return err
	})
	return messages, err
}
