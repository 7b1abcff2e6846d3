package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pageturn/chat/internal/domain"
)

// MemoryStore is a process-local MessageStore. It backs tests and the
// memory backend; durability across restarts comes from the SurrealDB
// implementation in internal/database.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Message
	byClub map[string][]*Message
	now    func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the store's time source. Tests use this to probe
// the edit-window boundary without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory message store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		byID:   make(map[string]*Message),
		byClub: make(map[string][]*Message),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append stores a new message at the tail of the club's log.
func (s *MemoryStore) Append(ctx context.Context, clubID string, author Author, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("append: empty body: %w", domain.ErrValidation)
	}
	if clubID == "" || author.ID == "" {
		return nil, fmt.Errorf("append: missing club or author id: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{
		ID:           uuid.NewString(),
		ClubID:       clubID,
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		Body:         body,
		SentAt:       s.now(),
	}
	s.byID[msg.ID] = msg
	s.byClub[clubID] = append(s.byClub[clubID], msg)

	return msg.Redacted(), nil
}

// ListByClub returns the newest messages sent before the cursor, in
// ascending timestamp order.
func (s *MemoryStore) ListByClub(ctx context.Context, clubID string, limit int, before time.Time) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.byClub[clubID]
	eligible := make([]*Message, 0, len(log))
	for _, m := range log {
		if !before.IsZero() && !m.SentAt.Before(before) {
			continue
		}
		eligible = append(eligible, m)
	}

	// The log is append-ordered already; sort defensively in case the
	// clock ever moved backwards between appends.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].SentAt.Before(eligible[j].SentAt)
	})

	if len(eligible) > limit {
		eligible = eligible[len(eligible)-limit:]
	}

	out := make([]*Message, len(eligible))
	for i, m := range eligible {
		out[i] = m.Redacted()
	}
	return out, nil
}

// UpdateBody replaces the body of the requester's own message.
func (s *MemoryStore) UpdateBody(ctx context.Context, messageID, requesterID, newBody string) (*Message, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return nil, fmt.Errorf("update: empty body: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[messageID]
	if !ok || msg.Deleted {
		return nil, fmt.Errorf("update %s: %w", messageID, domain.ErrNotFound)
	}
	if msg.AuthorID != requesterID {
		return nil, fmt.Errorf("update %s: requester is not the author: %w", messageID, domain.ErrForbidden)
	}
	if !msg.Editable(s.now()) {
		return nil, fmt.Errorf("update %s: %w", messageID, domain.ErrExpired)
	}

	msg.Body = newBody
	msg.Edited = true
	return msg.Redacted(), nil
}

// SoftDelete marks the message deleted, keeping its ordering slot.
func (s *MemoryStore) SoftDelete(ctx context.Context, messageID, requesterID string, role DeleteRole) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[messageID]
	if !ok {
		return nil, fmt.Errorf("delete %s: %w", messageID, domain.ErrNotFound)
	}
	if msg.Deleted {
		return nil, fmt.Errorf("delete %s: already deleted: %w", messageID, domain.ErrNotFound)
	}

	switch role {
	case RoleAdmin, RoleCreator:
		// Elevated roles were resolved by the session manager against the
		// directories at operation time.
	case RoleOwner:
		if msg.AuthorID != requesterID {
			return nil, fmt.Errorf("delete %s: requester is not the author: %w", messageID, domain.ErrForbidden)
		}
		if !msg.Editable(s.now()) {
			return nil, fmt.Errorf("delete %s: %w", messageID, domain.ErrExpired)
		}
	default:
		return nil, fmt.Errorf("delete %s: role %q: %w", messageID, role, domain.ErrForbidden)
	}

	msg.Deleted = true
	msg.DeletedBy = role
	msg.Body = ""
	return msg.Redacted(), nil
}
