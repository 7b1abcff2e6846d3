package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pageturn/chat/internal/chat"
	"github.com/pageturn/chat/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// messageRow is the persisted shape of a chat message. The application
// assigns its own message id (mid) so the wire protocol never depends on
// SurrealDB record-id encoding.
type messageRow struct {
	MID          string    `json:"mid"`
	ClubID       string    `json:"club_id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Body         string    `json:"body"`
	SentAt       time.Time `json:"sent_at"`
	Edited       bool      `json:"edited"`
	Deleted      bool      `json:"deleted"`
	DeletedBy    string    `json:"deleted_by,omitempty"`
}

func (r *messageRow) toMessage() *chat.Message {
	msg := &chat.Message{
		ID:           r.MID,
		ClubID:       r.ClubID,
		AuthorID:     r.AuthorID,
		AuthorName:   r.AuthorName,
		AuthorAvatar: r.AuthorAvatar,
		Body:         r.Body,
		SentAt:       r.SentAt,
		Edited:       r.Edited,
		Deleted:      r.Deleted,
		DeletedBy:    chat.DeleteRole(r.DeletedBy),
	}
	return msg.Redacted()
}

// MessageStore is the durable, SurrealDB-backed chat.MessageStore.
// Mutations on the same message id are serialized through a keyed mutex;
// different messages and clubs proceed concurrently.
type MessageStore struct {
	db    *surrealdb.DB
	locks *keyedMutex
	now   func() time.Time
}

// NewMessageStore creates a message store on an established connection.
func NewMessageStore(db *surrealdb.DB) *MessageStore {
	return &MessageStore{
		db:    db,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Append stores a new message, assigning id and timestamp server-side.
func (s *MessageStore) Append(ctx context.Context, clubID string, author chat.Author, body string) (*chat.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("append: empty body: %w", domain.ErrValidation)
	}
	if clubID == "" || author.ID == "" {
		return nil, fmt.Errorf("append: missing club or author id: %w", domain.ErrValidation)
	}

	row := &messageRow{
		MID:          uuid.NewString(),
		ClubID:       clubID,
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
		Body:         body,
		SentAt:       s.now(),
	}

	err := Execute(ctx, s.db, "CREATE message CONTENT $data", map[string]any{"data": row})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", unavailable(err))
	}
	return row.toMessage(), nil
}

// ListByClub returns the newest messages before the cursor, ascending.
func (s *MessageStore) ListByClub(ctx context.Context, clubID string, limit int, before time.Time) ([]*chat.Message, error) {
	if limit <= 0 {
		limit = chat.DefaultHistoryLimit
	}
	if limit > chat.MaxHistoryLimit {
		limit = chat.MaxHistoryLimit
	}

	query := "SELECT * FROM message WHERE club_id = $club ORDER BY sent_at DESC LIMIT $limit"
	params := map[string]any{"club": clubID, "limit": limit}
	if !before.IsZero() {
		query = "SELECT * FROM message WHERE club_id = $club AND sent_at < $before ORDER BY sent_at DESC LIMIT $limit"
		params["before"] = before
	}

	rows, err := Query[messageRow](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("list messages for club %s: %w", clubID, unavailable(err))
	}

	// Newest-bounded read, flipped to ascending order for the client.
	messages := make([]*chat.Message, len(rows))
	for i := range rows {
		messages[len(rows)-1-i] = rows[i].toMessage()
	}
	return messages, nil
}

// UpdateBody replaces the body of the requester's own message within the
// edit window. Authorization is re-checked against the stored row here,
// under the message's lock, never against a caller snapshot.
func (s *MessageStore) UpdateBody(ctx context.Context, messageID, requesterID, newBody string) (*chat.Message, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return nil, fmt.Errorf("update: empty body: %w", domain.ErrValidation)
	}

	unlock := s.locks.lock(messageID)
	defer unlock()

	row, err := s.fetch(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if row.Deleted {
		return nil, fmt.Errorf("update %s: %w", messageID, domain.ErrNotFound)
	}
	if row.AuthorID != requesterID {
		return nil, fmt.Errorf("update %s: requester is not the author: %w", messageID, domain.ErrForbidden)
	}
	if s.now().After(row.SentAt.Add(chat.EditWindow)) {
		return nil, fmt.Errorf("update %s: %w", messageID, domain.ErrExpired)
	}

	err = Execute(ctx, s.db,
		"UPDATE message SET body = $body, edited = true WHERE mid = $mid",
		map[string]any{"mid": messageID, "body": newBody})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", messageID, unavailable(err))
	}

	row.Body = newBody
	row.Edited = true
	return row.toMessage(), nil
}

// SoftDelete marks the message deleted, clearing its body for all future
// reads while keeping its ordering slot.
func (s *MessageStore) SoftDelete(ctx context.Context, messageID, requesterID string, role chat.DeleteRole) (*chat.Message, error) {
	unlock := s.locks.lock(messageID)
	defer unlock()

	row, err := s.fetch(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if row.Deleted {
		return nil, fmt.Errorf("delete %s: already deleted: %w", messageID, domain.ErrNotFound)
	}

	switch role {
	case chat.RoleAdmin, chat.RoleCreator:
	case chat.RoleOwner:
		if row.AuthorID != requesterID {
			return nil, fmt.Errorf("delete %s: requester is not the author: %w", messageID, domain.ErrForbidden)
		}
		if s.now().After(row.SentAt.Add(chat.EditWindow)) {
			return nil, fmt.Errorf("delete %s: %w", messageID, domain.ErrExpired)
		}
	default:
		return nil, fmt.Errorf("delete %s: role %q: %w", messageID, role, domain.ErrForbidden)
	}

	err = Execute(ctx, s.db,
		"UPDATE message SET deleted = true, deleted_by = $role, body = '' WHERE mid = $mid",
		map[string]any{"mid": messageID, "role": string(role)})
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", messageID, unavailable(err))
	}

	row.Deleted = true
	row.DeletedBy = string(role)
	row.Body = ""
	return row.toMessage(), nil
}

func (s *MessageStore) fetch(ctx context.Context, messageID string) (*messageRow, error) {
	row, err := QueryOne[messageRow](ctx, s.db,
		"SELECT * FROM message WHERE mid = $mid",
		map[string]any{"mid": messageID})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", messageID, unavailable(err))
	}
	if row == nil {
		return nil, fmt.Errorf("fetch %s: %w", messageID, domain.ErrNotFound)
	}
	return row, nil
}

// unavailable maps a raw store failure to the domain error sessions report.
func unavailable(err error) error {
	return fmt.Errorf("%v: %w", err, domain.ErrUnavailable)
}
