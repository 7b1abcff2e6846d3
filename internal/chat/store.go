package chat

import (
	"context"
	"time"
)

// MessageStore is the durable, ordered log of messages per club.
//
// Implementations must serialize concurrent UpdateBody/SoftDelete on the
// same message id and re-check authorization against the stored record at
// operation time, never against a caller's stale snapshot. Mutations on
// different messages and clubs may proceed concurrently.
//
// Errors are the domain sentinels: ErrValidation (empty body),
// ErrNotFound, ErrForbidden, ErrExpired, ErrUnavailable.
type MessageStore interface {
	// Append validates and stores a new message. The store assigns the id
	// and timestamp; client-supplied times are never trusted.
	Append(ctx context.Context, clubID string, author Author, body string) (*Message, error)

	// ListByClub returns up to limit messages in ascending timestamp order.
	// A non-zero before bounds the read to messages sent strictly earlier,
	// which makes the read restartable for pagination. Deleted messages are
	// included with redacted bodies.
	ListByClub(ctx context.Context, clubID string, limit int, before time.Time) ([]*Message, error)

	// UpdateBody replaces the body of the requester's own message within
	// the edit window. Timestamp and ordering position never change.
	UpdateBody(ctx context.Context, messageID, requesterID, newBody string) (*Message, error)

	// SoftDelete marks the message deleted with the given attribution.
	// For RoleOwner the store enforces authorship and the edit window;
	// elevated roles (admin, creator) are resolved by the caller.
	SoftDelete(ctx context.Context, messageID, requesterID string, role DeleteRole) (*Message, error)
}
