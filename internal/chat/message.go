package chat

import (
	"time"
)

// EditWindow is how long after sending a message its author may edit it,
// or delete it without elevated rights.
const EditWindow = 5 * time.Minute

// DefaultHistoryLimit bounds a history read when the caller asks for no
// explicit limit. MaxHistoryLimit caps what a caller may ask for.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// DeleteRole is the attribution tag recorded when a message is deleted.
type DeleteRole string

const (
	RoleNone    DeleteRole = "none"
	RoleOwner   DeleteRole = "owner"
	RoleAdmin   DeleteRole = "admin"
	RoleCreator DeleteRole = "creator"
)

// Author is the sender snapshot denormalized onto a message at send time.
type Author struct {
	ID     string
	Name   string
	Avatar string
}

// Message is one entry in a club's chat log. Deleted messages keep their
// ordering slot; only the attribution tag is exposed, never the body.
type Message struct {
	ID           string     `json:"id"`
	ClubID       string     `json:"clubId"`
	AuthorID     string     `json:"authorId"`
	AuthorName   string     `json:"authorName"`
	AuthorAvatar string     `json:"authorAvatar,omitempty"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sentAt"`
	Edited       bool       `json:"edited,omitempty"`
	Deleted      bool       `json:"deleted,omitempty"`
	DeletedBy    DeleteRole `json:"deletedBy,omitempty"`
}

// Redacted returns a copy safe to expose to clients. For deleted messages
// the body is cleared and only the attribution remains.
func (m *Message) Redacted() *Message {
	cp := *m
	if cp.Deleted {
		cp.Body = ""
	}
	if cp.DeletedBy == "" {
		cp.DeletedBy = RoleNone
	}
	return &cp
}

// Editable reports whether the message can still be edited at the given time.
// The window is inclusive: an edit at exactly EditWindow after sending is
// still accepted.
func (m *Message) Editable(now time.Time) bool {
	return !now.After(m.SentAt.Add(EditWindow))
}
