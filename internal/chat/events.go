package chat

import (
	"encoding/json"
	"fmt"

	"github.com/pageturn/chat/internal/domain"
)

// Server-to-client event types.
const (
	EventMessageCreated  = "message.created"
	EventMessageUpdated  = "message.updated"
	EventMessageDeleted  = "message.deleted"
	EventPresenceUpdated = "presence.updated"
	EventHistory         = "history"
	EventError           = "error"
)

// Client-to-server event types. Joining is implicit in the connection URL;
// a client opens a new connection to switch clubs.
const (
	ActionSend   = "send"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// ClientEvent is one inbound frame from a connected client.
type ClientEvent struct {
	Type      string `json:"type" validate:"required,oneof=send edit delete"`
	Body      string `json:"body,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// ServerEvent is one outbound frame. Only the fields relevant to the event
// type are populated; payloads stay minimal by design of the protocol.
type ServerEvent struct {
	Type        string     `json:"type"`
	Message     *Message   `json:"message,omitempty"`
	MessageID   string     `json:"messageId,omitempty"`
	Attribution DeleteRole `json:"attribution,omitempty"`
	OnlineUsers []string   `json:"onlineUserIds,omitempty"`
	Messages    []*Message `json:"messages,omitempty"`
	Code        string     `json:"code,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func encodeEvent(ev *ServerEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// decodeClientEvent parses and validates one inbound frame. Malformed
// frames come back wrapped in ErrValidation.
func decodeClientEvent(payload []byte, out *ClientEvent) error {
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("malformed frame: %w", domain.ErrValidation)
	}
	return domain.Validate(out)
}

// HistoryEvent builds the frame pushed right after a successful join. An
// empty log omits the list; clients treat a missing list as no history.
func HistoryEvent(messages []*Message) *ServerEvent {
	return &ServerEvent{Type: EventHistory, Messages: messages}
}

// ErrorEvent builds a sender-only error frame.
func ErrorEvent(code, text string) *ServerEvent {
	return &ServerEvent{Type: EventError, Code: code, Error: text}
}
