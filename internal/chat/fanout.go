package chat

import (
	"context"
	"fmt"

	"github.com/pageturn/chat/internal/pubsub"
	"github.com/pageturn/chat/internal/room"
)

// Notifier shapes chat events and publishes them onto the club's topic.
// Each event carries only the minimal payload: the full message for
// created/updated, id plus attribution for deleted, the online set for
// presence. Receivers never see a deleted message's original body.
type Notifier struct {
	publisher pubsub.Publisher
}

// NewNotifier creates a notifier publishing through the given publisher.
func NewNotifier(pub pubsub.Publisher) *Notifier {
	return &Notifier{publisher: pub}
}

func (n *Notifier) publish(ctx context.Context, clubID string, ev *ServerEvent) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return n.publisher.Publish(ctx, pubsub.Message{
		Topic:   room.Topic(clubID),
		Payload: payload,
	})
}

// MessageCreated announces a newly accepted message to the room.
func (n *Notifier) MessageCreated(ctx context.Context, msg *Message) error {
	return n.publish(ctx, msg.ClubID, &ServerEvent{Type: EventMessageCreated, Message: msg})
}

// MessageUpdated announces an edited message to the room.
func (n *Notifier) MessageUpdated(ctx context.Context, msg *Message) error {
	return n.publish(ctx, msg.ClubID, &ServerEvent{Type: EventMessageUpdated, Message: msg})
}

// MessageDeleted announces a deletion: message id and attribution only.
func (n *Notifier) MessageDeleted(ctx context.Context, clubID, messageID string, attribution DeleteRole) error {
	return n.publish(ctx, clubID, &ServerEvent{
		Type:        EventMessageDeleted,
		MessageID:   messageID,
		Attribution: attribution,
	})
}

// PresenceUpdated announces the club's current online user-id set. An
// empty set omits the list; clients treat a missing list as nobody online.
func (n *Notifier) PresenceUpdated(ctx context.Context, clubID string, onlineUserIDs []string) error {
	return n.publish(ctx, clubID, &ServerEvent{Type: EventPresenceUpdated, OnlineUsers: onlineUserIDs})
}
