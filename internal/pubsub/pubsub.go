package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
// It is intentionally simple to act as a wrapper for raw data.
type Message struct {
	// Topic identifies the channel the message belongs to
	// (e.g., "chat.club.events.<clubID>").
	Topic string
	// Payload contains the raw event data (JSON).
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context.
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the Pub/Sub system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the Pub/Sub system.
// Handlers for a single subscription are invoked sequentially in publish
// order, which is what gives a room its delivery-order guarantee.
type Subscriber interface {
	// Subscribe starts listening to the given topic, processing messages with
	// the handler until the context is canceled. It returns once the
	// subscription is active.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
