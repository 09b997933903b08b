package ports

import "context"

// Action is the acknowledgment decision a subscription handler returns for a
// delivery. The broker client maps it to the underlying ack protocol.
type Action int

const (
	// ActionAck acknowledges the delivery: it was persisted or definitively
	// skipped and must not be redelivered.
	ActionAck Action = iota

	// ActionDrop rejects the delivery without requeueing. Used for messages
	// that can never be processed (malformed envelopes).
	ActionDrop

	// ActionRequeue rejects the delivery and asks the broker to redeliver it
	// later. Used when the store is transiently unavailable.
	ActionRequeue
)

// MessageHandler processes one raw delivery body and decides its fate.
// Handlers must be idempotent: the broker guarantees at-least-once delivery.
type MessageHandler func(ctx context.Context, body []byte) Action

// EventBus is the typed publish/subscribe surface over the message broker.
type EventBus interface {
	// Publish sends an event to the named queue. When the broker is not
	// reachable it resolves as a logged no-op: publication failure never rolls
	// back the caller's already-persisted write.
	Publish(ctx context.Context, queue string, event interface{}) error

	// Subscribe registers a handler for the named queue. Deliveries on one
	// queue are handled one at a time in broker order; the subscription
	// survives reconnects transparently.
	Subscribe(queue string, handler MessageHandler) error

	// Unsubscribe cancels the subscription on the named queue.
	Unsubscribe(queue string) error
}
