package ports

import "context"

// RealtimePublisher posts broadcast envelopes to the realtime transport.
// Delivery is at-least-once: the caller persists first, then publishes, and
// publish errors after retry exhaustion surface without rolling the log back.
type RealtimePublisher interface {
	Publish(ctx context.Context, topic, eventType string, payload map[string]interface{}, eventID int64) error
}
