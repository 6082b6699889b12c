package helpers

import (
	"context"
	"sync"
)

// PublishedEnvelope is one captured realtime publish
type PublishedEnvelope struct {
	Topic   string
	Event   string
	Payload map[string]interface{}
	EventID int64
}

// MockPublisher captures realtime publishes for assertions
type MockPublisher struct {
	mu        sync.Mutex
	Envelopes []PublishedEnvelope
	FailWith  error
}

// Publish records the envelope, or returns the configured failure
func (p *MockPublisher) Publish(ctx context.Context, topic, eventType string, payload map[string]interface{}, eventID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.Envelopes = append(p.Envelopes, PublishedEnvelope{
		Topic:   topic,
		Event:   eventType,
		Payload: payload,
		EventID: eventID,
	})
	return nil
}

// Topics returns the captured publish topics in order
func (p *MockPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.Envelopes))
	for _, e := range p.Envelopes {
		topics = append(topics, e.Topic)
	}
	return topics
}
