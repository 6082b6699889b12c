package events

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Emission describes one event to append and publish
type Emission struct {
	Type    string
	Payload map[string]interface{}
	Scope   event.Scope
	// Extra recipients persisted in addition to the scope's computed set,
	// e.g. the sender row of a direct chat message
	Extra      []event.Recipient
	Originator shared.CharacterID
	Sector     *int
	Ship       *shared.ShipID
	Source     event.Source
}

// Bus appends events to the persistent log and publishes them to the
// realtime transport. Append precedes publish so the log stays the source
// of truth for replay; publish failures after retry surface to the caller
// but never roll the log row back.
type Bus struct {
	log       ports.EventRepository
	publisher ports.RealtimePublisher
	vis       *Visibility
	clock     shared.Clock
}

// NewBus creates the event bus
func NewBus(log ports.EventRepository, publisher ports.RealtimePublisher, vis *Visibility, clock shared.Clock) *Bus {
	return &Bus{log: log, publisher: publisher, vis: vis, clock: clock}
}

// Emit resolves recipients, appends the event with its recipient rows, then
// publishes one envelope per unique topic. Broadcast-scoped events skip the
// log entirely.
func (b *Bus) Emit(ctx context.Context, emission Emission) error {
	recipients, err := b.vis.Resolve(ctx, emission.Scope, emission.Originator)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients for %s: %w", emission.Type, err)
	}

	payload := emission.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["source"] = emission.Source

	var eventID int64
	if emission.Scope.Kind != event.ScopeBroadcast {
		rows := mergeRecipients(recipients.Characters, emission.Extra)
		record := &event.Record{
			Direction:  event.EventOut,
			Type:       emission.Type,
			Payload:    payload,
			Timestamp:  b.clock.Now(),
			Originator: emission.Originator,
			Sector:     emission.Sector,
			Ship:       emission.Ship,
			RequestID:  emission.Source.RequestID,
		}
		eventID, err = b.log.Append(ctx, record, rows)
		if err != nil {
			return fmt.Errorf("failed to append %s to event log: %w", emission.Type, err)
		}
		payload["__event_id"] = eventID
	}

	topics := dedupeTopics(recipients.Topics, extraTopics(emission.Extra))
	logger := common.LoggerFromContext(ctx)
	for _, topic := range topics {
		if err := b.publisher.Publish(ctx, topic, emission.Type, payload, eventID); err != nil {
			logger.Log("ERROR", "realtime publish failed", map[string]interface{}{
				"topic": topic,
				"event": emission.Type,
				"error": err.Error(),
			})
			return err
		}
	}
	return nil
}

// EmitError mirrors a request failure into the acting character's event
// stream. Best-effort: a mirror failure never upgrades the primary error.
func (b *Bus) EmitError(ctx context.Context, actor shared.CharacterID, source event.Source, endpoint, message string, status int) {
	_ = b.Emit(ctx, Emission{
		Type: "error",
		Payload: map[string]interface{}{
			"endpoint": endpoint,
			"error":    message,
			"status":   status,
		},
		Scope:      event.CharacterScope(actor),
		Originator: actor,
		Source:     source,
	})
}

func mergeRecipients(base []event.Recipient, extra []event.Recipient) []event.Recipient {
	seen := make(map[shared.CharacterID]bool, len(base))
	merged := make([]event.Recipient, 0, len(base)+len(extra))
	for _, r := range extra {
		if !seen[r.CharacterID] {
			seen[r.CharacterID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range base {
		if !seen[r.CharacterID] {
			seen[r.CharacterID] = true
			merged = append(merged, r)
		}
	}
	return merged
}

func extraTopics(extra []event.Recipient) []string {
	topics := make([]string, 0, len(extra))
	for _, r := range extra {
		topics = append(topics, event.CharacterTopic(r.CharacterID))
	}
	return topics
}

func dedupeTopics(groups ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, group := range groups {
		for _, topic := range group {
			if !seen[topic] {
				seen[topic] = true
				out = append(out, topic)
			}
		}
	}
	return out
}
