package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormEventRepository implements EventRepository using GORM
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a new GORM event repository
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// Append writes the event row and its recipient rows in one transaction and
// returns the allocated id. Publication happens only after this commits.
func (r *GormEventRepository) Append(ctx context.Context, record *event.Record, recipients []event.Recipient) (int64, error) {
	model := recordToModel(record)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(model); result.Error != nil {
			return fmt.Errorf("failed to append event: %w", result.Error)
		}
		for _, rcpt := range recipients {
			row := &EventRecipientModel{
				EventID:     model.ID,
				CharacterID: string(rcpt.CharacterID),
				Reason:      string(rcpt.Reason),
			}
			if result := tx.Create(row); result.Error != nil {
				return fmt.Errorf("failed to append event recipient: %w", result.Error)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	record.ID = model.ID
	return model.ID, nil
}

// Query retrieves log rows matching the filter, newest first
func (r *GormEventRepository) Query(ctx context.Context, filter ports.EventFilter) ([]*event.Record, error) {
	q := r.db.WithContext(ctx).Model(&EventModel{})

	if filter.CharacterID != "" {
		q = q.Joins("JOIN event_character_recipients ON event_character_recipients.event_id = events.id").
			Where("event_character_recipients.character_id = ?", string(filter.CharacterID))
	}
	if filter.Sector != nil {
		q = q.Where("events.sector_id = ?", *filter.Sector)
	}
	if filter.CorporationID != nil {
		q = q.Where("events.character_id IN (?)",
			r.db.Model(&CorporationMemberModel{}).
				Select("character_id").
				Where("corporation_id = ? AND left_at IS NULL", string(*filter.CorporationID)))
	}
	if filter.Since != nil {
		q = q.Where("events.timestamp >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("events.timestamp < ?", *filter.Until)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []EventModel
	if result := q.Order("events.timestamp DESC, events.id DESC").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to query events: %w", result.Error)
	}
	out := make([]*event.Record, 0, len(models))
	for i := range models {
		out = append(out, modelToRecord(&models[i]))
	}
	return out, nil
}

func recordToModel(record *event.Record) *EventModel {
	var shipID *string
	if record.Ship != nil {
		id := string(*record.Ship)
		shipID = &id
	}
	return &EventModel{
		ID:         record.ID,
		Direction:  string(record.Direction),
		Type:       record.Type,
		Payload:    toJSON(record.Payload),
		Timestamp:  record.Timestamp,
		Originator: string(record.Originator),
		SectorID:   record.Sector,
		ShipID:     shipID,
		RequestID:  record.RequestID,
	}
}

func modelToRecord(model *EventModel) *event.Record {
	var payload map[string]interface{}
	_ = fromJSON(model.Payload, &payload)

	var shipID *shared.ShipID
	if model.ShipID != nil {
		id := shared.ShipID(*model.ShipID)
		shipID = &id
	}
	return &event.Record{
		ID:         model.ID,
		Direction:  event.Direction(model.Direction),
		Type:       model.Type,
		Payload:    payload,
		Timestamp:  model.Timestamp,
		Originator: shared.CharacterID(model.Originator),
		Sector:     model.SectorID,
		Ship:       shipID,
		RequestID:  model.RequestID,
	}
}
