package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func newBusFixture(t *testing.T) (*gorm.DB, *events.Bus, *helpers.MockPublisher, *shared.MockClock) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	publisher := &helpers.MockPublisher{}

	characters := persistence.NewGormCharacterRepository(db)
	garrisons := persistence.NewGormGarrisonRepository(db)
	corporations := persistence.NewGormCorporationRepository(db)
	observers := events.NewObserverCache(persistence.NewGormObserverRepository(db), clock, 30*time.Second)
	visibility := events.NewVisibility(characters, garrisons, corporations, observers)

	bus := events.NewBus(persistence.NewGormEventRepository(db), publisher, visibility, clock)
	return db, bus, publisher, clock
}

func seedPilotInSector(t *testing.T, db *gorm.DB, id string, sectorID int) {
	t.Helper()
	ctx := context.Background()
	shipID := "ship-" + id
	landed := sectorID
	require.NoError(t, persistence.NewGormShipRepository(db).Save(ctx, &ship.Ship{
		ID: shared.ShipID(shipID), TypeID: "kestrel_courier",
		Owner: ship.CharacterOwner(shared.CharacterID(id)), Sector: &landed,
	}))
	require.NoError(t, persistence.NewGormCharacterRepository(db).Save(ctx, &character.Character{
		ID: shared.CharacterID(id), Name: id, ShipID: shared.ShipID(shipID),
	}))
}

func TestBus_CharacterScopeAppendsThenPublishes(t *testing.T) {
	// Arrange
	db, bus, publisher, _ := newBusFixture(t)
	ctx := context.Background()

	// Act
	err := bus.Emit(ctx, events.Emission{
		Type:       "bank.transfer",
		Payload:    map[string]interface{}{"amount": 100},
		Scope:      event.CharacterScope("char-1"),
		Originator: "char-1",
		Source:     event.NewRPCSource("bank_transfer", "req-1", time.Now().UTC()),
	})

	// Assert - the log row exists and the publish carries its id
	require.NoError(t, err)
	var rows []persistence.EventModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "bank.transfer", rows[0].Type)

	require.Len(t, publisher.Envelopes, 1)
	envelope := publisher.Envelopes[0]
	assert.Equal(t, event.CharacterTopic("char-1"), envelope.Topic)
	assert.Equal(t, rows[0].ID, envelope.EventID)
	assert.Equal(t, rows[0].ID, envelope.Payload["__event_id"])
	assert.NotNil(t, envelope.Payload["source"])
}

func TestBus_BroadcastScopeSkipsTheLog(t *testing.T) {
	// Arrange
	db, bus, publisher, _ := newBusFixture(t)

	// Act
	err := bus.Emit(context.Background(), events.Emission{
		Type:       "chat.message",
		Payload:    map[string]interface{}{"content": "hello"},
		Scope:      event.BroadcastScope(),
		Originator: "char-1",
	})

	// Assert - realtime only
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&persistence.EventModel{}).Count(&count).Error)
	assert.Zero(t, count)

	require.Len(t, publisher.Envelopes, 1)
	assert.Equal(t, event.BroadcastTopic, publisher.Envelopes[0].Topic)
	assert.NotContains(t, publisher.Envelopes[0].Payload, "__event_id")
}

func TestBus_SectorScopeExcludesOriginator(t *testing.T) {
	// Arrange - alice acts, bravo watches from the same sector
	db, bus, publisher, _ := newBusFixture(t)
	seedPilotInSector(t, db, "alice", 5)
	seedPilotInSector(t, db, "bravo", 5)
	sectorID := 5

	// Act
	err := bus.Emit(context.Background(), events.Emission{
		Type:       "movement.start",
		Payload:    map[string]interface{}{"from": 5},
		Scope:      event.SectorScope(5, false),
		Originator: "alice",
		Sector:     &sectorID,
	})

	// Assert - only bravo gets a recipient row
	require.NoError(t, err)
	var recipients []persistence.EventRecipientModel
	require.NoError(t, db.Find(&recipients).Error)
	require.Len(t, recipients, 1)
	assert.Equal(t, "bravo", recipients[0].CharacterID)
	assert.Equal(t, "sector", recipients[0].Reason)

	topics := publisher.Topics()
	assert.Contains(t, topics, event.SectorTopic(5))
	assert.Contains(t, topics, event.CharacterTopic("bravo"))
	assert.NotContains(t, topics, event.CharacterTopic("alice"))
}

func TestBus_EmitErrorMirrorsToActor(t *testing.T) {
	// Arrange
	db, bus, publisher, _ := newBusFixture(t)

	// Act
	bus.EmitError(context.Background(), "char-1",
		event.NewRPCSource("move", "req-9", time.Now().UTC()),
		"move", "sector not adjacent", 409)

	// Assert
	var rows []persistence.EventModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "error", rows[0].Type)

	require.Len(t, publisher.Envelopes, 1)
	assert.Equal(t, event.CharacterTopic("char-1"), publisher.Envelopes[0].Topic)
	assert.Equal(t, "sector not adjacent", publisher.Envelopes[0].Payload["error"])
	assert.Equal(t, 409, publisher.Envelopes[0].Payload["status"])
}

func TestBus_PublishFailureSurfacesButKeepsLogRow(t *testing.T) {
	// Arrange
	db, bus, publisher, _ := newBusFixture(t)
	publisher.FailWith = assert.AnError

	// Act
	err := bus.Emit(context.Background(), events.Emission{
		Type:       "bank.transfer",
		Scope:      event.CharacterScope("char-1"),
		Originator: "char-1",
	})

	// Assert - the append committed before the publish failed
	require.Error(t, err)
	var count int64
	require.NoError(t, db.Model(&persistence.EventModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
