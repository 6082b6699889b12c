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
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func newVisibility(t *testing.T) (*gorm.DB, *events.Visibility) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	observers := events.NewObserverCache(persistence.NewGormObserverRepository(db), clock, 30*time.Second)
	vis := events.NewVisibility(
		persistence.NewGormCharacterRepository(db),
		persistence.NewGormGarrisonRepository(db),
		persistence.NewGormCorporationRepository(db),
		observers,
	)
	return db, vis
}

func reasonsByCharacter(recipients *events.Recipients) map[shared.CharacterID]event.Reason {
	out := map[shared.CharacterID]event.Reason{}
	for _, r := range recipients.Characters {
		out[r.CharacterID] = r.Reason
	}
	return out
}

func TestVisibility_CharacterScope(t *testing.T) {
	_, vis := newVisibility(t)

	recipients, err := vis.Resolve(context.Background(), event.CharacterScope("char-1"), "char-2")
	require.NoError(t, err)
	require.Len(t, recipients.Characters, 1)
	assert.Equal(t, event.ReasonRecipient, recipients.Characters[0].Reason)
	assert.Equal(t, []string{event.CharacterTopic("char-1")}, recipients.Topics)

	// Self-targeted events are tagged self
	recipients, err = vis.Resolve(context.Background(), event.CharacterScope("char-1"), "char-1")
	require.NoError(t, err)
	assert.Equal(t, event.ReasonSelf, recipients.Characters[0].Reason)
}

func TestVisibility_SectorScopeIncludeOrigin(t *testing.T) {
	// Arrange
	db, vis := newVisibility(t)
	seedPilotInSector(t, db, "alice", 5)
	seedPilotInSector(t, db, "bravo", 5)

	// Act
	recipients, err := vis.Resolve(context.Background(), event.SectorScope(5, true), "alice")

	// Assert - alice stays in the set tagged self
	require.NoError(t, err)
	reasons := reasonsByCharacter(recipients)
	assert.Equal(t, event.ReasonSelf, reasons["alice"])
	assert.Equal(t, event.ReasonSector, reasons["bravo"])
}

func TestVisibility_SectorScopeIncludesGarrisonCorpMembers(t *testing.T) {
	// Arrange - a garrison in sector 5 owned by a corp pilot who is far away,
	// with a corpmate elsewhere too
	db, vis := newVisibility(t)
	ctx := context.Background()
	seedPilotInSector(t, db, "alice", 5)

	corpID := shared.CorporationID("corp-1")
	characters := persistence.NewGormCharacterRepository(db)
	require.NoError(t, characters.Save(ctx, &character.Character{
		ID: "owner", Name: "Owner", ShipID: "ship-owner", CorporationID: &corpID,
	}))
	require.NoError(t, characters.Save(ctx, &character.Character{
		ID: "mate", Name: "Mate", ShipID: "ship-mate", CorporationID: &corpID,
	}))
	require.NoError(t, persistence.NewGormGarrisonRepository(db).Save(ctx, &garrison.Garrison{
		Sector: 5, Owner: "owner", Fighters: 100, Mode: garrison.Defensive, DeployedAt: time.Now().UTC(),
	}))

	// Act
	recipients, err := vis.Resolve(ctx, event.SectorScope(5, false), "alice")

	// Assert
	require.NoError(t, err)
	reasons := reasonsByCharacter(recipients)
	assert.Equal(t, event.ReasonCorp, reasons["owner"])
	assert.Equal(t, event.ReasonCorp, reasons["mate"])
	assert.NotContains(t, reasons, shared.CharacterID("alice"))
}

func TestVisibility_SectorScopeAppendsObserverChannels(t *testing.T) {
	// Arrange
	db, vis := newVisibility(t)
	require.NoError(t, db.Create(&persistence.SectorContentsModel{
		SectorID:         5,
		ObserverChannels: `["observer:overview","observer:ops"]`,
	}).Error)

	// Act
	recipients, err := vis.Resolve(context.Background(), event.SectorScope(5, false), "alice")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, recipients.Topics, "observer:overview")
	assert.Contains(t, recipients.Topics, "observer:ops")
}

func TestVisibility_CorporationScope(t *testing.T) {
	// Arrange
	db, vis := newVisibility(t)
	ctx := context.Background()
	corpID := shared.CorporationID("corp-1")
	characters := persistence.NewGormCharacterRepository(db)
	require.NoError(t, characters.Save(ctx, &character.Character{ID: "owner", Name: "Owner", ShipID: "s1", CorporationID: &corpID}))
	require.NoError(t, characters.Save(ctx, &character.Character{ID: "mate", Name: "Mate", ShipID: "s2", CorporationID: &corpID}))

	// Act
	recipients, err := vis.Resolve(ctx, event.CorporationScope(corpID), "owner")

	// Assert
	require.NoError(t, err)
	reasons := reasonsByCharacter(recipients)
	assert.Equal(t, event.ReasonSelf, reasons["owner"])
	assert.Equal(t, event.ReasonCorp, reasons["mate"])
	assert.Len(t, recipients.Topics, 2)
}
