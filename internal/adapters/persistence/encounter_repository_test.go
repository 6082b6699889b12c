package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func newStoredEncounter(sectorID int) *combat.Encounter {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enc := combat.NewEncounter(sectorID, "char-1", now, combat.DefaultRoundTimeout)
	enc.AddParticipant(&combat.CombatantState{
		ID: "char-1", Kind: combat.KindCharacter, Name: "Ada", Fighters: 50, Shields: 50, OwnerID: "char-1",
	})
	enc.AddParticipant(&combat.CombatantState{
		ID: "char-2", Kind: combat.KindCharacter, Name: "Bell", Fighters: 40, Shields: 40, OwnerID: "char-2",
	})
	return enc
}

func TestEncounterRepository_CreateAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormEncounterRepository(db)
	ctx := context.Background()
	enc := newStoredEncounter(5)

	// Act
	err := repo.Create(ctx, enc)
	require.NoError(t, err)
	found, err := repo.FindByID(ctx, enc.CombatID)

	// Assert - the full document round-trips
	require.NoError(t, err)
	assert.Equal(t, enc.CombatID, found.CombatID)
	assert.Equal(t, 5, found.Sector)
	assert.Equal(t, 1, found.Round)
	assert.Equal(t, enc.BaseSeed, found.BaseSeed)
	require.Contains(t, found.Participants, combat.CombatantID("char-1"))
	assert.Equal(t, 50, found.Participants["char-1"].Fighters)
}

func TestEncounterRepository_FindActiveBySector(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormEncounterRepository(db)
	ctx := context.Background()
	enc := newStoredEncounter(5)
	require.NoError(t, repo.Create(ctx, enc))

	// Act
	active, err := repo.FindActiveBySector(ctx, 5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enc.CombatID, active.CombatID)

	_, err = repo.FindActiveBySector(ctx, 6)
	assert.True(t, shared.IsNotFound(err))
}

func TestEncounterRepository_EndedEncounterIsNotActive(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormEncounterRepository(db)
	ctx := context.Background()
	enc := newStoredEncounter(5)
	require.NoError(t, repo.Create(ctx, enc))

	expectedRound, expectedUpdated := enc.Round, enc.LastUpdated
	enc.Finish(combat.EndDestroyedAll, enc.LastUpdated.Add(time.Second))

	// Act
	err := repo.Save(ctx, enc, expectedRound, expectedUpdated)

	// Assert
	require.NoError(t, err)
	_, err = repo.FindActiveBySector(ctx, 5)
	assert.True(t, shared.IsNotFound(err))
}

func TestEncounterRepository_SaveConflictsOnStaleRead(t *testing.T) {
	// Arrange - two engines read the same round
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormEncounterRepository(db)
	ctx := context.Background()
	enc := newStoredEncounter(5)
	require.NoError(t, repo.Create(ctx, enc))

	staleRound, staleUpdated := enc.Round, enc.LastUpdated

	// First writer advances the round
	enc.Round = 2
	enc.LastUpdated = staleUpdated.Add(time.Second)
	require.NoError(t, repo.Save(ctx, enc, staleRound, staleUpdated))

	// Act - second writer still holds the stale pair
	enc.Round = 3
	err := repo.Save(ctx, enc, staleRound, staleUpdated)

	// Assert
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestEncounterRepository_ListDue(t *testing.T) {
	// Arrange - one deadline passed, one in the future
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormEncounterRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	due := newStoredEncounter(5)
	passed := now.Add(-time.Second)
	due.Deadline = &passed
	require.NoError(t, repo.Create(ctx, due))

	pending := newStoredEncounter(6)
	future := now.Add(time.Minute)
	pending.Deadline = &future
	require.NoError(t, repo.Create(ctx, pending))

	// Act
	found, err := repo.ListDue(ctx, now, 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.CombatID, found[0].CombatID)
}
