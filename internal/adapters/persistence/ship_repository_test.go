package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func TestShipRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	sector := 3

	vessel := &ship.Ship{
		ID:        "ship-1",
		TypeID:    "kestrel_courier",
		Name:      "Stardust",
		Owner:     ship.CharacterOwner("char-1"),
		Sector:    &sector,
		Credits:   1200,
		Cargo:     shared.CargoMap{shared.QuantumFoam: 5},
		WarpPower: 250,
		Shields:   80,
		Fighters:  40,
	}

	// Act
	err := repo.Save(context.Background(), vessel)
	require.NoError(t, err)
	found, err := repo.FindByID(context.Background(), "ship-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, vessel.ID, found.ID)
	assert.Equal(t, ship.OwnedByCharacter, found.Owner.Kind)
	assert.Equal(t, shared.CharacterID("char-1"), found.Owner.CharacterID)
	require.NotNil(t, found.Sector)
	assert.Equal(t, 3, *found.Sector)
	assert.Equal(t, 5, found.Cargo[shared.QuantumFoam])
	assert.Equal(t, 250, found.WarpPower)
}

func TestShipRepository_BeginTransit(t *testing.T) {
	// Arrange - ship landed in sector 0
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	ctx := context.Background()
	origin := 0
	eta := time.Date(2026, 3, 14, 12, 0, 5, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID:     "ship-t",
		TypeID: "kestrel_courier",
		Owner:  ship.CharacterOwner("char-1"),
		Sector: &origin,
	}))

	// Act
	err := repo.BeginTransit(ctx, "ship-t", 0, 1, eta)

	// Assert
	require.NoError(t, err)
	found, err := repo.FindByID(ctx, "ship-t")
	require.NoError(t, err)
	assert.True(t, found.InTransit)
	assert.Nil(t, found.Sector)
	require.NotNil(t, found.TransitDest)
	assert.Equal(t, 1, *found.TransitDest)
	require.NotNil(t, found.TransitETA)
}

func TestShipRepository_BeginTransitConflictsWhenAlreadyGone(t *testing.T) {
	// Arrange - first dispatch wins
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	ctx := context.Background()
	origin := 0
	eta := time.Now().UTC().Add(5 * time.Second)

	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID:     "ship-r",
		TypeID: "kestrel_courier",
		Owner:  ship.CharacterOwner("char-1"),
		Sector: &origin,
	}))
	require.NoError(t, repo.BeginTransit(ctx, "ship-r", 0, 1, eta))

	// Act - the racing second move matches zero rows
	err := repo.BeginTransit(ctx, "ship-r", 0, 2, eta)

	// Assert
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
}

func TestShipRepository_ListOverdueTransits(t *testing.T) {
	// Arrange - one overdue, one still flying
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	overdue := now.Add(-time.Minute)
	pending := now.Add(time.Minute)
	dest := 4
	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID: "ship-late", TypeID: "kestrel_courier", Owner: ship.CharacterOwner("char-1"),
		InTransit: true, TransitDest: &dest, TransitETA: &overdue,
	}))
	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID: "ship-flying", TypeID: "kestrel_courier", Owner: ship.CharacterOwner("char-2"),
		InTransit: true, TransitDest: &dest, TransitETA: &pending,
	}))

	// Act
	late, err := repo.ListOverdueTransits(ctx, now)

	// Assert
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, shared.ShipID("ship-late"), late[0].ID)
}

func TestShipRepository_Definitions(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&persistence.ShipDefinitionModel{
		TypeID: "kestrel_courier", Name: "Kestrel Courier", WarpCost: 1, TurnsPerWarp: 1,
		WarpPowerCapacity: 250, ShieldCapacity: 100, FighterCapacity: 50, CargoHolds: 40, Price: 10000,
	}).Error)
	require.NoError(t, db.Create(&persistence.ShipDefinitionModel{
		TypeID: "escape_pod", Name: "Escape Pod", TurnsPerWarp: 2, IsEscapePod: true,
	}).Error)

	// Act
	def, err := repo.FindDefinition(ctx, "kestrel_courier")
	require.NoError(t, err)
	all, err := repo.ListDefinitions(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 250, def.WarpPowerCapacity)
	require.Len(t, all, 2)
	assert.Equal(t, "escape_pod", all[0].TypeID)

	_, err = repo.FindDefinition(ctx, "unknown")
	assert.True(t, shared.IsNotFound(err))
}

func TestShipRepository_ListUnownedInSector(t *testing.T) {
	// Arrange - a derelict and an owned hull in the same sector
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormShipRepository(db)
	ctx := context.Background()
	sector := 7

	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID: "ship-derelict", TypeID: "kestrel_courier", Owner: ship.NoOwner(), Sector: &sector,
	}))
	require.NoError(t, repo.Save(ctx, &ship.Ship{
		ID: "ship-owned", TypeID: "kestrel_courier", Owner: ship.CharacterOwner("char-1"), Sector: &sector,
	}))

	// Act
	derelicts, err := repo.ListUnownedInSector(ctx, 7)

	// Assert
	require.NoError(t, err)
	require.Len(t, derelicts, 1)
	assert.Equal(t, shared.ShipID("ship-derelict"), derelicts[0].ID)
}
