package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func TestFixtureSeeder_SeedFixture(t *testing.T) {
	// Arrange - a three-sector universe with one port and one pilot
	db := helpers.NewTestDB(t)
	seeder := persistence.NewFixtureSeeder(db, "")
	ctx := context.Background()
	home := 0

	fixture := &persistence.Fixture{
		Sectors: []*sector.Sector{
			{ID: 0, Edges: []sector.WarpEdge{{To: 1, TwoWay: true}}},
			{ID: 1, Edges: []sector.WarpEdge{{To: 0, TwoWay: true}, {To: 2, TwoWay: true}}},
			{ID: 2, Edges: []sector.WarpEdge{{To: 1, TwoWay: true}}},
		},
		Ports: []*sector.Port{
			{
				Sector:   2,
				Code:     "BSS",
				Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100},
				Stock:    map[shared.Commodity]int{shared.QuantumFoam: 25},
			},
		},
		ShipDefinitions: []*ship.Definition{
			{TypeID: "kestrel_courier", Name: "Kestrel Courier", WarpCost: 1, TurnsPerWarp: 1, WarpPowerCapacity: 250, CargoHolds: 40, Price: 10000},
		},
		Ships: []*ship.Ship{
			{ID: "ship-1", TypeID: "kestrel_courier", Owner: ship.CharacterOwner("char-1"), Sector: &home, WarpPower: 250},
		},
		Characters: []*character.Character{
			{ID: "char-1", Name: "Ada", ShipID: "ship-1", Bank: 1000},
		},
		Config:           map[string]string{"motd": "welcome"},
		ObserverChannels: map[string][]string{"2": {"observer:overview"}},
	}

	// Act
	err := seeder.SeedFixture(ctx, fixture)

	// Assert - every repository sees the seeded rows
	require.NoError(t, err)

	sectors := persistence.NewGormSectorRepository(db)
	middle, err := sectors.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, middle.AdjacentIDs())

	portsRepo := persistence.NewGormPortRepository(db)
	port, err := portsRepo.FindBySector(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, port)
	assert.Equal(t, "BSS", port.Code)
	assert.Equal(t, 25, port.Stock[shared.QuantumFoam])

	characters := persistence.NewGormCharacterRepository(db)
	pilot, err := characters.FindByName(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, shared.CharacterID("char-1"), pilot.ID)

	ships := persistence.NewGormShipRepository(db)
	vessel, err := ships.FindByID(ctx, "ship-1")
	require.NoError(t, err)
	assert.Equal(t, 250, vessel.WarpPower)

	observers := persistence.NewGormObserverRepository(db)
	channels, err := observers.ChannelsForSector(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"observer:overview"}, channels)
}

func TestFixtureSeeder_PortWithoutSectorHasNoRow(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	portsRepo := persistence.NewGormPortRepository(db)

	// Act - a sector with no port yields nil, nil
	port, err := portsRepo.FindBySector(context.Background(), 99)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, port)
}
