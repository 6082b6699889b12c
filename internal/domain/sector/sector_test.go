package sector_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

func TestSector_AdjacentIDs(t *testing.T) {
	s := &sector.Sector{
		ID: 0,
		Edges: []sector.WarpEdge{
			{To: 7, TwoWay: true},
			{To: 1, TwoWay: true},
			{To: 7, TwoWay: false, Hyperlane: true},
			{To: 3, TwoWay: true},
		},
	}

	// Deduplicated and ascending
	assert.Equal(t, []int{1, 3, 7}, s.AdjacentIDs())
	assert.True(t, s.IsAdjacent(3))
	assert.False(t, s.IsAdjacent(4))
}

func TestSalvage_EmptyAndExpired(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := sector.NewSalvage(5, shared.CargoMap{shared.QuantumFoam: 3}, 10, 250, now)

	assert.False(t, s.Empty())
	assert.False(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(sector.DefaultSalvageTTL)))
	assert.True(t, s.Expired(now.Add(sector.DefaultSalvageTTL+time.Second)))

	s.Cargo = shared.CargoMap{}
	s.Scrap = 0
	s.Credits = 0
	assert.True(t, s.Empty())
}

func TestSalvage_CargoIsCopied(t *testing.T) {
	now := time.Now().UTC()
	cargo := shared.CargoMap{shared.RetroOrganics: 4}
	s := sector.NewSalvage(1, cargo, 0, 0, now)

	cargo[shared.RetroOrganics] = 99

	assert.Equal(t, 4, s.Cargo[shared.RetroOrganics])
}
