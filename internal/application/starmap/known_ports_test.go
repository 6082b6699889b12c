package starmap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/application/starmap"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

// knowledgeOfChain remembers sectors 0-1-2 with a port at the far end
func knowledgeOfChain(t *testing.T) *character.MapKnowledge {
	t.Helper()
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	knowledge := character.NewMapKnowledge("char-1")
	knowledge.RecordVisit(0, []int{1}, 0, 0, nil, at)
	knowledge.RecordVisit(1, []int{0, 2}, 1, 0, nil, at)
	knowledge.RecordVisit(2, []int{1}, 2, 0, &character.PortObservation{Code: "BSS", ObservedAt: at}, at)
	return knowledge
}

func newFinderWithPort(t *testing.T) *starmap.KnownPortsFinder {
	t.Helper()
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPortRepository(db)
	require.NoError(t, repo.Save(context.Background(), &sector.Port{
		Sector:   2,
		Code:     "BSS",
		Capacity: map[shared.Commodity]int{shared.QuantumFoam: 100},
		Stock:    map[shared.Commodity]int{shared.QuantumFoam: 25},
	}))
	return starmap.NewKnownPortsFinder(repo)
}

func TestKnownPorts_FindsPortWithinRadius(t *testing.T) {
	// Arrange
	finder := newFinderWithPort(t)
	knowledge := knowledgeOfChain(t)

	// Act
	matches, err := finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 0,
		MaxHops:    5,
	})

	// Assert - the port two jumps out quotes a live buy price
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Sector)
	assert.Equal(t, 2, matches[0].Hops)
	assert.Equal(t, "BSS", matches[0].Code)
	assert.Equal(t, 31, matches[0].Prices[shared.QuantumFoam][sector.PortBuys])
}

func TestKnownPorts_MaxHopsZeroRestrictsToOrigin(t *testing.T) {
	finder := newFinderWithPort(t)
	knowledge := knowledgeOfChain(t)

	matches, err := finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 0,
		MaxHops:    0,
	})

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKnownPorts_UnvisitedOriginFindsNothing(t *testing.T) {
	finder := newFinderWithPort(t)
	knowledge := knowledgeOfChain(t)

	matches, err := finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 7,
		MaxHops:    5,
	})

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestKnownPorts_CommodityFilterRespectsDirection(t *testing.T) {
	// Arrange - the port buys quantum foam, so asking where it sells misses
	finder := newFinderWithPort(t)
	knowledge := knowledgeOfChain(t)
	commodity := shared.QuantumFoam

	// Act
	matches, err := finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 0,
		MaxHops:    5,
		Commodity:  &commodity,
		Direction:  sector.PortSells,
	})

	// Assert
	require.NoError(t, err)
	assert.Empty(t, matches)

	// The buying direction matches
	matches, err = finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 0,
		MaxHops:    5,
		Commodity:  &commodity,
		Direction:  sector.PortBuys,
	})
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestKnownPorts_PortCodeFilter(t *testing.T) {
	finder := newFinderWithPort(t)
	knowledge := knowledgeOfChain(t)

	matches, err := finder.Find(context.Background(), knowledge, starmap.KnownPortsQuery{
		FromSector: 0,
		MaxHops:    5,
		PortCode:   "SSB",
	})

	require.NoError(t, err)
	assert.Empty(t, matches)
}
