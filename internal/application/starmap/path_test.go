package starmap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/application/starmap"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func twoWay(to int) sector.WarpEdge {
	return sector.WarpEdge{To: to, TwoWay: true}
}

// seedChain stores sectors 0-1-2 in a line plus an unreachable island 9
func seedChain(t *testing.T) *starmap.Graph {
	t.Helper()
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSectorRepository(db)
	require.NoError(t, repo.SaveAll(context.Background(), []*sector.Sector{
		{ID: 0, Region: "core", Edges: []sector.WarpEdge{twoWay(1)}},
		{ID: 1, Region: "core", Edges: []sector.WarpEdge{twoWay(0), twoWay(2)}},
		{ID: 2, Region: "core", Edges: []sector.WarpEdge{twoWay(1)}},
		{ID: 9, Region: "rim"},
	}))
	return starmap.NewGraph(repo)
}

func TestShortestPath_WalksTheChain(t *testing.T) {
	// Arrange
	graph := seedChain(t)

	// Act
	path, distance, err := graph.ShortestPath(context.Background(), 0, 2)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, path)
	assert.Equal(t, 2, distance)
}

func TestShortestPath_SameSectorIsTrivial(t *testing.T) {
	graph := seedChain(t)

	path, distance, err := graph.ShortestPath(context.Background(), 1, 1)

	require.NoError(t, err)
	assert.Equal(t, []int{1}, path)
	assert.Zero(t, distance)
}

func TestShortestPath_UnreachableIsNotFound(t *testing.T) {
	graph := seedChain(t)

	_, _, err := graph.ShortestPath(context.Background(), 0, 9)

	assert.True(t, shared.IsNotFound(err))
}

func TestShortestPath_PrefersSmallerNeighborOnTies(t *testing.T) {
	// Arrange - a diamond: 0 reaches 3 through 1 or 2 in two hops
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSectorRepository(db)
	require.NoError(t, repo.SaveAll(context.Background(), []*sector.Sector{
		{ID: 0, Edges: []sector.WarpEdge{twoWay(2), twoWay(1)}},
		{ID: 1, Edges: []sector.WarpEdge{twoWay(0), twoWay(3)}},
		{ID: 2, Edges: []sector.WarpEdge{twoWay(0), twoWay(3)}},
		{ID: 3, Edges: []sector.WarpEdge{twoWay(1), twoWay(2)}},
	}))
	graph := starmap.NewGraph(repo)

	// Act
	path, distance, err := graph.ShortestPath(context.Background(), 0, 3)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, path)
	assert.Equal(t, 2, distance)
}
