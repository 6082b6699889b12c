package starmap

import (
	"context"
	"fmt"
	"sort"

	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Graph provides the pure algorithms over the warp graph and per-character
// map knowledge. Adjacency is fetched lazily from the sector repository and
// cached per call.
type Graph struct {
	sectors ports.SectorRepository
}

// NewGraph creates the sector graph service
func NewGraph(sectors ports.SectorRepository) *Graph {
	return &Graph{sectors: sectors}
}

// adjacencyCache memoizes sector adjacency for the duration of one query
type adjacencyCache struct {
	sectors ports.SectorRepository
	known   map[int][]int
}

func newAdjacencyCache(sectors ports.SectorRepository) *adjacencyCache {
	return &adjacencyCache{sectors: sectors, known: make(map[int][]int)}
}

func (c *adjacencyCache) adjacent(ctx context.Context, sectorID int) ([]int, error) {
	if ids, ok := c.known[sectorID]; ok {
		return ids, nil
	}
	sec, err := c.sectors.FindByID(ctx, sectorID)
	if err != nil {
		return nil, err
	}
	ids := sec.AdjacentIDs()
	c.known[sectorID] = ids
	return ids, nil
}

// ShortestPath runs BFS over warp edges from one sector to another and
// returns the ordered path including both endpoints. Ties are broken by
// numerically smaller neighbor id. Fails with NotFound when unreachable.
func (g *Graph) ShortestPath(ctx context.Context, from, to int) ([]int, int, error) {
	if from == to {
		return []int{from}, 0, nil
	}

	cache := newAdjacencyCache(g.sectors)
	parent := map[int]int{from: from}
	frontier := []int{from}

	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, current := range frontier {
			adjacent, err := cache.adjacent(ctx, current)
			if err != nil {
				return nil, 0, err
			}
			// AdjacentIDs is ascending, so smaller ids win ties
			for _, neighbor := range adjacent {
				if _, seen := parent[neighbor]; seen {
					continue
				}
				parent[neighbor] = current
				if neighbor == to {
					return rebuildPath(parent, from, to), pathDistance(parent, from, to), nil
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return nil, 0, shared.NewNotFoundError("path", fmt.Sprintf("no path from sector %d to sector %d", from, to))
}

func rebuildPath(parent map[int]int, from, to int) []int {
	path := []int{to}
	for current := to; current != from; current = parent[current] {
		path = append(path, parent[current])
	}
	// reverse in place
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func pathDistance(parent map[int]int, from, to int) int {
	distance := 0
	for current := to; current != from; current = parent[current] {
		distance++
	}
	return distance
}

// sortedKeys returns map keys ascending; region payloads emit nodes sorted
// by sector id
func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
