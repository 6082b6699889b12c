package sector

import "sort"

// WarpEdge is a connection from one sector to another. TwoWay edges are
// traversable in both directions; the universe seed guarantees the reverse
// edge exists for every two-way edge. Hyperlane is cosmetic and does not
// alter traversal.
type WarpEdge struct {
	To        int  `json:"to"`
	TwoWay    bool `json:"two_way"`
	Hyperlane bool `json:"hyperlane"`
}

// Sector is a node in the warp graph
type Sector struct {
	ID     int        `json:"id"`
	X      int        `json:"x"`
	Y      int        `json:"y"`
	Region string     `json:"region"`
	Edges  []WarpEdge `json:"edges"`
}

// AdjacentIDs returns the sector ids reachable in one jump, ascending
func (s *Sector) AdjacentIDs() []int {
	ids := make([]int, 0, len(s.Edges))
	seen := make(map[int]bool, len(s.Edges))
	for _, edge := range s.Edges {
		if !seen[edge.To] {
			seen[edge.To] = true
			ids = append(ids, edge.To)
		}
	}
	sort.Ints(ids)
	return ids
}

// IsAdjacent reports whether target is one jump away
func (s *Sector) IsAdjacent(target int) bool {
	for _, edge := range s.Edges {
		if edge.To == target {
			return true
		}
	}
	return false
}
