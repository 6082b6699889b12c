package starmap

import (
	"context"
	"sort"

	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
)

// LocalMapNode is one entry of a bounded local-map region. Visited nodes
// carry knowledge-derived fields; unvisited neighbors appear as stubs with
// only the visited sectors they were seen from.
type LocalMapNode struct {
	Sector   int    `json:"sector"`
	Hops     int    `json:"hops"`
	Visited  bool   `json:"visited"`
	Adjacent []int  `json:"adjacent_sectors,omitempty"`
	X        int    `json:"x,omitempty"`
	Y        int    `json:"y,omitempty"`
	PortCode string `json:"port_code,omitempty"`
	SeenFrom []int  `json:"seen_from,omitempty"`
}

// LocalMapRegion BFS-walks only visited sectors from center up to maxHops,
// recording hop counts, and includes unvisited neighbors as seen-from stubs.
// Total emitted nodes are hard-capped at maxNodes; the result is ascending
// by sector id.
func LocalMapRegion(knowledge *character.MapKnowledge, center, maxHops, maxNodes int) []LocalMapNode {
	hops := map[int]int{}
	seenFrom := map[int]map[int]bool{}

	if knowledge.Visited(center) {
		hops[center] = 0
		frontier := []int{center}
		for depth := 0; depth < maxHops && len(frontier) > 0; depth++ {
			next := frontier[:0:0]
			for _, current := range frontier {
				for _, neighbor := range knowledge.Sectors[current].Adjacent {
					if knowledge.Visited(neighbor) {
						if _, ok := hops[neighbor]; !ok {
							hops[neighbor] = depth + 1
							next = append(next, neighbor)
						}
						continue
					}
					// Unvisited stub: remember the lane endpoint it was
					// observed from
					if seenFrom[neighbor] == nil {
						seenFrom[neighbor] = map[int]bool{}
					}
					seenFrom[neighbor][current] = true
				}
			}
			frontier = next
		}
	}

	nodes := make([]LocalMapNode, 0, len(hops)+len(seenFrom))
	for _, id := range sortedKeys(hops) {
		k := knowledge.Sectors[id]
		node := LocalMapNode{
			Sector:   id,
			Hops:     hops[id],
			Visited:  true,
			Adjacent: k.Adjacent,
			X:        k.X,
			Y:        k.Y,
		}
		if k.Port != nil {
			node.PortCode = k.Port.Code
		}
		nodes = append(nodes, node)
	}
	for id, sources := range seenFrom {
		if _, visited := hops[id]; visited {
			continue
		}
		origins := make([]int, 0, len(sources))
		for origin := range sources {
			origins = append(origins, origin)
		}
		sort.Ints(origins)
		nodes = append(nodes, LocalMapNode{Sector: id, Hops: -1, SeenFrom: origins})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Sector < nodes[j].Sector })
	if len(nodes) > maxNodes {
		nodes = nodes[:maxNodes]
	}
	return nodes
}

// PathRegionNode is one entry of a path-region payload. Visited sectors
// embed a full snapshot; unvisited sectors carry only seen_from metadata.
type PathRegionNode struct {
	Sector             int                   `json:"sector"`
	Distance           int                   `json:"distance"`
	OnPath             bool                  `json:"on_path"`
	Visited            bool                  `json:"visited"`
	Snapshot           *world.SectorSnapshot `json:"snapshot,omitempty"`
	SeenFrom           []int                 `json:"seen_from,omitempty"`
	AdjacentToPathNode []int                 `json:"adjacent_to_path_nodes,omitempty"`
}

// SnapshotFunc renders a sector snapshot for path-region payloads
type SnapshotFunc func(ctx context.Context, sectorID int) (*world.SectorSnapshot, error)

// PathRegionPayload anchors distance 0 on every path sector, BFS-walks
// outward through visited sectors within regionHops of the path, and embeds
// snapshots for visited sectors. Non-path visited sectors adjacent to a
// path node record that adjacency. Emits at most maxSectors nodes,
// ascending by sector id.
func PathRegionPayload(
	ctx context.Context,
	knowledge *character.MapKnowledge,
	path []int,
	regionHops, maxSectors int,
	snapshot SnapshotFunc,
) ([]PathRegionNode, error) {
	onPath := map[int]bool{}
	distance := map[int]int{}
	frontier := make([]int, 0, len(path))
	for _, id := range path {
		onPath[id] = true
		distance[id] = 0
		frontier = append(frontier, id)
	}

	seenFrom := map[int]map[int]bool{}
	for depth := 0; depth < regionHops && len(frontier) > 0; depth++ {
		next := frontier[:0:0]
		for _, current := range frontier {
			if !knowledge.Visited(current) {
				continue
			}
			for _, neighbor := range knowledge.Sectors[current].Adjacent {
				if knowledge.Visited(neighbor) {
					if _, ok := distance[neighbor]; !ok {
						distance[neighbor] = depth + 1
						next = append(next, neighbor)
					}
					continue
				}
				if seenFrom[neighbor] == nil {
					seenFrom[neighbor] = map[int]bool{}
				}
				seenFrom[neighbor][current] = true
			}
		}
		frontier = next
	}

	nodes := make([]PathRegionNode, 0, len(distance)+len(seenFrom))
	for _, id := range sortedKeys(distance) {
		node := PathRegionNode{
			Sector:   id,
			Distance: distance[id],
			OnPath:   onPath[id],
			Visited:  knowledge.Visited(id),
		}
		if node.Visited {
			snap, err := snapshot(ctx, id)
			if err != nil {
				return nil, err
			}
			node.Snapshot = snap
		}
		if !node.OnPath {
			for _, neighbor := range knowledge.Sectors[id].Adjacent {
				if onPath[neighbor] {
					node.AdjacentToPathNode = append(node.AdjacentToPathNode, neighbor)
				}
			}
			sort.Ints(node.AdjacentToPathNode)
		}
		nodes = append(nodes, node)
	}
	for id, sources := range seenFrom {
		if _, ok := distance[id]; ok {
			continue
		}
		origins := make([]int, 0, len(sources))
		for origin := range sources {
			origins = append(origins, origin)
		}
		sort.Ints(origins)
		nodes = append(nodes, PathRegionNode{Sector: id, Distance: -1, SeenFrom: origins})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Sector < nodes[j].Sector })
	if len(nodes) > maxSectors {
		nodes = nodes[:maxSectors]
	}
	return nodes, nil
}
