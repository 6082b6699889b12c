package starmap

import (
	"context"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// MaxKnownPortsHops caps the BFS radius of known-port queries
const MaxKnownPortsHops = 10

// KnownPort is one match of a known-ports query, with the live price for
// the requested commodity and direction when one was asked for
type KnownPort struct {
	Sector int                                                `json:"sector"`
	Hops   int                                                `json:"hops"`
	Code   string                                             `json:"code"`
	Prices map[shared.Commodity]map[sector.TradeDirection]int `json:"prices"`
}

// KnownPortsQuery filters the ports a pilot remembers
type KnownPortsQuery struct {
	FromSector int
	MaxHops    int
	PortCode   string
	Commodity  *shared.Commodity
	Direction  sector.TradeDirection
}

// KnownPortsFinder walks visited sectors and quotes live port prices
type KnownPortsFinder struct {
	portsRepo ports.PortRepository
}

// NewKnownPortsFinder creates the query service
func NewKnownPortsFinder(portsRepo ports.PortRepository) *KnownPortsFinder {
	return &KnownPortsFinder{portsRepo: portsRepo}
}

// Find BFS-walks the pilot's visited sectors from the query origin, bounded
// by MaxHops, and returns ports matching the filters with computed current
// prices. With MaxHops 0 only the origin sector's port can match.
func (f *KnownPortsFinder) Find(ctx context.Context, knowledge *character.MapKnowledge, query KnownPortsQuery) ([]KnownPort, error) {
	maxHops := query.MaxHops
	if maxHops > MaxKnownPortsHops {
		maxHops = MaxKnownPortsHops
	}
	if maxHops < 0 {
		maxHops = 0
	}

	hops := map[int]int{}
	if knowledge.Visited(query.FromSector) {
		hops[query.FromSector] = 0
		frontier := []int{query.FromSector}
		for depth := 0; depth < maxHops && len(frontier) > 0; depth++ {
			next := frontier[:0:0]
			for _, current := range frontier {
				for _, neighbor := range knowledge.Sectors[current].Adjacent {
					if !knowledge.Visited(neighbor) {
						continue
					}
					if _, seen := hops[neighbor]; seen {
						continue
					}
					hops[neighbor] = depth + 1
					next = append(next, neighbor)
				}
			}
			frontier = next
		}
	}

	matches := []KnownPort{}
	for _, sectorID := range sortedKeys(hops) {
		k := knowledge.Sectors[sectorID]
		if k.Port == nil {
			continue
		}
		port, err := f.portsRepo.FindBySector(ctx, sectorID)
		if err != nil || port == nil {
			continue
		}
		if !matchesQuery(port, query) {
			continue
		}
		matches = append(matches, KnownPort{
			Sector: sectorID,
			Hops:   hops[sectorID],
			Code:   port.Code,
			Prices: port.Prices(),
		})
	}
	return matches, nil
}

func matchesQuery(port *sector.Port, query KnownPortsQuery) bool {
	if query.PortCode != "" && port.Code != query.PortCode {
		return false
	}
	if query.Commodity == nil {
		return true
	}
	switch query.Direction {
	case sector.PortSells:
		_, ok := port.SellPrice(*query.Commodity)
		return ok
	case sector.PortBuys:
		_, ok := port.BuyPrice(*query.Commodity)
		return ok
	default:
		_, sells := port.SellPrice(*query.Commodity)
		_, buys := port.BuyPrice(*query.Commodity)
		return sells || buys
	}
}
