package starmap

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Path-region envelope defaults
const (
	DefaultPathRegionHops    = 2
	DefaultPathRegionSectors = 80
)

// ListKnownPortsCommand queries the ports a pilot has visited. TradeType is
// the player's side: "sell" matches ports that buy the commodity.
type ListKnownPortsCommand struct {
	Actor      common.Actor
	FromSector int
	MaxHops    int
	PortCode   string
	Commodity  *shared.Commodity
	TradeType  string
}

// ListKnownPortsResponse carries the matching ports with live prices
type ListKnownPortsResponse struct {
	Success bool        `json:"success"`
	Ports   []KnownPort `json:"ports"`
}

// ListKnownPortsHandler serves list_known_ports
type ListKnownPortsHandler struct {
	knowledge ports.MapKnowledgeRepository
	finder    *KnownPortsFinder
}

// NewListKnownPortsHandler creates the handler
func NewListKnownPortsHandler(knowledge ports.MapKnowledgeRepository, finder *KnownPortsFinder) *ListKnownPortsHandler {
	return &ListKnownPortsHandler{knowledge: knowledge, finder: finder}
}

// Handle executes the query
func (h *ListKnownPortsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*ListKnownPortsCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	direction, err := portDirectionForTrade(cmd.TradeType)
	if err != nil {
		return nil, err
	}

	knowledge, err := h.knowledge.Find(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}

	matches, err := h.finder.Find(ctx, knowledge, KnownPortsQuery{
		FromSector: cmd.FromSector,
		MaxHops:    cmd.MaxHops,
		PortCode:   cmd.PortCode,
		Commodity:  cmd.Commodity,
		Direction:  direction,
	})
	if err != nil {
		return nil, err
	}
	return &ListKnownPortsResponse{Success: true, Ports: matches}, nil
}

// portDirectionForTrade flips the player's trade side into the port's:
// a player selling needs a port that buys
func portDirectionForTrade(tradeType string) (sector.TradeDirection, error) {
	switch tradeType {
	case "":
		return "", nil
	case "sell":
		return sector.PortBuys, nil
	case "buy":
		return sector.PortSells, nil
	default:
		return "", shared.NewValidationError("trade_type", fmt.Sprintf("unknown trade type %q", tradeType))
	}
}

// MapPathCommand plots a course between two sectors with a region envelope
// of known space around it
type MapPathCommand struct {
	Actor      common.Actor
	FromSector int
	ToSector   int
}

// MapPathResponse carries the path and its surrounding region
type MapPathResponse struct {
	Success  bool             `json:"success"`
	Path     []int            `json:"path"`
	Distance int              `json:"distance"`
	Region   []PathRegionNode `json:"region"`
}

// MapPathHandler serves map_path
type MapPathHandler struct {
	graph     *Graph
	knowledge ports.MapKnowledgeRepository
	snapshots *world.Snapshotter
}

// NewMapPathHandler creates the handler
func NewMapPathHandler(graph *Graph, knowledge ports.MapKnowledgeRepository, snapshots *world.Snapshotter) *MapPathHandler {
	return &MapPathHandler{graph: graph, knowledge: knowledge, snapshots: snapshots}
}

// Handle executes the path query
func (h *MapPathHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*MapPathCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	path, distance, err := h.graph.ShortestPath(ctx, cmd.FromSector, cmd.ToSector)
	if err != nil {
		return nil, err
	}
	knowledge, err := h.knowledge.Find(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}

	viewer := cmd.Actor.CharacterID
	region, err := PathRegionPayload(ctx, knowledge, path, DefaultPathRegionHops, DefaultPathRegionSectors,
		func(ctx context.Context, sectorID int) (*world.SectorSnapshot, error) {
			return h.snapshots.SectorSnapshot(ctx, sectorID, viewer)
		})
	if err != nil {
		return nil, err
	}

	return &MapPathResponse{Success: true, Path: path, Distance: distance, Region: region}, nil
}
