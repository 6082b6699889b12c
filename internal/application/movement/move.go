package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/starmap"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// Transit latency tuning, overridable from configuration
const (
	DefaultDelayPerTurn = 5 * time.Second
	DefaultDelayScale   = 1.0
)

// AutoEngager lets arrival trigger combat against hostile offensive
// garrisons without importing the combat package here
type AutoEngager interface {
	EngageOnArrival(ctx context.Context, characterID shared.CharacterID, sectorID int, source event.Source) error
}

// MoveCommand requests adjacent-sector transit
type MoveCommand struct {
	Actor    common.Actor
	ToSector int
}

// MoveResponse acknowledges the departure
type MoveResponse struct {
	Success        bool    `json:"success"`
	HyperspaceTime float64 `json:"hyperspace_time"`
	ETA            string  `json:"eta"`
}

// MoveHandler validates and schedules adjacent-sector transit. Arrival is a
// durable continuation: the eta is persisted with the ship, the in-process
// timer is best-effort, and the resumer re-arrives overdue ships on startup.
type MoveHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	sectors    ports.SectorRepository
	arrivals   *ArrivalService
	bus        *events.Bus
	clock      shared.Clock

	delayPerTurn time.Duration
	delayScale   float64
}

// NewMoveHandler creates the move handler
func NewMoveHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	sectors ports.SectorRepository,
	arrivals *ArrivalService,
	bus *events.Bus,
	clock shared.Clock,
	delayPerTurn time.Duration,
	delayScale float64,
) *MoveHandler {
	if delayPerTurn <= 0 {
		delayPerTurn = DefaultDelayPerTurn
	}
	if delayScale <= 0 {
		delayScale = DefaultDelayScale
	}
	return &MoveHandler{
		characters:   characters,
		ships:        ships,
		sectors:      sectors,
		arrivals:     arrivals,
		bus:          bus,
		clock:        clock,
		delayPerTurn: delayPerTurn,
		delayScale:   delayScale,
	}
}

// Handle executes the move command
func (h *MoveHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*MoveCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	if pilotShip.InTransit || pilotShip.Sector == nil {
		return nil, shared.NewConflictError("ship is already in hyperspace")
	}
	origin := *pilotShip.Sector

	originSector, err := h.sectors.FindByID(ctx, origin)
	if err != nil {
		return nil, err
	}
	if !originSector.IsAdjacent(cmd.ToSector) {
		return nil, shared.NewValidationError("to_sector", fmt.Sprintf("sector %d is not adjacent to %d", cmd.ToSector, origin))
	}

	def, err := h.ships.FindDefinition(ctx, pilotShip.TypeID)
	if err != nil {
		return nil, err
	}
	if err := pilotShip.SpendWarpPower(def.WarpCost); err != nil {
		return nil, err
	}

	delay := time.Duration(float64(def.WarpCost) * h.delayScale * float64(h.delayPerTurn))
	now := h.clock.Now()
	eta := now.Add(delay)

	// Conditional update guards against a racing move on the same ship
	if err := h.ships.BeginTransit(ctx, pilotShip.ID, origin, cmd.ToSector, eta); err != nil {
		return nil, err
	}
	pilotShip.BeginTransit(cmd.ToSector, eta)
	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, now)
	shipID := pilotShip.ID
	if err := h.bus.Emit(ctx, events.Emission{
		Type: "movement.start",
		Payload: map[string]interface{}{
			"from_sector":     origin,
			"to_sector":       cmd.ToSector,
			"hyperspace_time": delay.Seconds(),
			"eta":             eta.Format(time.RFC3339),
			"warp_power":      pilotShip.WarpPower,
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &origin,
		Ship:       &shipID,
		Source:     source,
	}); err != nil {
		return nil, err
	}

	_ = h.bus.Emit(ctx, events.Emission{
		Type: "character.moved",
		Payload: map[string]interface{}{
			"character_id": string(pilot.ID),
			"name":         pilot.Name,
			"movement":     "depart",
			"sector":       origin,
		},
		Scope:      event.SectorScope(origin, false),
		Originator: pilot.ID,
		Sector:     &origin,
		Source:     source,
	})

	// Best-effort in-process continuation; the persisted eta is the truth
	h.arrivals.ScheduleArrival(pilotShip.ID, delay, source)

	return &MoveResponse{
		Success:        true,
		HyperspaceTime: delay.Seconds(),
		ETA:            eta.Format(time.RFC3339),
	}, nil
}

// JoinCommand binds a character to a ship and sector
type JoinCommand struct {
	Actor  common.Actor
	ShipID shared.ShipID
	Sector int
}

// JoinResponse carries the pilot's opening status
type JoinResponse struct {
	Success bool                 `json:"success"`
	Status  *world.StatusPayload `json:"status"`
}

// JoinHandler serves join
type JoinHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	arrivals   *ArrivalService
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewJoinHandler creates the join handler
func NewJoinHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	arrivals *ArrivalService,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *JoinHandler {
	return &JoinHandler{
		characters: characters,
		ships:      ships,
		arrivals:   arrivals,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes the join command
func (h *JoinHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*JoinCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, cmd.ShipID)
	if err != nil {
		return nil, err
	}
	if err := authorizeBoarding(pilot, pilotShip); err != nil {
		return nil, err
	}

	sectorID := cmd.Sector
	pilotShip.Sector = &sectorID
	pilotShip.InTransit = false
	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}
	pilot.ShipID = pilotShip.ID
	pilot.LastActive = h.clock.Now()
	if err := h.characters.Save(ctx, pilot); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	if _, err := h.arrivals.RecordArrival(ctx, pilot, pilotShip, sectorID, source); err != nil {
		return nil, err
	}

	status, err := h.snapshots.StatusPayload(ctx, pilot, pilotShip)
	if err != nil {
		return nil, err
	}
	_ = h.bus.Emit(ctx, events.Emission{
		Type:       "status.snapshot",
		Payload:    map[string]interface{}{"status": status},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Source:     source,
	})

	return &JoinResponse{Success: true, Status: status}, nil
}

func authorizeBoarding(pilot *character.Character, pilotShip *ship.Ship) error {
	switch pilotShip.Owner.Kind {
	case ship.OwnedByCharacter:
		if pilotShip.Owner.CharacterID != pilot.ID {
			return shared.NewAuthError("ship belongs to another pilot")
		}
	case ship.OwnedByCorporation:
		if pilot.CorporationID == nil || *pilot.CorporationID != pilotShip.Owner.CorporationID {
			return shared.NewAuthError("ship belongs to another corporation")
		}
	case ship.Unowned:
		// Claimable
	}
	return nil
}

// LocalMapPayload renders the map.local event body for a pilot at center
func LocalMapPayload(knowledge *character.MapKnowledge, center int) map[string]interface{} {
	region := starmap.LocalMapRegion(knowledge, center, 3, 60)
	return map[string]interface{}{
		"center_sector": center,
		"total_visited": knowledge.TotalVisited,
		"sectors":       region,
	}
}
