package combat

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// LeaveFightersCommand deploys ship fighters into a sector garrison
type LeaveFightersCommand struct {
	Actor      common.Actor
	Count      int
	Mode       garrison.Mode
	TollAmount int
}

// LeaveFightersResponse reports the resulting stack
type LeaveFightersResponse struct {
	Success   bool `json:"success"`
	Fighters  int  `json:"fighters"`
	Shipboard int  `json:"shipboard_fighters"`
}

// SetGarrisonModeCommand switches a deployed stack's standing order
type SetGarrisonModeCommand struct {
	Actor      common.Actor
	Sector     int
	Mode       garrison.Mode
	TollAmount int
}

// SetGarrisonModeResponse acknowledges the switch
type SetGarrisonModeResponse struct {
	Success bool `json:"success"`
}

// GarrisonHandler serves combat_leave_fighters and combat_set_garrison_mode.
// Deploying an offensive stack with hostiles present auto-creates an
// encounter.
type GarrisonHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	garrisons  ports.GarrisonRepository
	initiator  *Initiator
	bus        *events.Bus
	clock      shared.Clock
}

// NewGarrisonHandler creates the handler
func NewGarrisonHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	garrisons ports.GarrisonRepository,
	initiator *Initiator,
	bus *events.Bus,
	clock shared.Clock,
) *GarrisonHandler {
	return &GarrisonHandler{
		characters: characters,
		ships:      ships,
		garrisons:  garrisons,
		initiator:  initiator,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes either garrison command
func (h *GarrisonHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	switch cmd := request.(type) {
	case *LeaveFightersCommand:
		return h.leaveFighters(ctx, cmd)
	case *SetGarrisonModeCommand:
		return h.setMode(ctx, cmd)
	default:
		return nil, fmt.Errorf("invalid request type")
	}
}

func (h *GarrisonHandler) leaveFighters(ctx context.Context, cmd *LeaveFightersCommand) (common.Response, error) {
	if cmd.Count <= 0 {
		return nil, shared.NewValidationError("count", "must be positive")
	}
	if _, err := garrison.ParseMode(string(cmd.Mode)); err != nil {
		return nil, err
	}
	if cmd.Mode == garrison.Toll && cmd.TollAmount <= 0 {
		return nil, shared.NewValidationError("toll_amount", "must be positive for toll garrisons")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	if pilotShip.Sector == nil {
		return nil, shared.NewConflictError("cannot deploy fighters in hyperspace")
	}
	if pilotShip.Fighters < cmd.Count {
		return nil, shared.NewConflictError(fmt.Sprintf("only %d fighters aboard", pilotShip.Fighters))
	}
	sectorID := *pilotShip.Sector

	stack, err := h.garrisons.Find(ctx, sectorID, pilot.ID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if stack == nil {
		stack = &garrison.Garrison{
			Sector:     sectorID,
			Owner:      pilot.ID,
			Mode:       cmd.Mode,
			TollAmount: cmd.TollAmount,
			DeployedAt: h.clock.Now(),
		}
	} else {
		stack.Mode = cmd.Mode
		if cmd.Mode == garrison.Toll {
			stack.TollAmount = cmd.TollAmount
		}
	}
	stack.Fighters += cmd.Count
	pilotShip.Fighters -= cmd.Count

	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}
	if err := h.garrisons.Save(ctx, stack); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "garrison.deployed",
		Payload: map[string]interface{}{
			"sector":      sectorID,
			"owner":       string(pilot.ID),
			"owner_name":  pilot.Name,
			"fighters":    stack.Fighters,
			"mode":        string(stack.Mode),
			"toll_amount": stack.TollAmount,
		},
		Scope:      event.SectorScope(sectorID, true),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Source:     source,
	})

	if stack.Mode == garrison.Offensive {
		if err := h.autoEngage(ctx, pilot.ID, sectorID, source); err != nil {
			common.LoggerFromContext(ctx).Log("WARN", "offensive deployment auto-engage failed", map[string]interface{}{
				"sector": sectorID,
				"owner":  string(pilot.ID),
				"error":  err.Error(),
			})
		}
	}

	return &LeaveFightersResponse{Success: true, Fighters: stack.Fighters, Shipboard: pilotShip.Fighters}, nil
}

// autoEngage opens an encounter when the fresh offensive stack has someone
// to shoot at
func (h *GarrisonHandler) autoEngage(ctx context.Context, owner shared.CharacterID, sectorID int, source event.Source) error {
	deployer, err := h.characters.FindByID(ctx, owner)
	if err != nil {
		return err
	}
	pilots, err := h.characters.ListInSector(ctx, sectorID)
	if err != nil {
		return err
	}
	hostile := false
	for _, other := range pilots {
		if other.ID == owner || other.SameCorporation(deployer) {
			continue
		}
		hostile = true
		break
	}
	if !hostile {
		return nil
	}
	_, _, err = h.initiator.Initiate(ctx, owner, source)
	if err != nil && shared.IsConflict(err) {
		return nil
	}
	return err
}

func (h *GarrisonHandler) setMode(ctx context.Context, cmd *SetGarrisonModeCommand) (common.Response, error) {
	if _, err := garrison.ParseMode(string(cmd.Mode)); err != nil {
		return nil, err
	}
	if cmd.Mode == garrison.Toll && cmd.TollAmount <= 0 {
		return nil, shared.NewValidationError("toll_amount", "must be positive for toll garrisons")
	}

	stack, err := h.garrisons.Find(ctx, cmd.Sector, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	if stack == nil {
		return nil, shared.NewNotFoundError("garrison", fmt.Sprintf("no garrison in sector %d", cmd.Sector))
	}

	stack.Mode = cmd.Mode
	if cmd.Mode == garrison.Toll {
		stack.TollAmount = cmd.TollAmount
	}
	if err := h.garrisons.Save(ctx, stack); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	sectorID := cmd.Sector
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "garrison.mode_changed",
		Payload: map[string]interface{}{
			"sector":      sectorID,
			"owner":       string(stack.Owner),
			"mode":        string(stack.Mode),
			"toll_amount": stack.TollAmount,
		},
		Scope:      event.SectorScope(sectorID, true),
		Originator: stack.Owner,
		Sector:     &sectorID,
		Source:     source,
	})

	return &SetGarrisonModeResponse{Success: true}, nil
}
