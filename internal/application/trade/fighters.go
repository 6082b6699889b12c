package trade

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// FighterPrice is the per-unit price at the sector-0 fighter bay
const FighterPrice = 100

// PurchaseFightersCommand buys fighters at the bank sector
type PurchaseFightersCommand struct {
	Actor common.Actor
	Count int
}

// PurchaseFightersResponse reports the resulting complement
type PurchaseFightersResponse struct {
	Success     bool `json:"success"`
	Fighters    int  `json:"fighters"`
	ShipCredits int  `json:"ship_credits"`
	Cost        int  `json:"cost"`
}

// PurchaseFightersHandler serves purchase_fighters
type PurchaseFightersHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewPurchaseFightersHandler creates the handler
func NewPurchaseFightersHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *PurchaseFightersHandler {
	return &PurchaseFightersHandler{
		characters: characters,
		ships:      ships,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes the purchase
func (h *PurchaseFightersHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*PurchaseFightersCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	if cmd.Count <= 0 {
		return nil, shared.NewValidationError("count", "must be positive")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	if pilotShip.Sector == nil || *pilotShip.Sector != BankSector {
		return nil, shared.NewConflictError(fmt.Sprintf("fighter bay is only available in sector %d", BankSector))
	}

	def, err := h.ships.FindDefinition(ctx, pilotShip.TypeID)
	if err != nil {
		return nil, err
	}
	if pilotShip.Fighters+cmd.Count > def.FighterCapacity {
		return nil, shared.NewConflictError(fmt.Sprintf("fighter bays full: %d/%d", pilotShip.Fighters, def.FighterCapacity))
	}

	cost := cmd.Count * FighterPrice
	if err := pilotShip.SpendCredits(cost); err != nil {
		return nil, err
	}
	pilotShip.Fighters += cmd.Count
	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	sectorID := *pilotShip.Sector
	shipID := pilotShip.ID
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "fighter.purchase",
		Payload: map[string]interface{}{
			"count":        cmd.Count,
			"cost":         cost,
			"fighters":     pilotShip.Fighters,
			"ship_credits": pilotShip.Credits,
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Ship:       &shipID,
		Source:     source,
	})
	emitStatusUpdate(ctx, h.bus, h.snapshots, pilot, pilotShip, source)

	return &PurchaseFightersResponse{
		Success:     true,
		Fighters:    pilotShip.Fighters,
		ShipCredits: pilotShip.Credits,
		Cost:        cost,
	}, nil
}
