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
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// ShipPurchaseCommand trades the pilot's current hull for a new one.
// Corporate purchases are paid from the pilot's bank and owned by the corp.
type ShipPurchaseCommand struct {
	Actor     common.Actor
	TypeID    string
	ShipName  string
	Corporate bool
}

// ShipPurchaseResponse reports the new hull and the price paid
type ShipPurchaseResponse struct {
	Success bool          `json:"success"`
	ShipID  shared.ShipID `json:"ship_id"`
	Paid    int           `json:"paid"`
	Refund  int           `json:"fighter_refund"`
}

// ShipPurchaseHandler serves ship_purchase. The old hull is deleted on
// trade-in; its fighters refund against the new hull's price.
type ShipPurchaseHandler struct {
	characters   ports.CharacterRepository
	ships        ports.ShipRepository
	corporations ports.CorporationRepository
	snapshots    *world.Snapshotter
	bus          *events.Bus
	clock        shared.Clock
}

// NewShipPurchaseHandler creates the handler
func NewShipPurchaseHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	corporations ports.CorporationRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *ShipPurchaseHandler {
	return &ShipPurchaseHandler{
		characters:   characters,
		ships:        ships,
		corporations: corporations,
		snapshots:    snapshots,
		bus:          bus,
		clock:        clock,
	}
}

// Handle executes the purchase
func (h *ShipPurchaseHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*ShipPurchaseCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	oldShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	if oldShip.Sector == nil || *oldShip.Sector != BankSector {
		return nil, shared.NewConflictError(fmt.Sprintf("shipyard is only available in sector %d", BankSector))
	}

	def, err := h.ships.FindDefinition(ctx, cmd.TypeID)
	if err != nil {
		return nil, err
	}
	if def.IsEscapePod {
		return nil, shared.NewValidationError("ship_type", "escape pods are not for sale")
	}

	refund := oldShip.Fighters * FighterPrice
	paid := def.Price - refund
	if paid < 0 {
		paid = 0
	}

	owner := ship.CharacterOwner(pilot.ID)
	if cmd.Corporate {
		if pilot.CorporationID == nil {
			return nil, shared.NewConflictError("pilot is not in a corporation")
		}
		member, err := h.corporations.IsMember(ctx, *pilot.CorporationID, pilot.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, shared.NewAuthError("not an active member of the corporation")
		}
		if paid > 0 {
			if err := pilot.Withdraw(paid); err != nil {
				return nil, err
			}
		}
		owner = ship.CorporationOwner(*pilot.CorporationID)
	} else {
		if err := oldShip.SpendCredits(paid); err != nil {
			return nil, err
		}
	}

	if oldShip.Cargo.Total() > def.CargoHolds {
		return nil, shared.NewConflictError(fmt.Sprintf("cargo will not fit: %d units, %d holds", oldShip.Cargo.Total(), def.CargoHolds))
	}

	name := cmd.ShipName
	if name == "" {
		name = def.Name
	}
	sectorID := *oldShip.Sector
	newShip := &ship.Ship{
		ID:        shared.NewShipID(),
		TypeID:    def.TypeID,
		Name:      name,
		Owner:     owner,
		Sector:    &sectorID,
		Credits:   oldShip.Credits,
		Cargo:     oldShip.Cargo.Clone(),
		WarpPower: def.WarpPowerCapacity,
		Shields:   def.ShieldCapacity,
		Fighters:  0,
	}
	if err := h.ships.Save(ctx, newShip); err != nil {
		return nil, err
	}

	pilot.ShipID = newShip.ID
	pilot.LastActive = h.clock.Now()
	if err := h.characters.Save(ctx, pilot); err != nil {
		return nil, err
	}
	if err := h.ships.Delete(ctx, oldShip.ID); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	shipID := newShip.ID
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "ship.purchase",
		Payload: map[string]interface{}{
			"ship_id":        string(newShip.ID),
			"ship_type":      def.TypeID,
			"ship_name":      newShip.Name,
			"price":          def.Price,
			"fighter_refund": refund,
			"paid":           paid,
			"corporate":      cmd.Corporate,
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Ship:       &shipID,
		Source:     source,
	})
	emitStatusUpdate(ctx, h.bus, h.snapshots, pilot, newShip, source)

	return &ShipPurchaseResponse{Success: true, ShipID: newShip.ID, Paid: paid, Refund: refund}, nil
}
