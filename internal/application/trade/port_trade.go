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

// TradeType is the player's side of a port trade
type TradeType string

const (
	// PlayerBuys means the pilot purchases from the port
	PlayerBuys TradeType = "buy"
	// PlayerSells means the pilot sells to the port
	PlayerSells TradeType = "sell"
)

// ParseTradeType rejects unknown trade types
func ParseTradeType(raw string) (TradeType, error) {
	switch TradeType(raw) {
	case PlayerBuys, PlayerSells:
		return TradeType(raw), nil
	default:
		return "", shared.NewValidationError("trade_type", fmt.Sprintf("unknown trade type %q", raw))
	}
}

// PortTradeCommand buys or sells a commodity at the local port
type PortTradeCommand struct {
	Actor     common.Actor
	Commodity shared.Commodity
	Type      TradeType
	Units     int
}

// PortTradeResponse reports the executed trade
type PortTradeResponse struct {
	Success     bool `json:"success"`
	UnitPrice   int  `json:"unit_price"`
	Total       int  `json:"total"`
	ShipCredits int  `json:"ship_credits"`
	PortStock   int  `json:"port_stock"`
}

// PortTradeHandler serves port_trade. Prices are quoted at execution time
// from the port's live stock, so two trades in a row can price differently.
type PortTradeHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	portsRepo  ports.PortRepository
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewPortTradeHandler creates the handler
func NewPortTradeHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	portsRepo ports.PortRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *PortTradeHandler {
	return &PortTradeHandler{
		characters: characters,
		ships:      ships,
		portsRepo:  portsRepo,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes the trade
func (h *PortTradeHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*PortTradeCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	if cmd.Units <= 0 {
		return nil, shared.NewValidationError("units", "must be positive")
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
		return nil, shared.NewConflictError("cannot trade in hyperspace")
	}
	sectorID := *pilotShip.Sector

	port, err := h.portsRepo.FindBySector(ctx, sectorID)
	if err != nil {
		return nil, err
	}
	if port == nil {
		return nil, shared.NewNotFoundError("port", fmt.Sprintf("no port in sector %d", sectorID))
	}

	def, err := h.ships.FindDefinition(ctx, pilotShip.TypeID)
	if err != nil {
		return nil, err
	}

	var unitPrice int
	switch cmd.Type {
	case PlayerBuys:
		price, ok := port.SellPrice(cmd.Commodity)
		if !ok {
			return nil, shared.NewConflictError(fmt.Sprintf("port does not sell %s", cmd.Commodity))
		}
		if port.Stock[cmd.Commodity] < cmd.Units {
			return nil, shared.NewConflictError(fmt.Sprintf("port has only %d units of %s", port.Stock[cmd.Commodity], cmd.Commodity))
		}
		unitPrice = price
		if err := pilotShip.SpendCredits(unitPrice * cmd.Units); err != nil {
			return nil, err
		}
		if err := pilotShip.AddCargo(def, cmd.Commodity, cmd.Units); err != nil {
			return nil, err
		}
		if err := port.AdjustStock(cmd.Commodity, -cmd.Units); err != nil {
			return nil, err
		}
	case PlayerSells:
		price, ok := port.BuyPrice(cmd.Commodity)
		if !ok {
			return nil, shared.NewConflictError(fmt.Sprintf("port does not buy %s", cmd.Commodity))
		}
		unitPrice = price
		if err := pilotShip.RemoveCargo(cmd.Commodity, cmd.Units); err != nil {
			return nil, err
		}
		if err := port.AdjustStock(cmd.Commodity, cmd.Units); err != nil {
			return nil, err
		}
		pilotShip.Credits += unitPrice * cmd.Units
	default:
		return nil, shared.NewValidationError("trade_type", fmt.Sprintf("unknown trade type %q", cmd.Type))
	}

	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}
	if err := h.portsRepo.Save(ctx, port); err != nil {
		return nil, err
	}

	total := unitPrice * cmd.Units
	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	shipID := pilotShip.ID
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "port.trade",
		Payload: map[string]interface{}{
			"commodity":    string(cmd.Commodity),
			"trade_type":   string(cmd.Type),
			"units":        cmd.Units,
			"unit_price":   unitPrice,
			"total":        total,
			"ship_credits": pilotShip.Credits,
			"port_stock":   port.Stock[cmd.Commodity],
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Ship:       &shipID,
		Source:     source,
	})
	emitStatusUpdate(ctx, h.bus, h.snapshots, pilot, pilotShip, source)

	return &PortTradeResponse{
		Success:     true,
		UnitPrice:   unitPrice,
		Total:       total,
		ShipCredits: pilotShip.Credits,
		PortStock:   port.Stock[cmd.Commodity],
	}, nil
}
