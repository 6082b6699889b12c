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

// BankSector is the only sector with banking and fighter-bay services
const BankSector = 0

// BankAction selects the direction of a bank transfer
type BankAction string

const (
	BankDeposit  BankAction = "deposit"
	BankWithdraw BankAction = "withdraw"
)

// ParseBankAction rejects unknown bank actions
func ParseBankAction(raw string) (BankAction, error) {
	switch BankAction(raw) {
	case BankDeposit, BankWithdraw:
		return BankAction(raw), nil
	default:
		return "", shared.NewValidationError("action", fmt.Sprintf("unknown bank action %q", raw))
	}
}

// BankTransferCommand moves credits between ship and bank at the bank sector
type BankTransferCommand struct {
	Actor  common.Actor
	Action BankAction
	Amount int
}

// BankTransferResponse reports the post-transfer balances
type BankTransferResponse struct {
	Success     bool `json:"success"`
	ShipCredits int  `json:"ship_credits"`
	BankBalance int  `json:"bank_balance"`
}

// BankTransferHandler serves bank_transfer
type BankTransferHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewBankTransferHandler creates the handler
func NewBankTransferHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *BankTransferHandler {
	return &BankTransferHandler{
		characters: characters,
		ships:      ships,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes the transfer
func (h *BankTransferHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*BankTransferCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	if cmd.Amount <= 0 {
		return nil, shared.NewValidationError("amount", "must be positive")
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
		return nil, shared.NewConflictError(fmt.Sprintf("banking is only available in sector %d", BankSector))
	}

	switch cmd.Action {
	case BankDeposit:
		if err := pilotShip.SpendCredits(cmd.Amount); err != nil {
			return nil, err
		}
		if err := pilot.Deposit(cmd.Amount); err != nil {
			return nil, err
		}
	case BankWithdraw:
		if err := pilot.Withdraw(cmd.Amount); err != nil {
			return nil, err
		}
		pilotShip.Credits += cmd.Amount
	default:
		return nil, shared.NewValidationError("action", fmt.Sprintf("unknown bank action %q", cmd.Action))
	}

	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}
	if err := h.characters.Save(ctx, pilot); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	sectorID := *pilotShip.Sector
	shipID := pilotShip.ID
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "bank.transaction",
		Payload: map[string]interface{}{
			"action":       string(cmd.Action),
			"amount":       cmd.Amount,
			"ship_credits": pilotShip.Credits,
			"bank_balance": pilot.Bank,
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Ship:       &shipID,
		Source:     source,
	})
	emitStatusUpdate(ctx, h.bus, h.snapshots, pilot, pilotShip, source)

	return &BankTransferResponse{
		Success:     true,
		ShipCredits: pilotShip.Credits,
		BankBalance: pilot.Bank,
	}, nil
}
