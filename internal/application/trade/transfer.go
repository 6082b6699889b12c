package trade

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// TransferCreditsCommand moves shipboard credits to a co-located pilot
type TransferCreditsCommand struct {
	Actor       common.Actor
	RecipientID shared.CharacterID
	Amount      int
}

// TransferWarpPowerCommand moves warp power to a co-located pilot
type TransferWarpPowerCommand struct {
	Actor       common.Actor
	RecipientID shared.CharacterID
	Amount      int
}

// TransferResponse reports the sender's remaining balance
type TransferResponse struct {
	Success   bool `json:"success"`
	Remaining int  `json:"remaining"`
}

// TransferHandler serves transfer_credits and transfer_warp_power. Both
// require the two ships to be landed in the same sector.
type TransferHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	bus        *events.Bus
	clock      shared.Clock
}

// NewTransferHandler creates the handler
func NewTransferHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	bus *events.Bus,
	clock shared.Clock,
) *TransferHandler {
	return &TransferHandler{characters: characters, ships: ships, bus: bus, clock: clock}
}

// Handle executes either transfer command
func (h *TransferHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	switch cmd := request.(type) {
	case *TransferCreditsCommand:
		return h.transfer(ctx, cmd.Actor, cmd.RecipientID, cmd.Amount, "credits.transfer",
			func(from, to *ship.Ship) error {
				if err := from.SpendCredits(cmd.Amount); err != nil {
					return err
				}
				to.Credits += cmd.Amount
				return nil
			},
			func(s *ship.Ship) int { return s.Credits })
	case *TransferWarpPowerCommand:
		return h.transfer(ctx, cmd.Actor, cmd.RecipientID, cmd.Amount, "warp.transfer",
			func(from, to *ship.Ship) error {
				if err := from.SpendWarpPower(cmd.Amount); err != nil {
					return err
				}
				to.WarpPower += cmd.Amount
				return nil
			},
			func(s *ship.Ship) int { return s.WarpPower })
	default:
		return nil, fmt.Errorf("invalid request type")
	}
}

func (h *TransferHandler) transfer(
	ctx context.Context,
	actor common.Actor,
	recipientID shared.CharacterID,
	amount int,
	eventType string,
	apply func(from, to *ship.Ship) error,
	remaining func(*ship.Ship) int,
) (common.Response, error) {
	if amount <= 0 {
		return nil, shared.NewValidationError("amount", "must be positive")
	}
	if recipientID == actor.CharacterID {
		return nil, shared.NewValidationError("recipient", "cannot transfer to yourself")
	}

	sender, recipient, senderShip, recipientShip, err := h.loadPair(ctx, actor.CharacterID, recipientID)
	if err != nil {
		return nil, err
	}
	if senderShip.Sector == nil || recipientShip.Sector == nil || *senderShip.Sector != *recipientShip.Sector {
		return nil, shared.NewConflictError("both pilots must be in the same sector")
	}

	if err := apply(senderShip, recipientShip); err != nil {
		return nil, err
	}
	if err := h.ships.Save(ctx, senderShip); err != nil {
		return nil, err
	}
	if err := h.ships.Save(ctx, recipientShip); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(actor.Method, actor.RequestID, h.clock.Now())
	sectorID := *senderShip.Sector
	payload := map[string]interface{}{
		"from":      string(sender.ID),
		"from_name": sender.Name,
		"to":        string(recipient.ID),
		"to_name":   recipient.Name,
		"amount":    amount,
	}
	for _, target := range []shared.CharacterID{sender.ID, recipient.ID} {
		_ = h.bus.Emit(ctx, events.Emission{
			Type:       eventType,
			Payload:    payload,
			Scope:      event.CharacterScope(target),
			Originator: sender.ID,
			Sector:     &sectorID,
			Source:     source,
		})
	}

	return &TransferResponse{Success: true, Remaining: remaining(senderShip)}, nil
}

func (h *TransferHandler) loadPair(ctx context.Context, senderID, recipientID shared.CharacterID) (*character.Character, *character.Character, *ship.Ship, *ship.Ship, error) {
	sender, err := h.characters.FindByID(ctx, senderID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	recipient, err := h.characters.FindByID(ctx, recipientID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	senderShip, err := h.ships.FindByID(ctx, sender.ShipID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	recipientShip, err := h.ships.FindByID(ctx, recipient.ShipID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return sender, recipient, senderShip, recipientShip, nil
}
