package combat

import (
	"context"
	"fmt"
	"sort"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// ActionCommand submits a round action for the acting character
type ActionCommand struct {
	Actor       common.Actor
	CombatID    shared.CombatID
	Action      combat.ActionKind
	Commit      int
	TargetID    *combat.CombatantID
	Destination *int
}

// ActionResponse acknowledges the submission
type ActionResponse struct {
	Success  bool `json:"success"`
	Round    int  `json:"round"`
	Resolved bool `json:"resolved"`
}

// ActionHandler serves combat_action: validates the action per its kind,
// applies the pay side-effect, records the pending action, and invokes the
// resolver when every combatant is ready or the deadline has passed.
type ActionHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	sectors    ports.SectorRepository
	garrisons  ports.GarrisonRepository
	encounters ports.EncounterRepository
	engine     *Engine
	clock      shared.Clock
}

// NewActionHandler creates the handler
func NewActionHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	sectors ports.SectorRepository,
	garrisons ports.GarrisonRepository,
	encounters ports.EncounterRepository,
	engine *Engine,
	clock shared.Clock,
) *ActionHandler {
	return &ActionHandler{
		characters: characters,
		ships:      ships,
		sectors:    sectors,
		garrisons:  garrisons,
		encounters: encounters,
		engine:     engine,
		clock:      clock,
	}
}

// Handle executes the action submission
func (h *ActionHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*ActionCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	return h.submit(ctx, cmd, true)
}

func (h *ActionHandler) submit(ctx context.Context, cmd *ActionCommand, retry bool) (common.Response, error) {
	enc, err := h.encounters.FindByID(ctx, cmd.CombatID)
	if err != nil {
		return nil, err
	}
	if enc.Ended {
		return nil, shared.NewConflictError("encounter has ended")
	}
	actorID := combat.CombatantID(cmd.Actor.CharacterID)
	actor, ok := enc.Participants[actorID]
	if !ok || actor.Kind != combat.KindCharacter {
		return nil, shared.NewConflictError("actor is not a participant in this encounter")
	}

	action, err := h.validate(ctx, enc, actor, cmd)
	if err != nil {
		return nil, err
	}

	// Payment marks the registry before the save and settles credits only
	// after it, so a lost save race never double-charges the payer
	var demand *combat.TollDemand
	if cmd.Action == combat.ActionPay {
		demand, err = h.markTollPaid(ctx, enc, actor)
		if err != nil {
			return nil, err
		}
	}

	expectedRound := enc.Round
	expectedUpdated := enc.LastUpdated
	enc.PendingActions[actorID] = action
	enc.AwaitingResolution = true
	enc.LastUpdated = h.clock.Now()

	if err := h.encounters.Save(ctx, enc, expectedRound, expectedUpdated); err != nil {
		if shared.IsConflict(err) && retry {
			// Lost the race to the tick loop or another action; re-read once
			fresh, readErr := h.encounters.FindByID(ctx, cmd.CombatID)
			if readErr != nil {
				return nil, readErr
			}
			if fresh.Round != expectedRound {
				return nil, shared.NewConflictError("round already resolved, resubmit for the new round")
			}
			return h.submit(ctx, cmd, false)
		}
		return nil, err
	}

	if demand != nil {
		if err := h.settleToll(ctx, actor, demand); err != nil {
			return nil, err
		}
	}

	resolved := false
	now := h.clock.Now()
	if enc.AllCombatantsReady() || enc.DeadlinePassed(now) {
		source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, now)
		if err := h.engine.ResolveRound(ctx, enc, source); err != nil {
			return nil, err
		}
		resolved = true
	}

	return &ActionResponse{Success: true, Round: enc.Round, Resolved: resolved}, nil
}

// validate builds the RoundAction after per-kind checks
func (h *ActionHandler) validate(ctx context.Context, enc *combat.Encounter, actor *combat.CombatantState, cmd *ActionCommand) (*combat.RoundAction, error) {
	now := h.clock.Now()
	switch cmd.Action {
	case combat.ActionAttack:
		if actor.Fighters <= 0 {
			return nil, shared.NewConflictError("no fighters to attack with")
		}
		if cmd.TargetID == nil {
			return nil, shared.NewValidationError("target", "required for attack")
		}
		if *cmd.TargetID == actor.ID {
			return nil, shared.NewValidationError("target", "cannot attack yourself")
		}
		if !enc.HasParticipant(*cmd.TargetID) {
			return nil, shared.NewNotFoundError("combatant", fmt.Sprintf("target %s is not in this encounter", *cmd.TargetID))
		}
		if cmd.Commit < 1 {
			return nil, shared.NewValidationError("commit", "must be at least 1")
		}
		commit := cmd.Commit
		if commit > actor.Fighters {
			commit = actor.Fighters
		}
		return &combat.RoundAction{Action: combat.ActionAttack, Commit: commit, TargetID: cmd.TargetID, SubmittedAt: now}, nil

	case combat.ActionFlee:
		if actor.IsEscapePod {
			return nil, shared.NewConflictError("escape pods cannot flee combat")
		}
		if cmd.Destination == nil {
			return nil, shared.NewValidationError("destination", "required for flee")
		}
		combatSector, err := h.sectors.FindByID(ctx, enc.Sector)
		if err != nil {
			return nil, err
		}
		if !combatSector.IsAdjacent(*cmd.Destination) {
			return nil, shared.NewValidationError("destination", fmt.Sprintf("sector %d is not adjacent to %d", *cmd.Destination, enc.Sector))
		}
		return &combat.RoundAction{Action: combat.ActionFlee, Destination: cmd.Destination, SubmittedAt: now}, nil

	case combat.ActionBrace, combat.ActionPay:
		return &combat.RoundAction{Action: cmd.Action, SubmittedAt: now}, nil

	default:
		return nil, shared.NewValidationError("action", fmt.Sprintf("unknown action %q", cmd.Action))
	}
}

// markTollPaid validates the payer can cover the outstanding demand and
// flags it paid for the current round in the encounter's registry
func (h *ActionHandler) markTollPaid(ctx context.Context, enc *combat.Encounter, actor *combat.CombatantState) (*combat.TollDemand, error) {
	demand := outstandingDemand(enc, actor.ID)
	if demand == nil {
		return nil, shared.NewConflictError("no outstanding toll demand")
	}

	pilot, err := h.characters.FindByID(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	if pilotShip.Credits < demand.Amount {
		return nil, shared.NewConflictError(fmt.Sprintf("insufficient credits for toll of %d", demand.Amount))
	}

	demand.Paid = true
	demand.PaidRound = enc.Round
	return demand, nil
}

// settleToll moves the toll credits: payer's ship down, garrison balance and
// owner's bank up. Runs after the encounter save succeeded.
func (h *ActionHandler) settleToll(ctx context.Context, actor *combat.CombatantState, demand *combat.TollDemand) error {
	pilot, err := h.characters.FindByID(ctx, actor.OwnerID)
	if err != nil {
		return err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return err
	}
	if err := pilotShip.SpendCredits(demand.Amount); err != nil {
		return err
	}
	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return err
	}

	sectorID, owner, ok := parseGarrisonCombatantID(demand.GarrisonID)
	if !ok {
		return nil
	}
	if stack, err := h.garrisons.Find(ctx, sectorID, owner); err == nil && stack != nil {
		stack.CollectToll(demand.Amount)
		if err := h.garrisons.Save(ctx, stack); err != nil {
			return err
		}
	}
	ownerChar, err := h.characters.FindByID(ctx, owner)
	if err != nil {
		return nil // garrison owner deleted; toll is forfeit
	}
	ownerChar.Bank += demand.Amount
	return h.characters.Save(ctx, ownerChar)
}

// outstandingDemand prefers the demand targeting the payer, else the first
// unpaid demand in garrison-id order
func outstandingDemand(enc *combat.Encounter, payer combat.CombatantID) *combat.TollDemand {
	var fallback *combat.TollDemand
	for _, demand := range sortedRegistryDemands(enc) {
		if demand.Paid {
			continue
		}
		if demand.TargetID == payer {
			return demand
		}
		if fallback == nil {
			fallback = demand
		}
	}
	return fallback
}

func sortedRegistryDemands(enc *combat.Encounter) []*combat.TollDemand {
	ids := make([]string, 0, len(enc.Context.TollRegistry))
	for id := range enc.Context.TollRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	demands := make([]*combat.TollDemand, 0, len(ids))
	for _, id := range ids {
		demands = append(demands, enc.Context.TollRegistry[id])
	}
	return demands
}
