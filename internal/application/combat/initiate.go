package combat

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Initiator creates encounters and folds late arrivals into running ones.
// It also implements the movement package's AutoEngager so hostile garrisons
// pull arriving pilots straight into combat.
type Initiator struct {
	characters   ports.CharacterRepository
	ships        ports.ShipRepository
	garrisons    ports.GarrisonRepository
	corporations ports.CorporationRepository
	encounters   ports.EncounterRepository
	engine       *Engine
	bus          *events.Bus
	clock        shared.Clock
}

// NewInitiator creates the initiation service
func NewInitiator(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	garrisons ports.GarrisonRepository,
	corporations ports.CorporationRepository,
	encounters ports.EncounterRepository,
	engine *Engine,
	bus *events.Bus,
	clock shared.Clock,
) *Initiator {
	return &Initiator{
		characters:   characters,
		ships:        ships,
		garrisons:    garrisons,
		corporations: corporations,
		encounters:   encounters,
		engine:       engine,
		bus:          bus,
		clock:        clock,
	}
}

// Initiate creates a new encounter in the actor's sector, or adds the actor
// to the sector's running encounter. Returns the encounter and whether it
// was freshly created.
func (i *Initiator) Initiate(ctx context.Context, actorID shared.CharacterID, source event.Source) (*combat.Encounter, bool, error) {
	actor, err := i.characters.FindByID(ctx, actorID)
	if err != nil {
		return nil, false, err
	}
	actorShip, err := i.ships.FindByID(ctx, actor.ShipID)
	if err != nil {
		return nil, false, err
	}
	if actorShip.InTransit || actorShip.Sector == nil {
		return nil, false, shared.NewConflictError("cannot initiate combat from hyperspace")
	}
	sectorID := *actorShip.Sector

	existing, err := i.encounters.FindActiveBySector(ctx, sectorID)
	if err != nil && !shared.IsNotFound(err) {
		return nil, false, err
	}
	if existing != nil && !existing.Ended {
		if err := i.joinExisting(ctx, existing, actor, source); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	enc := combat.NewEncounter(sectorID, actor.ID, i.clock.Now(), i.engine.RoundTimeout())
	if err := i.addSectorParticipants(ctx, enc, sectorID); err != nil {
		return nil, false, err
	}
	if len(enc.Participants) < 2 {
		return nil, false, shared.NewConflictError("combat requires at least two participants")
	}
	if !enc.HasParticipant(combat.CombatantID(actor.ID)) {
		return nil, false, shared.NewConflictError("initiator is not present in the sector")
	}
	if err := i.encounters.Create(ctx, enc); err != nil {
		return nil, false, err
	}

	i.emitWaiting(ctx, enc, source)
	return enc, true, nil
}

// joinExisting folds a late arrival into the running encounter
func (i *Initiator) joinExisting(ctx context.Context, enc *combat.Encounter, actor *character.Character, source event.Source) error {
	if enc.HasParticipant(combat.CombatantID(actor.ID)) {
		return nil
	}
	actorShip, err := i.ships.FindByID(ctx, actor.ShipID)
	if err != nil {
		return err
	}
	def, err := i.ships.FindDefinition(ctx, actorShip.TypeID)
	if err != nil {
		return err
	}
	expectedRound := enc.Round
	expectedUpdated := enc.LastUpdated
	enc.AddParticipant(characterCombatant(actor, actorShip, def))
	enc.LastUpdated = i.clock.Now()
	if err := i.encounters.Save(ctx, enc, expectedRound, expectedUpdated); err != nil {
		return err
	}

	sectorID := enc.Sector
	_ = i.bus.Emit(ctx, events.Emission{
		Type: "combat.round_waiting",
		Payload: map[string]interface{}{
			"combat_id":    string(enc.CombatID),
			"round":        enc.Round,
			"deadline":     enc.Deadline,
			"participants": combatantSummaries(enc),
			"joined":       string(actor.ID),
		},
		Scope:      event.CharacterScope(actor.ID),
		Originator: actor.ID,
		Sector:     &sectorID,
		Source:     source,
	})
	return nil
}

// addSectorParticipants enumerates the sector's landed pilots and garrisons
func (i *Initiator) addSectorParticipants(ctx context.Context, enc *combat.Encounter, sectorID int) error {
	pilots, err := i.characters.ListInSector(ctx, sectorID)
	if err != nil {
		return err
	}
	for _, pilot := range pilots {
		pilotShip, err := i.ships.FindByID(ctx, pilot.ShipID)
		if err != nil {
			continue // dangling ship reference, skip rather than abort
		}
		if pilotShip.InTransit || pilotShip.Sector == nil || *pilotShip.Sector != sectorID {
			continue
		}
		def, err := i.ships.FindDefinition(ctx, pilotShip.TypeID)
		if err != nil {
			return err
		}
		enc.AddParticipant(characterCombatant(pilot, pilotShip, def))
	}

	stacks, err := i.garrisons.ListBySector(ctx, sectorID)
	if err != nil {
		return err
	}
	for _, stack := range stacks {
		if stack.Fighters <= 0 {
			continue
		}
		corp, err := i.ownerCorporation(ctx, stack.Owner)
		if err != nil {
			return err
		}
		enc.AddParticipant(garrisonCombatant(stack, corp))
		enc.Context.GarrisonSources = append(enc.Context.GarrisonSources, combat.GarrisonSource{
			Sector: stack.Sector,
			Owner:  stack.Owner,
		})
	}
	return nil
}

func (i *Initiator) ownerCorporation(ctx context.Context, owner shared.CharacterID) (*shared.CorporationID, error) {
	pilot, err := i.characters.FindByID(ctx, owner)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return pilot.CorporationID, nil
}

func (i *Initiator) emitWaiting(ctx context.Context, enc *combat.Encounter, source event.Source) {
	sectorID := enc.Sector
	payload := map[string]interface{}{
		"combat_id":    string(enc.CombatID),
		"round":        enc.Round,
		"deadline":     enc.Deadline,
		"participants": combatantSummaries(enc),
	}
	for _, p := range enc.Characters() {
		_ = i.bus.Emit(ctx, events.Emission{
			Type:       "combat.round_waiting",
			Payload:    payload,
			Scope:      event.CharacterScope(p.OwnerID),
			Originator: p.OwnerID,
			Sector:     &sectorID,
			Source:     source,
		})
	}
	_ = i.bus.Emit(ctx, events.Emission{
		Type:       "combat.round_waiting",
		Payload:    payload,
		Scope:      event.SectorScope(sectorID, false),
		Originator: enc.Context.Initiator,
		Sector:     &sectorID,
		Source:     source,
	})
}

// EngageOnArrival auto-initiates combat when the arriving pilot faces a
// hostile offensive or toll garrison, or a combat already runs in the sector
func (i *Initiator) EngageOnArrival(ctx context.Context, characterID shared.CharacterID, sectorID int, source event.Source) error {
	existing, err := i.encounters.FindActiveBySector(ctx, sectorID)
	if err != nil && !shared.IsNotFound(err) {
		return err
	}
	if existing != nil && !existing.Ended {
		actor, err := i.characters.FindByID(ctx, characterID)
		if err != nil {
			return err
		}
		return i.joinExisting(ctx, existing, actor, source)
	}

	hostile, err := i.hostileGarrisonPresent(ctx, characterID, sectorID)
	if err != nil {
		return err
	}
	if !hostile {
		return nil
	}
	_, _, err = i.Initiate(ctx, characterID, source)
	if err != nil && shared.IsConflict(err) {
		// Not enough participants (e.g. pod arrivals): no encounter
		common.LoggerFromContext(ctx).Log("DEBUG", "auto-engage skipped", map[string]interface{}{
			"character_id": string(characterID),
			"sector":       sectorID,
			"reason":       err.Error(),
		})
		return nil
	}
	return err
}

// hostileGarrisonPresent reports whether the sector holds an offensive or
// toll garrison not aligned with the pilot
func (i *Initiator) hostileGarrisonPresent(ctx context.Context, characterID shared.CharacterID, sectorID int) (bool, error) {
	pilot, err := i.characters.FindByID(ctx, characterID)
	if err != nil {
		return false, err
	}
	stacks, err := i.garrisons.ListBySector(ctx, sectorID)
	if err != nil {
		return false, err
	}
	for _, stack := range stacks {
		if stack.Fighters <= 0 || stack.Mode == garrison.Defensive {
			continue
		}
		if stack.Owner == pilot.ID {
			continue
		}
		owner, err := i.characters.FindByID(ctx, stack.Owner)
		if err == nil && owner.SameCorporation(pilot) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// InitiateCommand starts or joins combat in the actor's sector
type InitiateCommand struct {
	Actor common.Actor
}

// InitiateResponse reports the encounter the actor is now part of
type InitiateResponse struct {
	Success  bool            `json:"success"`
	CombatID shared.CombatID `json:"combat_id"`
	Round    int             `json:"round"`
	Created  bool            `json:"created"`
}

// InitiateHandler serves combat_initiate
type InitiateHandler struct {
	initiator *Initiator
	clock     shared.Clock
}

// NewInitiateHandler creates the handler
func NewInitiateHandler(initiator *Initiator, clock shared.Clock) *InitiateHandler {
	return &InitiateHandler{initiator: initiator, clock: clock}
}

// Handle executes combat initiation
func (h *InitiateHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*InitiateCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	enc, created, err := h.initiator.Initiate(ctx, cmd.Actor.CharacterID, source)
	if err != nil {
		return nil, err
	}
	return &InitiateResponse{
		Success:  true,
		CombatID: enc.CombatID,
		Round:    enc.Round,
		Created:  created,
	}, nil
}
