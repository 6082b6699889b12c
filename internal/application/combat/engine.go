package combat

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// ScrapDivisor converts a destroyed hull's price into salvage scrap
const ScrapDivisor = 100

// SalvageCreditsFraction is the share of a character-owned hull's credits
// that drops to salvage on destruction; the rest stays with the pilot's pod
const SalvageCreditsFraction = 0.5

// Engine drives round resolution: it runs the resolver, writes participant
// state back to the world, finalizes ended encounters, and emits the round
// events. One Engine is shared by the action handler and the tick loop.
type Engine struct {
	characters   ports.CharacterRepository
	ships        ports.ShipRepository
	garrisons    ports.GarrisonRepository
	salvage      ports.SalvageRepository
	encounters   ports.EncounterRepository
	snapshots    *world.Snapshotter
	bus          *events.Bus
	clock        shared.Clock
	roundTimeout time.Duration
}

// NewEngine creates the resolution engine
func NewEngine(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	garrisons ports.GarrisonRepository,
	salvage ports.SalvageRepository,
	encounters ports.EncounterRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
	roundTimeout time.Duration,
) *Engine {
	if roundTimeout <= 0 {
		roundTimeout = combat.DefaultRoundTimeout
	}
	return &Engine{
		characters:   characters,
		ships:        ships,
		garrisons:    garrisons,
		salvage:      salvage,
		encounters:   encounters,
		snapshots:    snapshots,
		bus:          bus,
		clock:        clock,
		roundTimeout: roundTimeout,
	}
}

// RoundTimeout is the configured per-round deadline
func (e *Engine) RoundTimeout() time.Duration {
	return e.roundTimeout
}

// ResolveRound runs one resolver pass over enc and persists everything.
// The encounter save uses optimistic concurrency; on conflict the caller's
// work is retried once against a fresh read, and dropped if the round has
// already advanced elsewhere.
func (e *Engine) ResolveRound(ctx context.Context, enc *combat.Encounter, source event.Source) error {
	return e.resolveRound(ctx, enc, source, true)
}

func (e *Engine) resolveRound(ctx context.Context, enc *combat.Encounter, source event.Source, retry bool) error {
	expectedRound := enc.Round
	expectedUpdated := enc.LastUpdated

	outcome := combat.Resolve(enc, e.clock.Now(), e.roundTimeout)

	if err := e.encounters.Save(ctx, enc, expectedRound, expectedUpdated); err != nil {
		if !shared.IsConflict(err) || !retry {
			return err
		}
		fresh, readErr := e.encounters.FindByID(ctx, enc.CombatID)
		if readErr != nil {
			return readErr
		}
		if fresh.Round != expectedRound || fresh.Ended {
			// Someone else resolved this round; our work is redundant
			return nil
		}
		return e.resolveRound(ctx, fresh, source, false)
	}

	if err := e.applyOutcome(ctx, enc, outcome, source); err != nil {
		return err
	}
	return nil
}

// applyOutcome writes participant state back to the world and emits the
// round events. Runs after the encounter row is durably saved.
func (e *Engine) applyOutcome(ctx context.Context, enc *combat.Encounter, outcome *combat.RoundOutcome, source event.Source) error {
	logger := common.LoggerFromContext(ctx)

	if err := e.syncParticipants(ctx, enc, outcome); err != nil {
		return err
	}

	recipients := e.roundRecipients(enc, outcome)
	sectorID := enc.Sector
	resolvedPayload := map[string]interface{}{
		"combat_id":    string(enc.CombatID),
		"round":        outcome.Round,
		"log":          outcome.Log,
		"participants": combatantSummaries(enc),
		"fled":         outcome.Fled,
		"destroyed":    outcome.Destroyed,
	}
	for _, id := range recipients {
		if err := e.bus.Emit(ctx, events.Emission{
			Type:       "combat.round_resolved",
			Payload:    resolvedPayload,
			Scope:      event.CharacterScope(id),
			Originator: id,
			Sector:     &sectorID,
			Source:     source,
		}); err != nil {
			return err
		}
	}
	if err := e.bus.Emit(ctx, events.Emission{
		Type:       "combat.round_resolved",
		Payload:    resolvedPayload,
		Scope:      event.SectorScope(sectorID, false),
		Originator: enc.Context.Initiator,
		Sector:     &sectorID,
		Source:     source,
	}); err != nil {
		return err
	}

	if outcome.Ended {
		if err := e.finalize(ctx, enc, outcome, recipients, source); err != nil {
			logger.Log("ERROR", "combat finalization failed", map[string]interface{}{
				"combat_id": string(enc.CombatID),
				"error":     err.Error(),
			})
			return err
		}
		return nil
	}

	waitingPayload := map[string]interface{}{
		"combat_id":    string(enc.CombatID),
		"round":        enc.Round,
		"deadline":     enc.Deadline,
		"participants": combatantSummaries(enc),
	}
	for _, id := range recipients {
		if err := e.bus.Emit(ctx, events.Emission{
			Type:       "combat.round_waiting",
			Payload:    waitingPayload,
			Scope:      event.CharacterScope(id),
			Originator: id,
			Sector:     &sectorID,
			Source:     source,
		}); err != nil {
			return err
		}
	}
	return nil
}

// syncParticipants flushes resolver mutations to ships and garrison rows,
// and teleports successful fleers to their destinations
func (e *Engine) syncParticipants(ctx context.Context, enc *combat.Encounter, outcome *combat.RoundOutcome) error {
	for _, p := range enc.Characters() {
		if err := e.syncCharacter(ctx, p, nil); err != nil {
			return err
		}
	}
	for id, destination := range outcome.Fled {
		dest := destination
		pilot, err := e.characters.FindByID(ctx, shared.CharacterID(id))
		if err != nil {
			return err
		}
		pilotShip, err := e.ships.FindByID(ctx, pilot.ShipID)
		if err != nil {
			return err
		}
		pilotShip.Sector = &dest
		if err := e.ships.Save(ctx, pilotShip); err != nil {
			return err
		}
	}
	for _, p := range enc.Garrisons() {
		sectorID, owner, ok := parseGarrisonCombatantID(p.ID)
		if !ok {
			continue
		}
		row, err := e.garrisons.Find(ctx, sectorID, owner)
		if err != nil || row == nil {
			continue
		}
		if p.Fighters <= 0 {
			if err := e.garrisons.Delete(ctx, sectorID, owner); err != nil {
				return err
			}
			continue
		}
		row.Fighters = p.Fighters
		if err := e.garrisons.Save(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) syncCharacter(ctx context.Context, p *combat.CombatantState, sectorOverride *int) error {
	pilot, err := e.characters.FindByID(ctx, p.OwnerID)
	if err != nil {
		return err
	}
	pilotShip, err := e.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return err
	}
	pilotShip.Fighters = p.Fighters
	pilotShip.Shields = p.Shields
	if sectorOverride != nil {
		pilotShip.Sector = sectorOverride
	}
	return e.ships.Save(ctx, pilotShip)
}

// roundRecipients is every character that saw this round: survivors plus
// this round's fleers and destroyed, id-sorted for stable emission order
func (e *Engine) roundRecipients(enc *combat.Encounter, outcome *combat.RoundOutcome) []shared.CharacterID {
	seen := map[shared.CharacterID]bool{}
	out := []shared.CharacterID{}
	add := func(id shared.CharacterID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, p := range enc.Characters() {
		add(p.OwnerID)
	}
	for id := range outcome.Fled {
		add(shared.CharacterID(id))
	}
	for _, id := range outcome.Destroyed {
		add(shared.CharacterID(id))
	}
	// Garrison owners follow their stacks from anywhere
	for _, p := range enc.Garrisons() {
		add(p.OwnerID)
	}
	sortCharacterIDs(out)
	return out
}

// finalize handles an ended encounter: salvage for destroyed hulls, escape
// pod reissue, personalized combat.ended, and a sector refresh
func (e *Engine) finalize(ctx context.Context, enc *combat.Encounter, outcome *combat.RoundOutcome, recipients []shared.CharacterID, source event.Source) error {
	sectorID := enc.Sector

	for _, id := range outcome.Destroyed {
		if err := e.scuttle(ctx, shared.CharacterID(id), sectorID, source); err != nil {
			return err
		}
	}

	endState := ""
	if enc.EndState != nil {
		endState = string(*enc.EndState)
	}
	for _, id := range recipients {
		if err := e.bus.Emit(ctx, events.Emission{
			Type: "combat.ended",
			Payload: map[string]interface{}{
				"combat_id":      string(enc.CombatID),
				"end_state":      endState,
				"rounds":         len(enc.Logs),
				"fighter_losses": lossesFor(enc, combat.CombatantID(id)),
				"shield_losses":  shieldLossFor(enc, combat.CombatantID(id)),
				"destroyed":      outcome.Destroyed,
				"fled":           outcome.Fled,
			},
			Scope:      event.CharacterScope(id),
			Originator: id,
			Sector:     &sectorID,
			Source:     source,
		}); err != nil {
			return err
		}
	}

	snapshot, err := e.snapshots.SectorSnapshot(ctx, sectorID, "")
	if err != nil {
		return err
	}
	return e.bus.Emit(ctx, events.Emission{
		Type:       "sector.update",
		Payload:    map[string]interface{}{"sector": snapshot},
		Scope:      event.SectorScope(sectorID, true),
		Originator: enc.Context.Initiator,
		Sector:     &sectorID,
		Source:     source,
	})
}

// scuttle converts a destroyed pilot's hull into salvage and reissues an
// escape pod. Pods themselves are never scuttled. Character-owned hulls
// drop half their credits; corporation-owned and unowned hulls drop all.
func (e *Engine) scuttle(ctx context.Context, pilotID shared.CharacterID, sectorID int, source event.Source) error {
	pilot, err := e.characters.FindByID(ctx, pilotID)
	if err != nil {
		return err
	}
	destroyed, err := e.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return err
	}
	if destroyed.IsEscapePod {
		return nil
	}
	def, err := e.ships.FindDefinition(ctx, destroyed.TypeID)
	if err != nil {
		return err
	}

	droppedCredits := destroyed.Credits
	keptCredits := 0
	if destroyed.Owner.Kind == ship.OwnedByCharacter {
		droppedCredits = int(float64(destroyed.Credits) * SalvageCreditsFraction)
		keptCredits = destroyed.Credits - droppedCredits
	}
	scrap := def.Price / ScrapDivisor

	container := sector.NewSalvage(sectorID, destroyed.Cargo, scrap, droppedCredits, e.clock.Now())
	if err := e.salvage.Save(ctx, container); err != nil {
		return err
	}

	pod, err := e.reissuePod(ctx, pilot, sectorID, keptCredits)
	if err != nil {
		return err
	}
	if err := e.ships.Delete(ctx, destroyed.ID); err != nil {
		return err
	}

	return e.bus.Emit(ctx, events.Emission{
		Type: "ship.destroyed",
		Payload: map[string]interface{}{
			"ship_id":    string(destroyed.ID),
			"ship_type":  destroyed.TypeID,
			"pilot":      string(pilot.ID),
			"pilot_name": pilot.Name,
			"salvage_id": string(container.ID),
			"pod_id":     string(pod.ID),
		},
		Scope:      event.SectorScope(sectorID, true),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Source:     source,
	})
}

// reissuePod puts the destroyed pilot into a fresh escape pod in the sector
func (e *Engine) reissuePod(ctx context.Context, pilot *character.Character, sectorID, credits int) (*ship.Ship, error) {
	defs, err := e.ships.ListDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var podDef *ship.Definition
	for _, def := range defs {
		if def.IsEscapePod {
			podDef = def
			break
		}
	}
	if podDef == nil {
		return nil, shared.NewFatalError("no escape pod definition seeded")
	}

	podSector := sectorID
	pod := &ship.Ship{
		ID:          shared.NewShipID(),
		TypeID:      podDef.TypeID,
		Name:        fmt.Sprintf("%s's Pod", pilot.Name),
		Owner:       ship.CharacterOwner(pilot.ID),
		Sector:      &podSector,
		Credits:     credits,
		Cargo:       shared.CargoMap{},
		WarpPower:   podDef.WarpPowerCapacity,
		Shields:     podDef.ShieldCapacity,
		Fighters:    0,
		IsEscapePod: true,
	}
	if err := e.ships.Save(ctx, pod); err != nil {
		return nil, err
	}
	pilot.ShipID = pod.ID
	if err := e.characters.Save(ctx, pilot); err != nil {
		return nil, err
	}
	return pod, nil
}

func sortCharacterIDs(ids []shared.CharacterID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// lossesFor sums a combatant's fighter losses across the encounter's logs
func lossesFor(enc *combat.Encounter, id combat.CombatantID) int {
	total := 0
	for _, log := range enc.Logs {
		total += log.DefensiveLosses[id] + log.OffensiveLosses[id]
	}
	return total
}

// shieldLossFor sums a combatant's shield losses across the encounter's logs
func shieldLossFor(enc *combat.Encounter, id combat.CombatantID) int {
	total := 0
	for _, log := range enc.Logs {
		total += log.ShieldLoss[id]
	}
	return total
}
