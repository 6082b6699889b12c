package movement

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// ArrivalService lands ships: the scheduled continuation after a move, the
// join binding, and the startup resumer all converge here
type ArrivalService struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	sectors    ports.SectorRepository
	portsRepo  ports.PortRepository
	knowledge  ports.MapKnowledgeRepository
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
	engager    AutoEngager
	logger     common.GameLogger
}

// NewArrivalService creates the arrival service. engager may be nil in tests.
func NewArrivalService(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	sectors ports.SectorRepository,
	portsRepo ports.PortRepository,
	knowledge ports.MapKnowledgeRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
	logger common.GameLogger,
) *ArrivalService {
	return &ArrivalService{
		characters: characters,
		ships:      ships,
		sectors:    sectors,
		portsRepo:  portsRepo,
		knowledge:  knowledge,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
		logger:     logger,
	}
}

// SetEngager wires the combat auto-initiation hook after construction
// (breaks the construction cycle between movement and combat)
func (s *ArrivalService) SetEngager(engager AutoEngager) {
	s.engager = engager
}

// ScheduleArrival arms the best-effort in-process continuation
func (s *ArrivalService) ScheduleArrival(shipID shared.ShipID, delay time.Duration, source event.Source) {
	go func() {
		s.clock.Sleep(delay)
		ctx := common.WithLogger(context.Background(), s.logger)
		if err := s.CompleteArrival(ctx, shipID, source); err != nil {
			s.logger.Log("ERROR", "arrival continuation failed", map[string]interface{}{
				"ship_id": string(shipID),
				"error":   err.Error(),
			})
		}
	}()
}

// CompleteArrival lands an in-transit ship at its destination and emits the
// arrival events. Idempotent: a ship no longer in transit is a no-op.
func (s *ArrivalService) CompleteArrival(ctx context.Context, shipID shared.ShipID, source event.Source) error {
	pilotShip, err := s.ships.FindByID(ctx, shipID)
	if err != nil {
		return err
	}
	if !pilotShip.InTransit || pilotShip.TransitDest == nil {
		return nil
	}
	destination := *pilotShip.TransitDest

	pilotShip.CompleteTransit()
	if err := s.ships.Save(ctx, pilotShip); err != nil {
		return err
	}

	pilot, err := s.pilotForShip(ctx, pilotShip)
	if err != nil {
		return err
	}

	firstVisit, err := s.RecordArrival(ctx, pilot, pilotShip, destination, source)
	if err != nil {
		return err
	}

	snapshot, err := s.snapshots.SectorSnapshot(ctx, destination, pilot.ID)
	if err != nil {
		return err
	}

	shipRef := pilotShip.ID
	if err := s.bus.Emit(ctx, events.Emission{
		Type: "movement.complete",
		Payload: map[string]interface{}{
			"sector":      snapshot,
			"first_visit": firstVisit,
			"warp_power":  pilotShip.WarpPower,
		},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     &destination,
		Ship:       &shipRef,
		Source:     source,
	}); err != nil {
		return err
	}

	knowledge, err := s.knowledge.Find(ctx, pilot.ID)
	if err == nil && knowledge != nil {
		_ = s.bus.Emit(ctx, events.Emission{
			Type:       "map.local",
			Payload:    LocalMapPayload(knowledge, destination),
			Scope:      event.CharacterScope(pilot.ID),
			Originator: pilot.ID,
			Sector:     &destination,
			Source:     source,
		})
	}

	_ = s.bus.Emit(ctx, events.Emission{
		Type: "character.moved",
		Payload: map[string]interface{}{
			"character_id": string(pilot.ID),
			"name":         pilot.Name,
			"movement":     "arrive",
			"sector":       destination,
		},
		Scope:      event.SectorScope(destination, false),
		Originator: pilot.ID,
		Sector:     &destination,
		Source:     source,
	})

	if s.engager != nil {
		if err := s.engager.EngageOnArrival(ctx, pilot.ID, destination, source); err != nil {
			common.LoggerFromContext(ctx).Log("WARN", "auto-engage on arrival failed", map[string]interface{}{
				"character_id": string(pilot.ID),
				"sector":       destination,
				"error":        err.Error(),
			})
		}
	}

	return nil
}

// RecordArrival upserts the pilot's map knowledge for the sector and
// returns whether this was a first visit
func (s *ArrivalService) RecordArrival(ctx context.Context, pilot *character.Character, pilotShip *ship.Ship, sectorID int, source event.Source) (bool, error) {
	sec, err := s.sectors.FindByID(ctx, sectorID)
	if err != nil {
		return false, err
	}

	knowledge, err := s.knowledge.Find(ctx, pilot.ID)
	if err != nil || knowledge == nil {
		knowledge = character.NewMapKnowledge(pilot.ID)
	}

	var observation *character.PortObservation
	if port, err := s.portsRepo.FindBySector(ctx, sectorID); err == nil && port != nil {
		observation = &character.PortObservation{Code: port.Code, ObservedAt: s.clock.Now()}
	}

	firstVisit := knowledge.RecordVisit(sectorID, sec.AdjacentIDs(), sec.X, sec.Y, observation, s.clock.Now())
	if err := s.knowledge.Save(ctx, knowledge); err != nil {
		return false, fmt.Errorf("failed to save map knowledge: %w", err)
	}
	return firstVisit, nil
}

// ResumeOverdue re-arrives every ship whose transit eta has passed. Run at
// daemon startup so crashes never strand pilots in hyperspace.
func (s *ArrivalService) ResumeOverdue(ctx context.Context) (int, error) {
	overdue, err := s.ships.ListOverdueTransits(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, pilotShip := range overdue {
		source := event.NewRPCSource("move", "", s.clock.Now())
		if err := s.CompleteArrival(ctx, pilotShip.ID, source); err != nil {
			s.logger.Log("ERROR", "failed to resume overdue transit", map[string]interface{}{
				"ship_id": string(pilotShip.ID),
				"error":   err.Error(),
			})
			continue
		}
		resumed++
	}
	return resumed, nil
}

func (s *ArrivalService) pilotForShip(ctx context.Context, pilotShip *ship.Ship) (*character.Character, error) {
	if pilot, err := s.characters.FindByShipID(ctx, pilotShip.ID); err == nil {
		return pilot, nil
	}
	if pilotShip.Owner.Kind == ship.OwnedByCharacter {
		return s.characters.FindByID(ctx, pilotShip.Owner.CharacterID)
	}
	return nil, shared.NewNotFoundError("character", fmt.Sprintf("no pilot for ship %s", pilotShip.ID))
}
