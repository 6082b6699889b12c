package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
	"gorm.io/gorm"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/movement"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/internal/infrastructure/database"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

// MovementContext holds state for hyperspace transit scenarios
type MovementContext struct {
	db        *gorm.DB
	handler   *movement.MoveHandler
	arrivals  *movement.ArrivalService
	ships     *persistence.GormShipRepository
	knowledge *persistence.GormMapKnowledgeRepository
	clock     *shared.MockClock
	pilotID   shared.CharacterID
	shipID    shared.ShipID
	moveErr   error
	resp      *movement.MoveResponse
}

func InitializeMovementScenario(ctx *godog.ScenarioContext) {
	c := &MovementContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, c.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if c.db != nil {
			database.Close(c.db)
		}
		return ctx, nil
	})

	ctx.Step(`^sectors (\d+) and (\d+) joined by a warp$`, c.sectorsJoinedByAWarp)
	ctx.Step(`^an isolated sector (\d+)$`, c.anIsolatedSector)
	ctx.Step(`^a pilot landed in sector (\d+) with (\d+) warp power$`, c.aPilotLandedInSectorWithWarpPower)
	ctx.Step(`^the pilot moves to sector (\d+)$`, c.thePilotMovesToSector)
	ctx.Step(`^the move is accepted$`, c.theMoveIsAccepted)
	ctx.Step(`^the move is rejected$`, c.theMoveIsRejected)
	ctx.Step(`^after arrival the ship is landed in sector (\d+)$`, c.afterArrivalTheShipIsLandedIn)
	ctx.Step(`^the ship's warp power is (\d+)$`, c.theShipsWarpPowerIs)
	ctx.Step(`^the pilot's map records a visit to sector (\d+)$`, c.theMapRecordsAVisitTo)
}

func (c *MovementContext) reset() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return err
	}
	c.db = db
	c.clock = shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	publisher := &helpers.MockPublisher{}

	characters := persistence.NewGormCharacterRepository(db)
	c.ships = persistence.NewGormShipRepository(db)
	sectors := persistence.NewGormSectorRepository(db)
	portsRepo := persistence.NewGormPortRepository(db)
	garrisons := persistence.NewGormGarrisonRepository(db)
	salvage := persistence.NewGormSalvageRepository(db)
	encounters := persistence.NewGormEncounterRepository(db)
	c.knowledge = persistence.NewGormMapKnowledgeRepository(db)
	corporations := persistence.NewGormCorporationRepository(db)
	observers := events.NewObserverCache(persistence.NewGormObserverRepository(db), c.clock, 30*time.Second)

	visibility := events.NewVisibility(characters, garrisons, corporations, observers)
	bus := events.NewBus(persistence.NewGormEventRepository(db), publisher, visibility, c.clock)
	snapshots := world.NewSnapshotter(sectors, portsRepo, characters, c.ships, garrisons, salvage, encounters, c.knowledge)

	logger := common.LoggerFromContext(context.Background())
	c.arrivals = movement.NewArrivalService(characters, c.ships, sectors, portsRepo, c.knowledge, snapshots, bus, c.clock, logger)
	c.handler = movement.NewMoveHandler(characters, c.ships, sectors, c.arrivals, bus, c.clock, 5*time.Second, 1.0)

	c.pilotID = "bdd-pilot"
	c.shipID = "bdd-ship"
	c.moveErr = nil
	c.resp = nil

	return c.db.Create(&persistence.ShipDefinitionModel{
		TypeID: "kestrel_courier", Name: "Kestrel Courier",
		WarpCost: 2, TurnsPerWarp: 1, WarpPowerCapacity: 300,
		ShieldCapacity: 200, FighterCapacity: 400, CargoHolds: 60, Price: 25000,
	}).Error
}

func (c *MovementContext) sectorsJoinedByAWarp(a, b int) error {
	repo := persistence.NewGormSectorRepository(c.db)
	return repo.SaveAll(context.Background(), []*sector.Sector{
		{ID: a, Edges: []sector.WarpEdge{{To: b, TwoWay: true}}},
		{ID: b, Edges: []sector.WarpEdge{{To: a, TwoWay: true}}},
	})
}

func (c *MovementContext) anIsolatedSector(id int) error {
	repo := persistence.NewGormSectorRepository(c.db)
	return repo.SaveAll(context.Background(), []*sector.Sector{{ID: id}})
}

func (c *MovementContext) aPilotLandedInSectorWithWarpPower(sectorID, warpPower int) error {
	ctx := context.Background()
	landed := sectorID
	if err := c.ships.Save(ctx, &ship.Ship{
		ID: c.shipID, TypeID: "kestrel_courier",
		Owner: ship.CharacterOwner(c.pilotID), Sector: &landed, WarpPower: warpPower,
	}); err != nil {
		return err
	}
	characters := persistence.NewGormCharacterRepository(c.db)
	return characters.Save(ctx, &character.Character{ID: c.pilotID, Name: "BDD Pilot", ShipID: c.shipID})
}

func (c *MovementContext) thePilotMovesToSector(toSector int) error {
	resp, err := c.handler.Handle(context.Background(), &movement.MoveCommand{
		Actor: common.Actor{
			CharacterID: c.pilotID,
			RequestID:   "bdd-req",
			Method:      "move",
		},
		ToSector: toSector,
	})
	c.moveErr = err
	if resp != nil {
		c.resp = resp.(*movement.MoveResponse)
	}
	return nil
}

func (c *MovementContext) theMoveIsAccepted() error {
	if c.moveErr != nil {
		return fmt.Errorf("expected move to be accepted, got: %v", c.moveErr)
	}
	if c.resp == nil || !c.resp.Success {
		return fmt.Errorf("move response missing or unsuccessful")
	}
	return nil
}

func (c *MovementContext) theMoveIsRejected() error {
	if c.moveErr == nil {
		return fmt.Errorf("expected move to be rejected but it was accepted")
	}
	return nil
}

func (c *MovementContext) afterArrivalTheShipIsLandedIn(sectorID int) error {
	ctx := context.Background()
	// The scheduled continuation may already have fired; CompleteArrival is
	// idempotent so landing explicitly keeps the scenario deterministic.
	c.clock.Advance(time.Minute)
	if err := c.arrivals.CompleteArrival(ctx, c.shipID, event.NewRPCSource("move", "bdd-req", c.clock.Now())); err != nil {
		return err
	}
	pilotShip, err := c.ships.FindByID(ctx, c.shipID)
	if err != nil {
		return err
	}
	if pilotShip.InTransit {
		return fmt.Errorf("ship is still in transit")
	}
	if pilotShip.Sector == nil || *pilotShip.Sector != sectorID {
		return fmt.Errorf("ship is not in sector %d", sectorID)
	}
	return nil
}

func (c *MovementContext) theShipsWarpPowerIs(warpPower int) error {
	pilotShip, err := c.ships.FindByID(context.Background(), c.shipID)
	if err != nil {
		return err
	}
	if pilotShip.WarpPower != warpPower {
		return fmt.Errorf("expected warp power %d, got %d", warpPower, pilotShip.WarpPower)
	}
	return nil
}

func (c *MovementContext) theMapRecordsAVisitTo(sectorID int) error {
	knowledge, err := c.knowledge.Find(context.Background(), c.pilotID)
	if err != nil {
		return err
	}
	if knowledge == nil || !knowledge.Visited(sectorID) {
		return fmt.Errorf("sector %d is not in the pilot's map knowledge", sectorID)
	}
	return nil
}
