package steps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/messages/go/v21"
	"gorm.io/gorm"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/trade"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/internal/infrastructure/database"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

// PortTradingContext holds state for port trading scenarios
type PortTradingContext struct {
	db         *gorm.DB
	handler    *trade.PortTradeHandler
	ports      *persistence.GormPortRepository
	ships      *persistence.GormShipRepository
	characters *persistence.GormCharacterRepository
	pilotID    shared.CharacterID
	shipID     shared.ShipID
	response   *trade.PortTradeResponse
	tradeErr   error
}

func InitializePortTradingScenario(ctx *godog.ScenarioContext) {
	c := &PortTradingContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		return ctx, c.reset()
	})
	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if c.db != nil {
			database.Close(c.db)
		}
		return ctx, nil
	})

	ctx.Step(`^a port in sector (\d+) with code "([^"]*)" stocking:$`, c.aPortInSectorStocking)
	ctx.Step(`^a pilot docked in sector (\d+) with (\d+) credits$`, c.aPilotDockedInSectorWithCredits)
	ctx.Step(`^the pilot's ship carries (\d+) units of "([^"]*)"$`, c.theShipCarriesUnitsOf)
	ctx.Step(`^the pilot buys (\d+) units of "([^"]*)"$`, c.thePilotBuysUnitsOf)
	ctx.Step(`^the pilot sells (\d+) units of "([^"]*)"$`, c.thePilotSellsUnitsOf)
	ctx.Step(`^the trade succeeds at unit price (\d+)$`, c.theTradeSucceedsAtUnitPrice)
	ctx.Step(`^the trade fails$`, c.theTradeFails)
	ctx.Step(`^the ship should hold (\d+) credits$`, c.theShipShouldHoldCredits)
	ctx.Step(`^the port stock of "([^"]*)" should be (\d+)$`, c.thePortStockShouldBe)
}

func (c *PortTradingContext) reset() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return err
	}
	c.db = db
	clock := shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	publisher := &helpers.MockPublisher{}

	c.characters = persistence.NewGormCharacterRepository(db)
	c.ships = persistence.NewGormShipRepository(db)
	c.ports = persistence.NewGormPortRepository(db)
	sectors := persistence.NewGormSectorRepository(db)
	garrisons := persistence.NewGormGarrisonRepository(db)
	salvage := persistence.NewGormSalvageRepository(db)
	encounters := persistence.NewGormEncounterRepository(db)
	knowledge := persistence.NewGormMapKnowledgeRepository(db)
	corporations := persistence.NewGormCorporationRepository(db)
	observers := events.NewObserverCache(persistence.NewGormObserverRepository(db), clock, 30*time.Second)

	visibility := events.NewVisibility(c.characters, garrisons, corporations, observers)
	bus := events.NewBus(persistence.NewGormEventRepository(db), publisher, visibility, clock)
	snapshots := world.NewSnapshotter(sectors, c.ports, c.characters, c.ships, garrisons, salvage, encounters, knowledge)

	c.handler = trade.NewPortTradeHandler(c.characters, c.ships, c.ports, snapshots, bus, clock)
	c.pilotID = "bdd-pilot"
	c.shipID = "bdd-ship"
	c.response = nil
	c.tradeErr = nil
	return nil
}

func (c *PortTradingContext) aPortInSectorStocking(sectorID int, code string, table *godog.Table) error {
	ctx := context.Background()
	if err := persistence.NewGormSectorRepository(c.db).SaveAll(ctx, []*sector.Sector{{ID: sectorID}}); err != nil {
		return err
	}
	port := &sector.Port{
		Sector:   sectorID,
		Code:     code,
		Capacity: map[shared.Commodity]int{},
		Stock:    map[shared.Commodity]int{},
	}
	for _, row := range table.Rows[1:] {
		commodity := shared.Commodity(cellValue(table, row, "commodity"))
		capacity, err := strconv.Atoi(cellValue(table, row, "capacity"))
		if err != nil {
			return err
		}
		stock, err := strconv.Atoi(cellValue(table, row, "stock"))
		if err != nil {
			return err
		}
		port.Capacity[commodity] = capacity
		port.Stock[commodity] = stock
	}
	return c.ports.Save(ctx, port)
}

func (c *PortTradingContext) aPilotDockedInSectorWithCredits(sectorID, credits int) error {
	ctx := context.Background()
	if err := c.db.Create(&persistence.ShipDefinitionModel{
		TypeID: "kestrel_courier", Name: "Kestrel Courier",
		WarpCost: 2, TurnsPerWarp: 1, WarpPowerCapacity: 300,
		ShieldCapacity: 200, FighterCapacity: 400, CargoHolds: 60, Price: 25000,
	}).Error; err != nil {
		return err
	}
	landed := sectorID
	if err := c.ships.Save(ctx, &ship.Ship{
		ID: c.shipID, TypeID: "kestrel_courier",
		Owner: ship.CharacterOwner(c.pilotID), Sector: &landed, Credits: credits,
	}); err != nil {
		return err
	}
	return c.characters.Save(ctx, &character.Character{ID: c.pilotID, Name: "BDD Pilot", ShipID: c.shipID})
}

func (c *PortTradingContext) theShipCarriesUnitsOf(units int, commodity string) error {
	ctx := context.Background()
	pilotShip, err := c.ships.FindByID(ctx, c.shipID)
	if err != nil {
		return err
	}
	if pilotShip.Cargo == nil {
		pilotShip.Cargo = shared.CargoMap{}
	}
	pilotShip.Cargo[shared.Commodity(commodity)] = units
	return c.ships.Save(ctx, pilotShip)
}

func (c *PortTradingContext) thePilotBuysUnitsOf(units int, commodity string) error {
	return c.executeTrade(trade.PlayerBuys, units, commodity)
}

func (c *PortTradingContext) thePilotSellsUnitsOf(units int, commodity string) error {
	return c.executeTrade(trade.PlayerSells, units, commodity)
}

func (c *PortTradingContext) executeTrade(tradeType trade.TradeType, units int, commodity string) error {
	resp, err := c.handler.Handle(context.Background(), &trade.PortTradeCommand{
		Actor: common.Actor{
			CharacterID: c.pilotID,
			RequestID:   "bdd-req",
			Method:      "port_trade",
		},
		Commodity: shared.Commodity(commodity),
		Type:      tradeType,
		Units:     units,
	})
	c.tradeErr = err
	if resp != nil {
		c.response = resp.(*trade.PortTradeResponse)
	}
	return nil
}

func (c *PortTradingContext) theTradeSucceedsAtUnitPrice(price int) error {
	if c.tradeErr != nil {
		return fmt.Errorf("expected trade to succeed, got: %v", c.tradeErr)
	}
	if c.response == nil {
		return fmt.Errorf("no trade response recorded")
	}
	if c.response.UnitPrice != price {
		return fmt.Errorf("expected unit price %d, got %d", price, c.response.UnitPrice)
	}
	return nil
}

func (c *PortTradingContext) theTradeFails() error {
	if c.tradeErr == nil {
		return fmt.Errorf("expected trade to fail but it succeeded")
	}
	return nil
}

func (c *PortTradingContext) theShipShouldHoldCredits(credits int) error {
	pilotShip, err := c.ships.FindByID(context.Background(), c.shipID)
	if err != nil {
		return err
	}
	if pilotShip.Credits != credits {
		return fmt.Errorf("expected %d credits, got %d", credits, pilotShip.Credits)
	}
	return nil
}

func (c *PortTradingContext) thePortStockShouldBe(commodity string, stock int) error {
	pilotShip, err := c.ships.FindByID(context.Background(), c.shipID)
	if err != nil {
		return err
	}
	port, err := c.ports.FindBySector(context.Background(), *pilotShip.Sector)
	if err != nil {
		return err
	}
	if port.Stock[shared.Commodity(commodity)] != stock {
		return fmt.Errorf("expected stock %d, got %d", stock, port.Stock[shared.Commodity(commodity)])
	}
	return nil
}

// cellValue resolves a table cell by header name
func cellValue(table *godog.Table, row *messages.PickleTableRow, columnName string) string {
	for i, header := range table.Rows[0].Cells {
		if header.Value == columnName {
			return row.Cells[i].Value
		}
	}
	return ""
}
