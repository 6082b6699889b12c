package trade

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// DumpCargoCommand jettisons cargo into a drifting salvage container
type DumpCargoCommand struct {
	Actor     common.Actor
	Commodity shared.Commodity
	Units     int
}

// DumpCargoResponse reports the created container
type DumpCargoResponse struct {
	Success   bool             `json:"success"`
	SalvageID shared.SalvageID `json:"salvage_id"`
}

// SalvageCollectCommand scoops a salvage container into the ship
type SalvageCollectCommand struct {
	Actor     common.Actor
	SalvageID shared.SalvageID
}

// SalvageCollectResponse reports what was recovered
type SalvageCollectResponse struct {
	Success bool            `json:"success"`
	Cargo   shared.CargoMap `json:"cargo"`
	Credits int             `json:"credits"`
	Scrap   int             `json:"scrap"`
}

// SalvageHandler serves dump_cargo and salvage_collect
type SalvageHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	salvage    ports.SalvageRepository
	snapshots  *world.Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewSalvageHandler creates the handler
func NewSalvageHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	salvage ports.SalvageRepository,
	snapshots *world.Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *SalvageHandler {
	return &SalvageHandler{
		characters: characters,
		ships:      ships,
		salvage:    salvage,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes either salvage command
func (h *SalvageHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	switch cmd := request.(type) {
	case *DumpCargoCommand:
		return h.dump(ctx, cmd)
	case *SalvageCollectCommand:
		return h.collect(ctx, cmd)
	default:
		return nil, fmt.Errorf("invalid request type")
	}
}

func (h *SalvageHandler) dump(ctx context.Context, cmd *DumpCargoCommand) (common.Response, error) {
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
		return nil, shared.NewConflictError("cannot dump cargo in hyperspace")
	}
	if err := pilotShip.RemoveCargo(cmd.Commodity, cmd.Units); err != nil {
		return nil, err
	}
	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}

	sectorID := *pilotShip.Sector
	container := sector.NewSalvage(sectorID, shared.CargoMap{cmd.Commodity: cmd.Units}, 0, 0, h.clock.Now())
	if err := h.salvage.Save(ctx, container); err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "salvage.created",
		Payload: map[string]interface{}{
			"salvage_id": string(container.ID),
			"cargo":      container.Cargo,
			"expires_at": container.ExpiresAt,
		},
		Scope:      event.SectorScope(sectorID, true),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Source:     source,
	})
	emitSectorUpdate(ctx, h.bus, h.snapshots, sectorID, pilot, source)

	return &DumpCargoResponse{Success: true, SalvageID: container.ID}, nil
}

func (h *SalvageHandler) collect(ctx context.Context, cmd *SalvageCollectCommand) (common.Response, error) {
	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}
	container, err := h.salvage.FindByID(ctx, cmd.SalvageID)
	if err != nil {
		return nil, err
	}
	if pilotShip.Sector == nil || *pilotShip.Sector != container.Sector {
		return nil, shared.NewConflictError("salvage is not in your sector")
	}
	if container.Expired(h.clock.Now()) {
		return nil, shared.NewConflictError("salvage has drifted apart")
	}

	def, err := h.ships.FindDefinition(ctx, pilotShip.TypeID)
	if err != nil {
		return nil, err
	}

	// Partial collection: cargo loads until the holds fill, the rest stays
	// in the container for the next scavenger
	collected := shared.CargoMap{}
	for _, commodity := range shared.Commodities {
		units := container.Cargo[commodity]
		if units == 0 {
			continue
		}
		free := def.CargoHolds - pilotShip.Cargo.Total()
		if free <= 0 {
			break
		}
		if units > free {
			units = free
		}
		if err := pilotShip.AddCargo(def, commodity, units); err != nil {
			return nil, err
		}
		container.Cargo[commodity] -= units
		if container.Cargo[commodity] == 0 {
			delete(container.Cargo, commodity)
		}
		collected[commodity] = units
	}

	credits := container.Credits
	scrap := container.Scrap
	pilotShip.Credits += credits + scrap
	container.Credits = 0
	container.Scrap = 0

	if err := h.ships.Save(ctx, pilotShip); err != nil {
		return nil, err
	}

	sectorID := container.Sector
	fully := container.Empty()
	if fully {
		container.Claimed = true
		if err := h.salvage.Delete(ctx, container.ID); err != nil {
			return nil, err
		}
	} else {
		if err := h.salvage.Save(ctx, container); err != nil {
			return nil, err
		}
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	shipID := pilotShip.ID
	_ = h.bus.Emit(ctx, events.Emission{
		Type: "salvage.collected",
		Payload: map[string]interface{}{
			"salvage_id": string(container.ID),
			"by":         string(pilot.ID),
			"by_name":    pilot.Name,
			"cargo":      collected,
			"credits":    credits,
			"scrap":      scrap,
			"depleted":   fully,
		},
		Scope:      event.SectorScope(sectorID, true),
		Originator: pilot.ID,
		Sector:     &sectorID,
		Ship:       &shipID,
		Source:     source,
	})
	emitSectorUpdate(ctx, h.bus, h.snapshots, sectorID, pilot, source)

	return &SalvageCollectResponse{Success: true, Cargo: collected, Credits: credits, Scrap: scrap}, nil
}
