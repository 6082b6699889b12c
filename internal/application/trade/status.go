package trade

import (
	"context"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// emitStatusUpdate refreshes the pilot's self-view after a trade mutation.
// Best-effort: the trade already succeeded.
func emitStatusUpdate(ctx context.Context, bus *events.Bus, snapshots *world.Snapshotter, pilot *character.Character, pilotShip *ship.Ship, source event.Source) {
	status, err := snapshots.StatusPayload(ctx, pilot, pilotShip)
	if err != nil {
		common.LoggerFromContext(ctx).Log("WARN", "status payload failed after trade", map[string]interface{}{
			"character_id": string(pilot.ID),
			"error":        err.Error(),
		})
		return
	}
	_ = bus.Emit(ctx, events.Emission{
		Type:       "status.update",
		Payload:    map[string]interface{}{"status": status},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     pilotShip.Sector,
		Source:     source,
	})
}

// emitSectorUpdate pushes a fresh sector snapshot to co-located pilots after
// a mutation that changes what they can see
func emitSectorUpdate(ctx context.Context, bus *events.Bus, snapshots *world.Snapshotter, sectorID int, originator *character.Character, source event.Source) {
	snapshot, err := snapshots.SectorSnapshot(ctx, sectorID, "")
	if err != nil {
		common.LoggerFromContext(ctx).Log("WARN", "sector snapshot failed", map[string]interface{}{
			"sector": sectorID,
			"error":  err.Error(),
		})
		return
	}
	_ = bus.Emit(ctx, events.Emission{
		Type:       "sector.update",
		Payload:    map[string]interface{}{"sector": snapshot},
		Scope:      event.SectorScope(sectorID, true),
		Originator: originator.ID,
		Sector:     &sectorID,
		Source:     source,
	})
}
