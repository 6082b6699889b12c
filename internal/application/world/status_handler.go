package world

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// MyStatusCommand requests the caller's full self-view
type MyStatusCommand struct {
	Actor common.Actor
}

// MyStatusResponse carries the status payload
type MyStatusResponse struct {
	Success bool           `json:"success"`
	Status  *StatusPayload `json:"status"`
}

// MyStatusHandler serves my_status: it returns the status and mirrors it to
// the caller's event stream as status.snapshot
type MyStatusHandler struct {
	characters ports.CharacterRepository
	ships      ports.ShipRepository
	snapshots  *Snapshotter
	bus        *events.Bus
	clock      shared.Clock
}

// NewMyStatusHandler creates the handler
func NewMyStatusHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	snapshots *Snapshotter,
	bus *events.Bus,
	clock shared.Clock,
) *MyStatusHandler {
	return &MyStatusHandler{
		characters: characters,
		ships:      ships,
		snapshots:  snapshots,
		bus:        bus,
		clock:      clock,
	}
}

// Handle executes the status request
func (h *MyStatusHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*MyStatusCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	pilot, err := h.characters.FindByID(ctx, cmd.Actor.CharacterID)
	if err != nil {
		return nil, err
	}
	pilotShip, err := h.ships.FindByID(ctx, pilot.ShipID)
	if err != nil {
		return nil, err
	}

	status, err := h.snapshots.StatusPayload(ctx, pilot, pilotShip)
	if err != nil {
		return nil, err
	}

	source := event.NewRPCSource(cmd.Actor.Method, cmd.Actor.RequestID, h.clock.Now())
	_ = h.bus.Emit(ctx, events.Emission{
		Type:       "status.snapshot",
		Payload:    map[string]interface{}{"status": status},
		Scope:      event.CharacterScope(pilot.ID),
		Originator: pilot.ID,
		Sector:     pilotShip.Sector,
		Source:     source,
	})

	return &MyStatusResponse{Success: true, Status: status}, nil
}
