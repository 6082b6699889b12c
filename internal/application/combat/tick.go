package combat

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Tick loop defaults; the daemon overrides batch size from configuration
const (
	DefaultTickInterval = time.Second
	DefaultTickBatch    = 20
)

// Monitor is the deadline tick loop. Every interval it resolves encounters
// whose deadline has passed and sweeps expired salvage. Resolution piggybacks
// on the engine's optimistic save, so racing a request handler is safe.
type Monitor struct {
	encounters ports.EncounterRepository
	salvage    ports.SalvageRepository
	engine     *Engine
	clock      shared.Clock
	logger     common.GameLogger
	interval   time.Duration
	batchSize  int
}

// NewMonitor creates the tick loop
func NewMonitor(
	encounters ports.EncounterRepository,
	salvage ports.SalvageRepository,
	engine *Engine,
	clock shared.Clock,
	logger common.GameLogger,
	interval time.Duration,
	batchSize int,
) *Monitor {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultTickBatch
	}
	return &Monitor{
		encounters: encounters,
		salvage:    salvage,
		engine:     engine,
		clock:      clock,
		logger:     logger,
		interval:   interval,
		batchSize:  batchSize,
	}
}

// Run ticks until ctx is cancelled. Cancellation is honored between
// encounters, never mid-resolution.
func (m *Monitor) Run(ctx context.Context) error {
	ctx = common.WithLogger(ctx, m.logger)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := m.Tick(ctx); err != nil {
			m.logger.Log("ERROR", "combat tick failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		m.clock.Sleep(m.interval)
	}
}

// Tick resolves one batch of due encounters and prunes expired salvage.
// Returns how many encounters were resolved.
func (m *Monitor) Tick(ctx context.Context) (int, error) {
	now := m.clock.Now()
	due, err := m.encounters.ListDue(ctx, now, m.batchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, enc := range due {
		select {
		case <-ctx.Done():
			return resolved, ctx.Err()
		default:
		}
		if enc.Ended || !enc.DeadlinePassed(now) {
			continue
		}
		source := event.NewRPCSource("combat_tick", "", now)
		if err := m.engine.ResolveRound(ctx, enc, source); err != nil {
			m.logger.Log("ERROR", "deadline resolution failed", map[string]interface{}{
				"combat_id": string(enc.CombatID),
				"round":     enc.Round,
				"error":     err.Error(),
			})
			continue
		}
		resolved++
	}

	if pruned, err := m.salvage.DeleteExpired(ctx, now); err != nil {
		m.logger.Log("WARN", "salvage sweep failed", map[string]interface{}{
			"error": err.Error(),
		})
	} else if pruned > 0 {
		m.logger.Log("DEBUG", "expired salvage pruned", map[string]interface{}{
			"count": pruned,
		})
	}

	return resolved, nil
}

// TickCommand forces one tick pass, used by tests and ops tooling
type TickCommand struct {
	Actor common.Actor
}

// TickResponse reports the pass
type TickResponse struct {
	Success  bool `json:"success"`
	Resolved int  `json:"resolved"`
}

// TickHandler serves combat_tick
type TickHandler struct {
	monitor *Monitor
}

// NewTickHandler creates the handler
func NewTickHandler(monitor *Monitor) *TickHandler {
	return &TickHandler{monitor: monitor}
}

// Handle executes one tick pass
func (h *TickHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	if _, ok := request.(*TickCommand); !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	resolved, err := h.monitor.Tick(ctx)
	if err != nil {
		return nil, err
	}
	return &TickResponse{Success: true, Resolved: resolved}, nil
}
