package admin

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Seeder loads the world from JSON fixtures after a wipe
type Seeder interface {
	Seed(ctx context.Context) error
}

// TestResetCommand wipes and re-seeds the world. Admin-only.
type TestResetCommand struct {
	Actor common.Actor
}

// TestResetResponse acknowledges the reset
type TestResetResponse struct {
	Success bool `json:"success"`
}

// TestResetHandler serves test_reset
type TestResetHandler struct {
	maintenance ports.MaintenanceRepository
	seeder      Seeder
	audit       ports.AuditRepository
}

// NewTestResetHandler creates the handler
func NewTestResetHandler(maintenance ports.MaintenanceRepository, seeder Seeder, audit ports.AuditRepository) *TestResetHandler {
	return &TestResetHandler{maintenance: maintenance, seeder: seeder, audit: audit}
}

// Handle executes the reset
func (h *TestResetHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*TestResetCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	if !cmd.Actor.Admin {
		return nil, shared.NewAuthError("test_reset requires admin")
	}

	if err := h.maintenance.TruncateAll(ctx); err != nil {
		return nil, fmt.Errorf("truncate failed: %w", err)
	}
	if err := h.seeder.Seed(ctx); err != nil {
		return nil, fmt.Errorf("re-seed failed: %w", err)
	}

	_ = h.audit.Record(ctx, cmd.Actor.CharacterID, "test_reset", nil)
	common.LoggerFromContext(ctx).Log("INFO", "world reset and re-seeded", map[string]interface{}{
		"actor": string(cmd.Actor.CharacterID),
	})
	return &TestResetResponse{Success: true}, nil
}
