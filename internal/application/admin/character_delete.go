package admin

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/application/common"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// CharacterDeleteCommand removes a character and everything they own.
// Admin-only; the deletion cascades through ships, garrisons, and an
// emptied corporation.
type CharacterDeleteCommand struct {
	Actor    common.Actor
	TargetID shared.CharacterID
}

// CharacterDeleteResponse acknowledges the cascade
type CharacterDeleteResponse struct {
	Success      bool `json:"success"`
	ShipsDeleted int  `json:"ships_deleted"`
}

// CharacterDeleteHandler serves character_delete
type CharacterDeleteHandler struct {
	characters   ports.CharacterRepository
	ships        ports.ShipRepository
	garrisons    ports.GarrisonRepository
	corporations ports.CorporationRepository
	audit        ports.AuditRepository
}

// NewCharacterDeleteHandler creates the handler
func NewCharacterDeleteHandler(
	characters ports.CharacterRepository,
	ships ports.ShipRepository,
	garrisons ports.GarrisonRepository,
	corporations ports.CorporationRepository,
	audit ports.AuditRepository,
) *CharacterDeleteHandler {
	return &CharacterDeleteHandler{
		characters:   characters,
		ships:        ships,
		garrisons:    garrisons,
		corporations: corporations,
		audit:        audit,
	}
}

// Handle executes the cascade
func (h *CharacterDeleteHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*CharacterDeleteCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}
	if !cmd.Actor.Admin {
		return nil, shared.NewAuthError("character_delete requires admin")
	}

	target, err := h.characters.FindByID(ctx, cmd.TargetID)
	if err != nil {
		return nil, err
	}

	owned, err := h.ships.ListByOwnerCharacter(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	for _, owned := range owned {
		if err := h.ships.Delete(ctx, owned.ID); err != nil {
			return nil, err
		}
	}

	stacks, err := h.garrisons.ListByOwner(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	for _, stack := range stacks {
		if err := h.garrisons.Delete(ctx, stack.Sector, stack.Owner); err != nil {
			return nil, err
		}
	}

	if err := h.characters.Delete(ctx, target.ID); err != nil {
		return nil, err
	}

	// Emptied corporations do not outlive their last member
	if target.CorporationID != nil {
		remaining, err := h.corporations.MemberCount(ctx, *target.CorporationID)
		if err == nil && remaining == 0 {
			if err := h.corporations.Delete(ctx, *target.CorporationID); err != nil {
				return nil, err
			}
		}
	}

	_ = h.audit.Record(ctx, cmd.Actor.CharacterID, "character_delete", map[string]interface{}{
		"target":        string(target.ID),
		"target_name":   target.Name,
		"ships_deleted": len(owned),
	})
	common.LoggerFromContext(ctx).Log("INFO", "character deleted", map[string]interface{}{
		"target": string(target.ID),
		"actor":  string(cmd.Actor.CharacterID),
	})

	return &CharacterDeleteResponse{Success: true, ShipsDeleted: len(owned)}, nil
}
