package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormEncounterRepository implements EncounterRepository using GORM. The
// encounter document is stored as JSON with round, deadline and last_updated
// lifted into columns for the tick scan and the optimistic save predicate.
type GormEncounterRepository struct {
	db *gorm.DB
}

// NewGormEncounterRepository creates a new GORM encounter repository
func NewGormEncounterRepository(db *gorm.DB) *GormEncounterRepository {
	return &GormEncounterRepository{db: db}
}

// FindByID retrieves one encounter
func (r *GormEncounterRepository) FindByID(ctx context.Context, id shared.CombatID) (*combat.Encounter, error) {
	var model CombatEncounterModel
	result := r.db.WithContext(ctx).Where("combat_id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("combat", fmt.Sprintf("combat not found: %s", id))
		}
		return nil, fmt.Errorf("failed to find encounter: %w", result.Error)
	}
	return modelToEncounter(&model)
}

// FindActiveBySector retrieves the sector's ongoing encounter; at most one
// exists per sector at a time
func (r *GormEncounterRepository) FindActiveBySector(ctx context.Context, sectorID int) (*combat.Encounter, error) {
	var model CombatEncounterModel
	result := r.db.WithContext(ctx).
		Where("sector_id = ? AND ended = ?", sectorID, false).
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("combat", fmt.Sprintf("no active combat in sector %d", sectorID))
		}
		return nil, fmt.Errorf("failed to find active encounter: %w", result.Error)
	}
	return modelToEncounter(&model)
}

// ListDue retrieves encounters whose round deadline has passed, oldest first
func (r *GormEncounterRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*combat.Encounter, error) {
	var models []CombatEncounterModel
	result := r.db.WithContext(ctx).
		Where("ended = ? AND deadline IS NOT NULL AND deadline <= ?", false, now).
		Order("deadline").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list due encounters: %w", result.Error)
	}
	out := make([]*combat.Encounter, 0, len(models))
	for i := range models {
		enc, err := modelToEncounter(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

// Create inserts a fresh encounter; a duplicate active sector row fails on
// the primary key
func (r *GormEncounterRepository) Create(ctx context.Context, enc *combat.Encounter) error {
	model, err := encounterToModel(enc)
	if err != nil {
		return err
	}
	if result := r.db.WithContext(ctx).Create(model); result.Error != nil {
		return fmt.Errorf("failed to create encounter: %w", result.Error)
	}
	return nil
}

// Save writes the encounter under optimistic concurrency: the update only
// applies while the stored (round, last_updated) pair still matches what the
// caller read. A lost race surfaces as a conflict.
func (r *GormEncounterRepository) Save(ctx context.Context, enc *combat.Encounter, expectedRound int, expectedUpdated time.Time) error {
	model, err := encounterToModel(enc)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&CombatEncounterModel{}).
		Where("combat_id = ? AND round = ? AND last_updated = ?",
			string(enc.CombatID), expectedRound, expectedUpdated).
		Updates(map[string]interface{}{
			"sector_id":    model.SectorID,
			"round":        model.Round,
			"deadline":     model.Deadline,
			"ended":        model.Ended,
			"document":     model.Document,
			"last_updated": model.LastUpdated,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save encounter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("combat state changed concurrently")
	}
	return nil
}

func encounterToModel(enc *combat.Encounter) (*CombatEncounterModel, error) {
	doc, err := json.Marshal(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize encounter %s: %w", enc.CombatID, err)
	}
	return &CombatEncounterModel{
		CombatID:    string(enc.CombatID),
		SectorID:    enc.Sector,
		Round:       enc.Round,
		Deadline:    enc.Deadline,
		Ended:       enc.Ended,
		Document:    string(doc),
		LastUpdated: enc.LastUpdated,
	}, nil
}

func modelToEncounter(model *CombatEncounterModel) (*combat.Encounter, error) {
	var enc combat.Encounter
	if err := json.Unmarshal([]byte(model.Document), &enc); err != nil {
		return nil, fmt.Errorf("corrupt encounter document %s: %w", model.CombatID, err)
	}
	return &enc, nil
}
