package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormGarrisonRepository implements GarrisonRepository using GORM
type GormGarrisonRepository struct {
	db *gorm.DB
}

// NewGormGarrisonRepository creates a new GORM garrison repository
func NewGormGarrisonRepository(db *gorm.DB) *GormGarrisonRepository {
	return &GormGarrisonRepository{db: db}
}

// ListBySector retrieves every stack deployed in a sector
func (r *GormGarrisonRepository) ListBySector(ctx context.Context, sectorID int) ([]*garrison.Garrison, error) {
	var models []GarrisonModel
	result := r.db.WithContext(ctx).Where("sector_id = ?", sectorID).Order("owner_character_id").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list garrisons: %w", result.Error)
	}
	return modelsToGarrisons(models), nil
}

// Find retrieves one stack by its (sector, owner) key, nil when absent
func (r *GormGarrisonRepository) Find(ctx context.Context, sectorID int, owner shared.CharacterID) (*garrison.Garrison, error) {
	var model GarrisonModel
	result := r.db.WithContext(ctx).
		Where("sector_id = ? AND owner_character_id = ?", sectorID, string(owner)).
		First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find garrison: %w", result.Error)
	}
	return modelToGarrison(&model), nil
}

// ListByOwner retrieves every stack a character has deployed
func (r *GormGarrisonRepository) ListByOwner(ctx context.Context, owner shared.CharacterID) ([]*garrison.Garrison, error) {
	var models []GarrisonModel
	result := r.db.WithContext(ctx).Where("owner_character_id = ?", string(owner)).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list garrisons by owner: %w", result.Error)
	}
	return modelsToGarrisons(models), nil
}

// Save upserts a stack
func (r *GormGarrisonRepository) Save(ctx context.Context, g *garrison.Garrison) error {
	model := &GarrisonModel{
		SectorID:    g.Sector,
		OwnerID:     string(g.Owner),
		Fighters:    g.Fighters,
		Mode:        string(g.Mode),
		TollAmount:  g.TollAmount,
		TollBalance: g.TollBalance,
		DeployedAt:  g.DeployedAt,
	}
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save garrison: %w", result.Error)
	}
	return nil
}

// Delete removes a stack
func (r *GormGarrisonRepository) Delete(ctx context.Context, sectorID int, owner shared.CharacterID) error {
	result := r.db.WithContext(ctx).
		Delete(&GarrisonModel{}, "sector_id = ? AND owner_character_id = ?", sectorID, string(owner))
	if result.Error != nil {
		return fmt.Errorf("failed to delete garrison: %w", result.Error)
	}
	return nil
}

func modelToGarrison(model *GarrisonModel) *garrison.Garrison {
	return &garrison.Garrison{
		Sector:      model.SectorID,
		Owner:       shared.CharacterID(model.OwnerID),
		Fighters:    model.Fighters,
		Mode:        garrison.Mode(model.Mode),
		TollAmount:  model.TollAmount,
		TollBalance: model.TollBalance,
		DeployedAt:  model.DeployedAt,
	}
}

func modelsToGarrisons(models []GarrisonModel) []*garrison.Garrison {
	out := make([]*garrison.Garrison, 0, len(models))
	for i := range models {
		out = append(out, modelToGarrison(&models[i]))
	}
	return out
}
