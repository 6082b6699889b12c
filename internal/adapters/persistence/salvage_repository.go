package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSalvageRepository implements SalvageRepository using GORM
type GormSalvageRepository struct {
	db *gorm.DB
}

// NewGormSalvageRepository creates a new GORM salvage repository
func NewGormSalvageRepository(db *gorm.DB) *GormSalvageRepository {
	return &GormSalvageRepository{db: db}
}

// ListBySector retrieves the containers drifting in a sector
func (r *GormSalvageRepository) ListBySector(ctx context.Context, sectorID int) ([]*sector.Salvage, error) {
	var models []SalvageModel
	result := r.db.WithContext(ctx).Where("sector_id = ?", sectorID).Order("created_at").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list salvage: %w", result.Error)
	}
	out := make([]*sector.Salvage, 0, len(models))
	for i := range models {
		out = append(out, modelToSalvage(&models[i]))
	}
	return out, nil
}

// FindByID retrieves one container
func (r *GormSalvageRepository) FindByID(ctx context.Context, id shared.SalvageID) (*sector.Salvage, error) {
	var model SalvageModel
	result := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("salvage", fmt.Sprintf("salvage not found: %s", id))
		}
		return nil, fmt.Errorf("failed to find salvage: %w", result.Error)
	}
	return modelToSalvage(&model), nil
}

// Save upserts a container
func (r *GormSalvageRepository) Save(ctx context.Context, s *sector.Salvage) error {
	model := &SalvageModel{
		ID:        string(s.ID),
		SectorID:  s.Sector,
		Cargo:     toJSON(s.Cargo),
		Scrap:     s.Scrap,
		Credits:   s.Credits,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		Claimed:   s.Claimed,
	}
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save salvage: %w", result.Error)
	}
	return nil
}

// Delete removes a collected container
func (r *GormSalvageRepository) Delete(ctx context.Context, id shared.SalvageID) error {
	if result := r.db.WithContext(ctx).Delete(&SalvageModel{}, "id = ?", string(id)); result.Error != nil {
		return fmt.Errorf("failed to delete salvage: %w", result.Error)
	}
	return nil
}

// DeleteExpired prunes containers past their TTL and reports how many went
func (r *GormSalvageRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&SalvageModel{}, "expires_at <= ?", now)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune expired salvage: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func modelToSalvage(model *SalvageModel) *sector.Salvage {
	cargo := shared.CargoMap{}
	_ = fromJSON(model.Cargo, &cargo)
	return &sector.Salvage{
		ID:        shared.SalvageID(model.ID),
		Sector:    model.SectorID,
		Cargo:     cargo,
		Scrap:     model.Scrap,
		Credits:   model.Credits,
		CreatedAt: model.CreatedAt,
		ExpiresAt: model.ExpiresAt,
		Claimed:   model.Claimed,
	}
}
