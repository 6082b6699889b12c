package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPortRepository implements PortRepository using GORM
type GormPortRepository struct {
	db *gorm.DB
}

// NewGormPortRepository creates a new GORM port repository
func NewGormPortRepository(db *gorm.DB) *GormPortRepository {
	return &GormPortRepository{db: db}
}

// FindBySector retrieves the sector's port, or nil when it has none
func (r *GormPortRepository) FindBySector(ctx context.Context, sectorID int) (*sector.Port, error) {
	var model PortModel
	result := r.db.WithContext(ctx).Where("sector_id = ?", sectorID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find port: %w", result.Error)
	}
	return modelToPort(&model), nil
}

// Save upserts a port
func (r *GormPortRepository) Save(ctx context.Context, p *sector.Port) error {
	model := &PortModel{
		SectorID: p.Sector,
		Code:     p.Code,
		Capacity: toJSON(p.Capacity),
		Stock:    toJSON(p.Stock),
	}
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save port: %w", result.Error)
	}
	return nil
}

func modelToPort(model *PortModel) *sector.Port {
	capacity := map[shared.Commodity]int{}
	stock := map[shared.Commodity]int{}
	_ = fromJSON(model.Capacity, &capacity)
	_ = fromJSON(model.Stock, &stock)
	return &sector.Port{
		Sector:   model.SectorID,
		Code:     model.Code,
		Capacity: capacity,
		Stock:    stock,
	}
}
