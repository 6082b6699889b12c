package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSectorRepository implements SectorRepository over universe_structure
type GormSectorRepository struct {
	db *gorm.DB
}

// NewGormSectorRepository creates a new GORM sector repository
func NewGormSectorRepository(db *gorm.DB) *GormSectorRepository {
	return &GormSectorRepository{db: db}
}

// FindByID retrieves one sector with its warp edges
func (r *GormSectorRepository) FindByID(ctx context.Context, sectorID int) (*sector.Sector, error) {
	var model UniverseStructureModel
	result := r.db.WithContext(ctx).Where("sector_id = ?", sectorID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("sector", fmt.Sprintf("sector not found: %d", sectorID))
		}
		return nil, fmt.Errorf("failed to find sector: %w", result.Error)
	}
	return modelToSector(&model)
}

// SaveAll replaces the persisted warp graph, used by seeding
func (r *GormSectorRepository) SaveAll(ctx context.Context, sectors []*sector.Sector) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, s := range sectors {
			model := &UniverseStructureModel{
				SectorID: s.ID,
				X:        s.X,
				Y:        s.Y,
				Region:   s.Region,
				Edges:    toJSON(s.Edges),
			}
			if result := tx.Save(model); result.Error != nil {
				return fmt.Errorf("failed to save sector %d: %w", s.ID, result.Error)
			}
		}
		return nil
	})
}

func modelToSector(model *UniverseStructureModel) (*sector.Sector, error) {
	var edges []sector.WarpEdge
	if err := fromJSON(model.Edges, &edges); err != nil {
		return nil, fmt.Errorf("corrupt edge list for sector %d: %w", model.SectorID, err)
	}
	return &sector.Sector{
		ID:     model.SectorID,
		X:      model.X,
		Y:      model.Y,
		Region: model.Region,
		Edges:  edges,
	}, nil
}
