package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormMapKnowledgeRepository implements MapKnowledgeRepository using GORM.
// Each pilot's knowledge is one row carrying the sector map as a JSON
// document; the whole document is read and rewritten on every visit.
type GormMapKnowledgeRepository struct {
	db *gorm.DB
}

// NewGormMapKnowledgeRepository creates a new GORM map knowledge repository
func NewGormMapKnowledgeRepository(db *gorm.DB) *GormMapKnowledgeRepository {
	return &GormMapKnowledgeRepository{db: db}
}

// Find retrieves a pilot's knowledge document, an empty one when unseeded
func (r *GormMapKnowledgeRepository) Find(ctx context.Context, id shared.CharacterID) (*character.MapKnowledge, error) {
	var model MapKnowledgeModel
	result := r.db.WithContext(ctx).Where("character_id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return character.NewMapKnowledge(id), nil
		}
		return nil, fmt.Errorf("failed to find map knowledge: %w", result.Error)
	}

	sectors := map[int]character.SectorKnowledge{}
	if err := fromJSON(model.Sectors, &sectors); err != nil {
		return nil, fmt.Errorf("corrupt map knowledge for %s: %w", id, err)
	}
	return &character.MapKnowledge{
		CharacterID:   shared.CharacterID(model.CharacterID),
		CurrentSector: model.CurrentSector,
		TotalVisited:  model.TotalVisited,
		Sectors:       sectors,
	}, nil
}

// Save upserts a pilot's knowledge document
func (r *GormMapKnowledgeRepository) Save(ctx context.Context, k *character.MapKnowledge) error {
	model := &MapKnowledgeModel{
		CharacterID:   string(k.CharacterID),
		CurrentSector: k.CurrentSector,
		TotalVisited:  k.TotalVisited,
		Sectors:       toJSON(k.Sectors),
	}
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save map knowledge: %w", result.Error)
	}
	return nil
}
