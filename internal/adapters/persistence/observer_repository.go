package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormObserverRepository reads observer channels from sector_contents.
// Callers wanting staleness bounds wrap it in the application-level cache.
type GormObserverRepository struct {
	db *gorm.DB
}

// NewGormObserverRepository creates a new GORM observer repository
func NewGormObserverRepository(db *gorm.DB) *GormObserverRepository {
	return &GormObserverRepository{db: db}
}

// ChannelsForSector retrieves the observer channels watching a sector
func (r *GormObserverRepository) ChannelsForSector(ctx context.Context, sectorID int) ([]string, error) {
	var model SectorContentsModel
	result := r.db.WithContext(ctx).Where("sector_id = ?", sectorID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sector contents: %w", result.Error)
	}
	var channels []string
	if err := fromJSON(model.ObserverChannels, &channels); err != nil {
		return nil, fmt.Errorf("corrupt observer channels for sector %d: %w", sectorID, err)
	}
	return channels, nil
}
