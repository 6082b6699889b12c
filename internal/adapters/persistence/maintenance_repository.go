package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// GormMaintenanceRepository backs destructive admin operations
type GormMaintenanceRepository struct {
	db *gorm.DB
}

// NewGormMaintenanceRepository creates a new GORM maintenance repository
func NewGormMaintenanceRepository(db *gorm.DB) *GormMaintenanceRepository {
	return &GormMaintenanceRepository{db: db}
}

// TruncateAll empties every table inside one transaction, leaving the schema
// in place for reseeding
func (r *GormMaintenanceRepository) TruncateAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range AllModels() {
			if result := tx.Where("1 = 1").Delete(model); result.Error != nil {
				return fmt.Errorf("failed to truncate table: %w", result.Error)
			}
		}
		return nil
	})
}
