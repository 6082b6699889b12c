package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAuditRepository implements AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GORM audit repository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Record appends one audit row
func (r *GormAuditRepository) Record(ctx context.Context, actor shared.CharacterID, action string, detail map[string]interface{}) error {
	row := &AuditModel{
		ActorID:   string(actor),
		Action:    action,
		Detail:    toJSON(detail),
		Timestamp: time.Now().UTC(),
	}
	if result := r.db.WithContext(ctx).Create(row); result.Error != nil {
		return fmt.Errorf("failed to record audit entry: %w", result.Error)
	}
	return nil
}
