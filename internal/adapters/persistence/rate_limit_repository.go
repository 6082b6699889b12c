package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRateLimitRepository implements RateLimitRepository with fixed-window
// counters stored in the database, so limits survive restarts and apply
// across instances.
type GormRateLimitRepository struct {
	db *gorm.DB
}

// NewGormRateLimitRepository creates a new GORM rate limit repository
func NewGormRateLimitRepository(db *gorm.DB) *GormRateLimitRepository {
	return &GormRateLimitRepository{db: db}
}

// Hit increments the (character, method, window) counter atomically and
// returns the resulting count
func (r *GormRateLimitRepository) Hit(ctx context.Context, characterID shared.CharacterID, method string, windowStart time.Time) (int, error) {
	row := &RateLimitModel{
		CharacterID: string(characterID),
		Method:      method,
		WindowStart: windowStart,
		Count:       1,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "character_id"},
			{Name: "method"},
			{Name: "window_start"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count": gorm.Expr("rate_limits.count + 1"),
		}),
	}).Create(row)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to record rate limit hit: %w", result.Error)
	}

	var current RateLimitModel
	result = r.db.WithContext(ctx).
		Where("character_id = ? AND method = ? AND window_start = ?",
			string(characterID), method, windowStart).
		First(&current)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to read rate limit counter: %w", result.Error)
	}
	return current.Count, nil
}

// Reset drops all counters, used by the test reset
func (r *GormRateLimitRepository) Reset(ctx context.Context) error {
	if result := r.db.WithContext(ctx).Where("1 = 1").Delete(&RateLimitModel{}); result.Error != nil {
		return fmt.Errorf("failed to reset rate limits: %w", result.Error)
	}
	return nil
}
