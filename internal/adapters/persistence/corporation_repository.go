package persistence

import (
	"context"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/corporation"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCorporationRepository implements CorporationRepository using GORM
type GormCorporationRepository struct {
	db *gorm.DB
}

// NewGormCorporationRepository creates a new GORM corporation repository
func NewGormCorporationRepository(db *gorm.DB) *GormCorporationRepository {
	return &GormCorporationRepository{db: db}
}

// FindByID retrieves a corporation
func (r *GormCorporationRepository) FindByID(ctx context.Context, id shared.CorporationID) (*corporation.Corporation, error) {
	var model CorporationModel
	result := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("corporation", fmt.Sprintf("corporation not found: %s", id))
		}
		return nil, fmt.Errorf("failed to find corporation: %w", result.Error)
	}
	return &corporation.Corporation{
		ID:        shared.CorporationID(model.ID),
		Name:      model.Name,
		CreatedAt: model.CreatedAt,
	}, nil
}

// Members retrieves a corporation's active members
func (r *GormCorporationRepository) Members(ctx context.Context, id shared.CorporationID) ([]*corporation.Member, error) {
	var models []CorporationMemberModel
	result := r.db.WithContext(ctx).
		Where("corporation_id = ? AND left_at IS NULL", string(id)).
		Order("joined_at").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list corporation members: %w", result.Error)
	}
	out := make([]*corporation.Member, 0, len(models))
	for i := range models {
		out = append(out, &corporation.Member{
			CorporationID: shared.CorporationID(models[i].CorporationID),
			CharacterID:   shared.CharacterID(models[i].CharacterID),
			JoinedAt:      models[i].JoinedAt,
		})
	}
	return out, nil
}

// IsMember reports whether the character is an active member
func (r *GormCorporationRepository) IsMember(ctx context.Context, id shared.CorporationID, characterID shared.CharacterID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&CorporationMemberModel{}).
		Where("corporation_id = ? AND character_id = ? AND left_at IS NULL", string(id), string(characterID)).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to check corporation membership: %w", result.Error)
	}
	return count > 0, nil
}

// MemberCount counts a corporation's active members
func (r *GormCorporationRepository) MemberCount(ctx context.Context, id shared.CorporationID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&CorporationMemberModel{}).
		Where("corporation_id = ? AND left_at IS NULL", string(id)).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count corporation members: %w", result.Error)
	}
	return count, nil
}

// Delete removes a corporation with its membership and ship link rows
func (r *GormCorporationRepository) Delete(ctx context.Context, id shared.CorporationID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Delete(&CorporationMemberModel{}, "corporation_id = ?", string(id)); result.Error != nil {
			return fmt.Errorf("failed to delete corporation members: %w", result.Error)
		}
		if result := tx.Delete(&CorporationShipModel{}, "corporation_id = ?", string(id)); result.Error != nil {
			return fmt.Errorf("failed to delete corporation ships: %w", result.Error)
		}
		if result := tx.Delete(&CorporationModel{}, "id = ?", string(id)); result.Error != nil {
			return fmt.Errorf("failed to delete corporation: %w", result.Error)
		}
		return nil
	})
}
