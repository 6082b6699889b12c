package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCharacterRepository implements CharacterRepository using GORM
type GormCharacterRepository struct {
	db *gorm.DB
}

// NewGormCharacterRepository creates a new GORM character repository
func NewGormCharacterRepository(db *gorm.DB) *GormCharacterRepository {
	return &GormCharacterRepository{db: db}
}

// FindByID retrieves a character by id
func (r *GormCharacterRepository) FindByID(ctx context.Context, id shared.CharacterID) (*character.Character, error) {
	var model CharacterModel
	result := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("character", fmt.Sprintf("character not found: %s", id))
		}
		return nil, fmt.Errorf("failed to find character: %w", result.Error)
	}
	return modelToCharacter(&model), nil
}

// FindByName retrieves a character by display name, case-insensitively
func (r *GormCharacterRepository) FindByName(ctx context.Context, name string) (*character.Character, error) {
	var model CharacterModel
	result := r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("character", fmt.Sprintf("character not found: %s", name))
		}
		return nil, fmt.Errorf("failed to find character by name: %w", result.Error)
	}
	return modelToCharacter(&model), nil
}

// FindByShipID retrieves the pilot currently bound to a ship
func (r *GormCharacterRepository) FindByShipID(ctx context.Context, id shared.ShipID) (*character.Character, error) {
	var model CharacterModel
	result := r.db.WithContext(ctx).Where("ship_id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("character", fmt.Sprintf("no pilot for ship: %s", id))
		}
		return nil, fmt.Errorf("failed to find pilot by ship: %w", result.Error)
	}
	return modelToCharacter(&model), nil
}

// ListInSector retrieves characters whose ship is landed in the sector
func (r *GormCharacterRepository) ListInSector(ctx context.Context, sectorID int) ([]*character.Character, error) {
	var models []CharacterModel
	result := r.db.WithContext(ctx).
		Joins("JOIN ship_instances ON ship_instances.id = characters.ship_id").
		Where("ship_instances.current_sector = ? AND ship_instances.in_transit = ?", sectorID, false).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list characters in sector %d: %w", sectorID, result.Error)
	}
	return modelsToCharacters(models), nil
}

// ListByCorporation retrieves all characters of a corporation
func (r *GormCharacterRepository) ListByCorporation(ctx context.Context, id shared.CorporationID) ([]*character.Character, error) {
	var models []CharacterModel
	result := r.db.WithContext(ctx).Where("corporation_id = ?", string(id)).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list corporation members: %w", result.Error)
	}
	return modelsToCharacters(models), nil
}

// Save upserts a character
func (r *GormCharacterRepository) Save(ctx context.Context, c *character.Character) error {
	model := characterToModel(c)
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save character: %w", result.Error)
	}
	return nil
}

// Delete removes a character row
func (r *GormCharacterRepository) Delete(ctx context.Context, id shared.CharacterID) error {
	if result := r.db.WithContext(ctx).Delete(&CharacterModel{}, "id = ?", string(id)); result.Error != nil {
		return fmt.Errorf("failed to delete character: %w", result.Error)
	}
	return nil
}

func modelToCharacter(model *CharacterModel) *character.Character {
	var metadata map[string]interface{}
	_ = fromJSON(model.Metadata, &metadata)

	var corpID *shared.CorporationID
	if model.CorporationID != nil {
		id := shared.CorporationID(*model.CorporationID)
		corpID = &id
	}
	lastActive := time.Time{}
	if model.LastActive != nil {
		lastActive = *model.LastActive
	}
	return &character.Character{
		ID:            shared.CharacterID(model.ID),
		Name:          model.Name,
		ShipID:        shared.ShipID(model.ShipID),
		Bank:          model.Bank,
		CorporationID: corpID,
		LastActive:    lastActive,
		IsNPC:         model.IsNPC,
		Metadata:      metadata,
	}
}

func characterToModel(c *character.Character) *CharacterModel {
	var corpID *string
	if c.CorporationID != nil {
		id := string(*c.CorporationID)
		corpID = &id
	}
	var lastActive *time.Time
	if !c.LastActive.IsZero() {
		t := c.LastActive
		lastActive = &t
	}
	return &CharacterModel{
		ID:            string(c.ID),
		Name:          c.Name,
		ShipID:        string(c.ShipID),
		Bank:          c.Bank,
		CorporationID: corpID,
		LastActive:    lastActive,
		IsNPC:         c.IsNPC,
		Metadata:      toJSON(c.Metadata),
	}
}

func modelsToCharacters(models []CharacterModel) []*character.Character {
	out := make([]*character.Character, 0, len(models))
	for i := range models {
		out = append(out, modelToCharacter(&models[i]))
	}
	return out
}
