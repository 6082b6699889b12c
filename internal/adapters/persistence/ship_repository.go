package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"gorm.io/gorm"
)

// GormShipRepository implements ShipRepository using GORM
type GormShipRepository struct {
	db *gorm.DB
}

// NewGormShipRepository creates a new GORM ship repository
func NewGormShipRepository(db *gorm.DB) *GormShipRepository {
	return &GormShipRepository{db: db}
}

// FindByID retrieves a ship instance by id
func (r *GormShipRepository) FindByID(ctx context.Context, id shared.ShipID) (*ship.Ship, error) {
	var model ShipInstanceModel
	result := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("ship", fmt.Sprintf("ship not found: %s", id))
		}
		return nil, fmt.Errorf("failed to find ship: %w", result.Error)
	}
	return modelToShip(&model), nil
}

// FindDefinition retrieves a ship type definition
func (r *GormShipRepository) FindDefinition(ctx context.Context, typeID string) (*ship.Definition, error) {
	var model ShipDefinitionModel
	result := r.db.WithContext(ctx).Where("type_id = ?", typeID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, shared.NewNotFoundError("ship_definition", fmt.Sprintf("ship type not found: %s", typeID))
		}
		return nil, fmt.Errorf("failed to find ship definition: %w", result.Error)
	}
	return modelToDefinition(&model), nil
}

// ListDefinitions retrieves every ship type
func (r *GormShipRepository) ListDefinitions(ctx context.Context) ([]*ship.Definition, error) {
	var models []ShipDefinitionModel
	if result := r.db.WithContext(ctx).Order("type_id").Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list ship definitions: %w", result.Error)
	}
	out := make([]*ship.Definition, 0, len(models))
	for i := range models {
		out = append(out, modelToDefinition(&models[i]))
	}
	return out, nil
}

// ListUnownedInSector retrieves claimable hulls landed in a sector
func (r *GormShipRepository) ListUnownedInSector(ctx context.Context, sectorID int) ([]*ship.Ship, error) {
	var models []ShipInstanceModel
	result := r.db.WithContext(ctx).
		Where("owner_kind = ? AND current_sector = ? AND in_transit = ?", string(ship.Unowned), sectorID, false).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list unowned ships: %w", result.Error)
	}
	return modelsToShips(models), nil
}

// ListByOwnerCharacter retrieves every hull a character owns
func (r *GormShipRepository) ListByOwnerCharacter(ctx context.Context, id shared.CharacterID) ([]*ship.Ship, error) {
	var models []ShipInstanceModel
	result := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_character_id = ?", string(ship.OwnedByCharacter), string(id)).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list owned ships: %w", result.Error)
	}
	return modelsToShips(models), nil
}

// ListOverdueTransits retrieves ships stuck in hyperspace past their eta
func (r *GormShipRepository) ListOverdueTransits(ctx context.Context, now time.Time) ([]*ship.Ship, error) {
	var models []ShipInstanceModel
	result := r.db.WithContext(ctx).
		Where("in_transit = ? AND transit_eta <= ?", true, now).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list overdue transits: %w", result.Error)
	}
	return modelsToShips(models), nil
}

// Save upserts a ship instance
func (r *GormShipRepository) Save(ctx context.Context, s *ship.Ship) error {
	model := shipToModel(s)
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save ship: %w", result.Error)
	}
	return nil
}

// Delete removes a ship instance
func (r *GormShipRepository) Delete(ctx context.Context, id shared.ShipID) error {
	if result := r.db.WithContext(ctx).Delete(&ShipInstanceModel{}, "id = ?", string(id)); result.Error != nil {
		return fmt.Errorf("failed to delete ship: %w", result.Error)
	}
	return nil
}

// BeginTransit conditionally flips the ship into hyperspace. The WHERE
// clause pins the expected pre-state, so a racing move on the same ship
// matches zero rows and fails with a conflict.
func (r *GormShipRepository) BeginTransit(ctx context.Context, id shared.ShipID, origin, dest int, eta time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ShipInstanceModel{}).
		Where("id = ? AND in_transit = ? AND current_sector = ?", string(id), false, origin).
		Updates(map[string]interface{}{
			"in_transit":     true,
			"current_sector": nil,
			"transit_dest":   dest,
			"transit_eta":    eta,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to begin transit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConflictError("ship already left the sector")
	}
	return nil
}

func modelToShip(model *ShipInstanceModel) *ship.Ship {
	cargo := shared.CargoMap{}
	_ = fromJSON(model.Cargo, &cargo)

	owner := ship.NoOwner()
	switch ship.OwnerKind(model.OwnerKind) {
	case ship.OwnedByCharacter:
		if model.OwnerCharacterID != nil {
			owner = ship.CharacterOwner(shared.CharacterID(*model.OwnerCharacterID))
		}
	case ship.OwnedByCorporation:
		if model.OwnerCorpID != nil {
			owner = ship.CorporationOwner(shared.CorporationID(*model.OwnerCorpID))
		}
	}

	return &ship.Ship{
		ID:          shared.ShipID(model.ID),
		TypeID:      model.TypeID,
		Name:        model.Name,
		Owner:       owner,
		Sector:      model.CurrentSector,
		InTransit:   model.InTransit,
		TransitDest: model.TransitDest,
		TransitETA:  model.TransitETA,
		Credits:     model.Credits,
		Cargo:       cargo,
		WarpPower:   model.WarpPower,
		Shields:     model.Shields,
		Fighters:    model.Fighters,
		IsEscapePod: model.IsEscapePod,
	}
}

func shipToModel(s *ship.Ship) *ShipInstanceModel {
	var ownerChar, ownerCorp *string
	switch s.Owner.Kind {
	case ship.OwnedByCharacter:
		id := string(s.Owner.CharacterID)
		ownerChar = &id
	case ship.OwnedByCorporation:
		id := string(s.Owner.CorporationID)
		ownerCorp = &id
	}
	return &ShipInstanceModel{
		ID:               string(s.ID),
		TypeID:           s.TypeID,
		Name:             s.Name,
		OwnerKind:        string(s.Owner.Kind),
		OwnerCharacterID: ownerChar,
		OwnerCorpID:      ownerCorp,
		CurrentSector:    s.Sector,
		InTransit:        s.InTransit,
		TransitDest:      s.TransitDest,
		TransitETA:       s.TransitETA,
		Credits:          s.Credits,
		Cargo:            toJSON(s.Cargo),
		WarpPower:        s.WarpPower,
		Shields:          s.Shields,
		Fighters:         s.Fighters,
		IsEscapePod:      s.IsEscapePod,
	}
}

func modelToDefinition(model *ShipDefinitionModel) *ship.Definition {
	return &ship.Definition{
		TypeID:            model.TypeID,
		Name:              model.Name,
		WarpCost:          model.WarpCost,
		TurnsPerWarp:      model.TurnsPerWarp,
		WarpPowerCapacity: model.WarpPowerCapacity,
		ShieldCapacity:    model.ShieldCapacity,
		FighterCapacity:   model.FighterCapacity,
		CargoHolds:        model.CargoHolds,
		Price:             model.Price,
		IsEscapePod:       model.IsEscapePod,
	}
}

func modelsToShips(models []ShipInstanceModel) []*ship.Ship {
	out := make([]*ship.Ship, 0, len(models))
	for i := range models {
		out = append(out, modelToShip(&models[i]))
	}
	return out
}
