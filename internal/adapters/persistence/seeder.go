package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/corporation"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"gorm.io/gorm"
)

// Fixture is the JSON document the seeder consumes. The same format backs
// the seed command and test_reset.
type Fixture struct {
	Sectors          []*sector.Sector           `json:"sectors"`
	Ports            []*sector.Port             `json:"ports"`
	ShipDefinitions  []*ship.Definition         `json:"ship_definitions"`
	Ships            []*ship.Ship               `json:"ships"`
	Characters       []*character.Character     `json:"characters"`
	Corporations     []*corporation.Corporation `json:"corporations"`
	Members          []*corporation.Member      `json:"members"`
	Config           map[string]string          `json:"config"`
	ObserverChannels map[string][]string        `json:"observer_channels"` // sector id → channels
}

// FixtureSeeder loads a universe fixture file into the store
type FixtureSeeder struct {
	db   *gorm.DB
	path string
}

// NewFixtureSeeder creates a seeder reading the given fixture path
func NewFixtureSeeder(db *gorm.DB, path string) *FixtureSeeder {
	return &FixtureSeeder{db: db, path: path}
}

// Seed inserts the fixture contents inside one transaction
func (s *FixtureSeeder) Seed(ctx context.Context) error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", s.path, err)
	}
	var fixture Fixture
	if err := json.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("malformed fixture %s: %w", s.path, err)
	}
	return s.SeedFixture(ctx, &fixture)
}

// SeedFixture inserts an already-parsed fixture
func (s *FixtureSeeder) SeedFixture(ctx context.Context, fixture *Fixture) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sec := range fixture.Sectors {
			model := &UniverseStructureModel{
				SectorID: sec.ID,
				X:        sec.X,
				Y:        sec.Y,
				Region:   sec.Region,
				Edges:    toJSON(sec.Edges),
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed sector %d: %w", sec.ID, err)
			}
		}
		for _, p := range fixture.Ports {
			model := &PortModel{
				SectorID: p.Sector,
				Code:     p.Code,
				Capacity: toJSON(p.Capacity),
				Stock:    toJSON(p.Stock),
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed port in sector %d: %w", p.Sector, err)
			}
		}
		for _, def := range fixture.ShipDefinitions {
			model := &ShipDefinitionModel{
				TypeID:            def.TypeID,
				Name:              def.Name,
				WarpCost:          def.WarpCost,
				TurnsPerWarp:      def.TurnsPerWarp,
				WarpPowerCapacity: def.WarpPowerCapacity,
				ShieldCapacity:    def.ShieldCapacity,
				FighterCapacity:   def.FighterCapacity,
				CargoHolds:        def.CargoHolds,
				Price:             def.Price,
				IsEscapePod:       def.IsEscapePod,
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed ship type %s: %w", def.TypeID, err)
			}
		}
		for _, corp := range fixture.Corporations {
			createdAt := corp.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			model := &CorporationModel{
				ID:        string(corp.ID),
				Name:      corp.Name,
				CreatedAt: createdAt,
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed corporation %s: %w", corp.ID, err)
			}
		}
		for _, member := range fixture.Members {
			joinedAt := member.JoinedAt
			if joinedAt.IsZero() {
				joinedAt = time.Now().UTC()
			}
			model := &CorporationMemberModel{
				CorporationID: string(member.CorporationID),
				CharacterID:   string(member.CharacterID),
				JoinedAt:      joinedAt,
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed membership %s/%s: %w", member.CorporationID, member.CharacterID, err)
			}
		}
		for _, sh := range fixture.Ships {
			if err := tx.Save(shipToModel(sh)).Error; err != nil {
				return fmt.Errorf("failed to seed ship %s: %w", sh.ID, err)
			}
		}
		for _, c := range fixture.Characters {
			if err := tx.Save(characterToModel(c)).Error; err != nil {
				return fmt.Errorf("failed to seed character %s: %w", c.ID, err)
			}
		}
		for key, value := range fixture.Config {
			if err := tx.Save(&UniverseConfigModel{Key: key, Value: value}).Error; err != nil {
				return fmt.Errorf("failed to seed config key %s: %w", key, err)
			}
		}
		for sectorKey, channels := range fixture.ObserverChannels {
			var sectorID int
			if _, err := fmt.Sscanf(sectorKey, "%d", &sectorID); err != nil {
				return fmt.Errorf("bad observer sector key %q: %w", sectorKey, err)
			}
			model := &SectorContentsModel{
				SectorID:         sectorID,
				ObserverChannels: toJSON(channels),
			}
			if err := tx.Save(model).Error; err != nil {
				return fmt.Errorf("failed to seed observers for sector %d: %w", sectorID, err)
			}
		}
		return nil
	})
}
