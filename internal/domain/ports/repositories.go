package ports

import (
	"context"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/corporation"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/internal/domain/sector"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
)

// CharacterRepository persists pilots
type CharacterRepository interface {
	FindByID(ctx context.Context, id shared.CharacterID) (*character.Character, error)
	FindByName(ctx context.Context, name string) (*character.Character, error)
	FindByShipID(ctx context.Context, id shared.ShipID) (*character.Character, error)
	ListInSector(ctx context.Context, sectorID int) ([]*character.Character, error)
	ListByCorporation(ctx context.Context, id shared.CorporationID) ([]*character.Character, error)
	Save(ctx context.Context, c *character.Character) error
	Delete(ctx context.Context, id shared.CharacterID) error
}

// ShipRepository persists hulls
type ShipRepository interface {
	FindByID(ctx context.Context, id shared.ShipID) (*ship.Ship, error)
	FindDefinition(ctx context.Context, typeID string) (*ship.Definition, error)
	ListDefinitions(ctx context.Context) ([]*ship.Definition, error)
	ListUnownedInSector(ctx context.Context, sectorID int) ([]*ship.Ship, error)
	ListByOwnerCharacter(ctx context.Context, id shared.CharacterID) ([]*ship.Ship, error)
	ListOverdueTransits(ctx context.Context, now time.Time) ([]*ship.Ship, error)
	Save(ctx context.Context, s *ship.Ship) error
	Delete(ctx context.Context, id shared.ShipID) error
	// BeginTransit conditionally flips the ship into hyperspace; it fails
	// with a conflict if the ship is already in transit or has left origin,
	// preventing double-dispatch between racing move requests
	BeginTransit(ctx context.Context, id shared.ShipID, origin, dest int, eta time.Time) error
}

// SectorRepository reads the warp graph
type SectorRepository interface {
	FindByID(ctx context.Context, sectorID int) (*sector.Sector, error)
	SaveAll(ctx context.Context, sectors []*sector.Sector) error
}

// PortRepository persists trading stations
type PortRepository interface {
	FindBySector(ctx context.Context, sectorID int) (*sector.Port, error)
	Save(ctx context.Context, p *sector.Port) error
}

// GarrisonRepository persists deployed fighter stacks
type GarrisonRepository interface {
	ListBySector(ctx context.Context, sectorID int) ([]*garrison.Garrison, error)
	Find(ctx context.Context, sectorID int, owner shared.CharacterID) (*garrison.Garrison, error)
	ListByOwner(ctx context.Context, owner shared.CharacterID) ([]*garrison.Garrison, error)
	Save(ctx context.Context, g *garrison.Garrison) error
	Delete(ctx context.Context, sectorID int, owner shared.CharacterID) error
}

// SalvageRepository persists drifting containers
type SalvageRepository interface {
	ListBySector(ctx context.Context, sectorID int) ([]*sector.Salvage, error)
	FindByID(ctx context.Context, id shared.SalvageID) (*sector.Salvage, error)
	Save(ctx context.Context, s *sector.Salvage) error
	Delete(ctx context.Context, id shared.SalvageID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MapKnowledgeRepository persists per-character visited-sector memory
type MapKnowledgeRepository interface {
	Find(ctx context.Context, id shared.CharacterID) (*character.MapKnowledge, error)
	Save(ctx context.Context, k *character.MapKnowledge) error
}

// EventFilter narrows an event log range query
type EventFilter struct {
	CharacterID   shared.CharacterID
	Sector        *int
	CorporationID *shared.CorporationID
	Since         *time.Time
	Until         *time.Time
	Limit         int
}

// EventRepository is the append-only event log. Append persists the record
// with its recipient rows in one transaction and returns the allocated id.
type EventRepository interface {
	Append(ctx context.Context, record *event.Record, recipients []event.Recipient) (int64, error)
	Query(ctx context.Context, filter EventFilter) ([]*event.Record, error)
}

// EncounterRepository persists combat state between resolutions.
// Save enforces optimistic concurrency on (round, last_updated): the first
// writer wins and the loser receives a conflict.
type EncounterRepository interface {
	FindByID(ctx context.Context, id shared.CombatID) (*combat.Encounter, error)
	FindActiveBySector(ctx context.Context, sectorID int) (*combat.Encounter, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*combat.Encounter, error)
	Create(ctx context.Context, enc *combat.Encounter) error
	Save(ctx context.Context, enc *combat.Encounter, expectedRound int, expectedUpdated time.Time) error
}

// CorporationRepository persists pilot associations
type CorporationRepository interface {
	FindByID(ctx context.Context, id shared.CorporationID) (*corporation.Corporation, error)
	Members(ctx context.Context, id shared.CorporationID) ([]*corporation.Member, error)
	IsMember(ctx context.Context, id shared.CorporationID, characterID shared.CharacterID) (bool, error)
	MemberCount(ctx context.Context, id shared.CorporationID) (int64, error)
	Delete(ctx context.Context, id shared.CorporationID) error
}

// ObserverRepository reads the observer channels registered for a sector
type ObserverRepository interface {
	ChannelsForSector(ctx context.Context, sectorID int) ([]string, error)
}

// RateLimitRepository counts calls per (character, method) window.
// Hit increments and returns the count inside the current fixed window.
type RateLimitRepository interface {
	Hit(ctx context.Context, characterID shared.CharacterID, method string, windowStart time.Time) (int, error)
	Reset(ctx context.Context) error
}

// MaintenanceRepository backs destructive admin operations
type MaintenanceRepository interface {
	TruncateAll(ctx context.Context) error
}

// AuditRepository records admin mutations
type AuditRepository interface {
	Record(ctx context.Context, actor shared.CharacterID, action string, detail map[string]interface{}) error
}
