package persistence

import (
	"encoding/json"
	"time"
)

// CharacterModel represents the characters table
type CharacterModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Name          string     `gorm:"column:name;unique;not null"`
	ShipID        string     `gorm:"column:ship_id;index"`
	Bank          int        `gorm:"column:bank;not null;default:0"`
	CorporationID *string    `gorm:"column:corporation_id;index"`
	LastActive    *time.Time `gorm:"column:last_active"`
	IsNPC         bool       `gorm:"column:is_npc;not null;default:false"`
	Metadata      string     `gorm:"column:metadata;type:text"` // JSON as text
}

func (CharacterModel) TableName() string {
	return "characters"
}

// ShipInstanceModel represents the ship_instances table
type ShipInstanceModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	TypeID           string     `gorm:"column:type_id;not null"`
	Name             string     `gorm:"column:name"`
	OwnerKind        string     `gorm:"column:owner_kind;not null"`
	OwnerCharacterID *string    `gorm:"column:owner_character_id;index"`
	OwnerCorpID      *string    `gorm:"column:owner_corporation_id"`
	CurrentSector    *int       `gorm:"column:current_sector;index"`
	InTransit        bool       `gorm:"column:in_transit;not null;default:false"`
	TransitDest      *int       `gorm:"column:transit_dest"`
	TransitETA       *time.Time `gorm:"column:transit_eta"`
	Credits          int        `gorm:"column:credits;not null;default:0"`
	Cargo            string     `gorm:"column:cargo;type:text"` // JSON as text
	WarpPower        int        `gorm:"column:warp_power;not null;default:0"`
	Shields          int        `gorm:"column:shields;not null;default:0"`
	Fighters         int        `gorm:"column:fighters;not null;default:0"`
	IsEscapePod      bool       `gorm:"column:is_escape_pod;not null;default:false"`
}

func (ShipInstanceModel) TableName() string {
	return "ship_instances"
}

// ShipDefinitionModel represents the ship_definitions table
type ShipDefinitionModel struct {
	TypeID            string `gorm:"column:type_id;primaryKey"`
	Name              string `gorm:"column:name;not null"`
	WarpCost          int    `gorm:"column:warp_cost;not null"`
	TurnsPerWarp      int    `gorm:"column:turns_per_warp;not null;default:1"`
	WarpPowerCapacity int    `gorm:"column:warp_power_capacity;not null"`
	ShieldCapacity    int    `gorm:"column:shield_capacity;not null"`
	FighterCapacity   int    `gorm:"column:fighter_capacity;not null"`
	CargoHolds        int    `gorm:"column:cargo_holds;not null"`
	Price             int    `gorm:"column:price;not null"`
	IsEscapePod       bool   `gorm:"column:is_escape_pod;not null;default:false"`
}

func (ShipDefinitionModel) TableName() string {
	return "ship_definitions"
}

// UniverseStructureModel represents the universe_structure table: one row
// per sector, edges as a JSON document
type UniverseStructureModel struct {
	SectorID int    `gorm:"column:sector_id;primaryKey"`
	X        int    `gorm:"column:x;not null"`
	Y        int    `gorm:"column:y;not null"`
	Region   string `gorm:"column:region"`
	Edges    string `gorm:"column:edges;type:text;not null"` // JSON array
}

func (UniverseStructureModel) TableName() string {
	return "universe_structure"
}

// UniverseConfigModel represents the universe_config table
type UniverseConfigModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;type:text"`
}

func (UniverseConfigModel) TableName() string {
	return "universe_config"
}

// SectorContentsModel represents the sector_contents table; the observer
// channel list rides as a JSON document
type SectorContentsModel struct {
	SectorID         int    `gorm:"column:sector_id;primaryKey"`
	ObserverChannels string `gorm:"column:observer_channels;type:text"` // JSON array
}

func (SectorContentsModel) TableName() string {
	return "sector_contents"
}

// PortModel represents the ports table
type PortModel struct {
	SectorID int    `gorm:"column:sector_id;primaryKey"`
	Code     string `gorm:"column:code;not null;size:3"`
	Capacity string `gorm:"column:capacity;type:text;not null"` // JSON map
	Stock    string `gorm:"column:stock;type:text;not null"`    // JSON map
}

func (PortModel) TableName() string {
	return "ports"
}

// GarrisonModel represents the garrisons table
type GarrisonModel struct {
	SectorID    int       `gorm:"column:sector_id;primaryKey;index"`
	OwnerID     string    `gorm:"column:owner_character_id;primaryKey"`
	Fighters    int       `gorm:"column:fighters;not null"`
	Mode        string    `gorm:"column:mode;not null"`
	TollAmount  int       `gorm:"column:toll_amount;not null;default:0"`
	TollBalance int       `gorm:"column:toll_balance;not null;default:0"`
	DeployedAt  time.Time `gorm:"column:deployed_at;not null"`
}

func (GarrisonModel) TableName() string {
	return "garrisons"
}

// SalvageModel represents the salvage table
type SalvageModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	SectorID  int       `gorm:"column:sector_id;index;not null"`
	Cargo     string    `gorm:"column:cargo;type:text"` // JSON map
	Scrap     int       `gorm:"column:scrap;not null;default:0"`
	Credits   int       `gorm:"column:credits;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
	Claimed   bool      `gorm:"column:claimed;not null;default:false"`
}

func (SalvageModel) TableName() string {
	return "salvage"
}

// MapKnowledgeModel represents the map_knowledge table: one JSON document
// per character
type MapKnowledgeModel struct {
	CharacterID   string `gorm:"column:character_id;primaryKey"`
	CurrentSector int    `gorm:"column:current_sector"`
	TotalVisited  int    `gorm:"column:total_visited;not null;default:0"`
	Sectors       string `gorm:"column:sectors;type:text;not null"` // JSON map
}

func (MapKnowledgeModel) TableName() string {
	return "map_knowledge"
}

// EventModel represents the events table
type EventModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Direction  string    `gorm:"column:direction;not null"`
	Type       string    `gorm:"column:type;not null"`
	Payload    string    `gorm:"column:payload;type:text"` // JSON as text
	Timestamp  time.Time `gorm:"column:timestamp;index:idx_events_character_ts,priority:2;index:idx_events_sector_ts,priority:2;not null"`
	Originator string    `gorm:"column:character_id;index:idx_events_character_ts,priority:1"`
	SectorID   *int      `gorm:"column:sector_id;index:idx_events_sector_ts,priority:1"`
	ShipID     *string   `gorm:"column:ship_id"`
	RequestID  string    `gorm:"column:request_id"`
}

func (EventModel) TableName() string {
	return "events"
}

// EventRecipientModel represents the event_character_recipients table
type EventRecipientModel struct {
	EventID     int64  `gorm:"column:event_id;primaryKey"`
	CharacterID string `gorm:"column:character_id;primaryKey;index"`
	Reason      string `gorm:"column:reason;not null"`
}

func (EventRecipientModel) TableName() string {
	return "event_character_recipients"
}

// RateLimitModel represents the rate_limits table: fixed-window counters
// keyed by (character, method, window start)
type RateLimitModel struct {
	CharacterID string    `gorm:"column:character_id;primaryKey"`
	Method      string    `gorm:"column:method;primaryKey"`
	WindowStart time.Time `gorm:"column:window_start;primaryKey"`
	Count       int       `gorm:"column:count;not null;default:0"`
}

func (RateLimitModel) TableName() string {
	return "rate_limits"
}

// CorporationModel represents the corporations table
type CorporationModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;unique;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (CorporationModel) TableName() string {
	return "corporations"
}

// CorporationMemberModel represents the corporation_members table
type CorporationMemberModel struct {
	CorporationID string     `gorm:"column:corporation_id;primaryKey"`
	CharacterID   string     `gorm:"column:character_id;primaryKey;index"`
	Role          string     `gorm:"column:role"`
	JoinedAt      time.Time  `gorm:"column:joined_at;not null"`
	LeftAt        *time.Time `gorm:"column:left_at"`
}

func (CorporationMemberModel) TableName() string {
	return "corporation_members"
}

// CorporationShipModel represents the corporation_ships table
type CorporationShipModel struct {
	CorporationID string `gorm:"column:corporation_id;primaryKey"`
	ShipID        string `gorm:"column:ship_id;primaryKey"`
}

func (CorporationShipModel) TableName() string {
	return "corporation_ships"
}

// CombatEncounterModel represents the combat_encounters table. The full
// encounter document is serialized as JSON; round and last_updated are
// lifted into columns for the optimistic-concurrency predicate.
type CombatEncounterModel struct {
	CombatID    string     `gorm:"column:combat_id;primaryKey"`
	SectorID    int        `gorm:"column:sector_id;index"`
	Round       int        `gorm:"column:round;not null"`
	Deadline    *time.Time `gorm:"column:deadline;index"`
	Ended       bool       `gorm:"column:ended;not null;default:false"`
	Document    string     `gorm:"column:document;type:text;not null"` // JSON
	LastUpdated time.Time  `gorm:"column:last_updated;not null"`
}

func (CombatEncounterModel) TableName() string {
	return "combat_encounters"
}

// AuditModel represents the audit_log table
type AuditModel struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ActorID   string    `gorm:"column:actor_character_id;not null"`
	Action    string    `gorm:"column:action;not null"`
	Detail    string    `gorm:"column:detail;type:text"` // JSON as text
	Timestamp time.Time `gorm:"column:timestamp;not null"`
}

func (AuditModel) TableName() string {
	return "audit_log"
}

// AllModels lists every table for automigration and truncation
func AllModels() []interface{} {
	return []interface{}{
		&CharacterModel{},
		&ShipInstanceModel{},
		&ShipDefinitionModel{},
		&UniverseStructureModel{},
		&UniverseConfigModel{},
		&SectorContentsModel{},
		&PortModel{},
		&GarrisonModel{},
		&SalvageModel{},
		&MapKnowledgeModel{},
		&EventModel{},
		&EventRecipientModel{},
		&RateLimitModel{},
		&CorporationModel{},
		&CorporationMemberModel{},
		&CorporationShipModel{},
		&CombatEncounterModel{},
		&AuditModel{},
	}
}

// toJSON serializes v, returning "{}" on marshal failure so a bad document
// never blocks a write
func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// fromJSON deserializes into out, tolerating empty documents
func fromJSON(raw string, out interface{}) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}
