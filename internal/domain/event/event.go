package event

import (
	"strconv"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Direction classifies an event log row
type Direction string

const EventOut Direction = "event_out"

// Reason tags why a character was included in an event's recipient set
type Reason string

const (
	ReasonSelf      Reason = "self"
	ReasonSender    Reason = "sender"
	ReasonRecipient Reason = "recipient"
	ReasonSector    Reason = "sector"
	ReasonCorp      Reason = "corp"
	ReasonObserver  Reason = "observer"
)

// Source identifies the endpoint invocation that produced an event. It is
// injected into every published payload so clients can correlate.
type Source struct {
	Type      string    `json:"type"`
	Method    string    `json:"method"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRPCSource builds the source stamp for a request-driven event
func NewRPCSource(method, requestID string, at time.Time) Source {
	return Source{Type: "rpc", Method: method, RequestID: requestID, Timestamp: at}
}

// Record is one persisted event log row. The log is append-only.
type Record struct {
	ID         int64                  `json:"id"`
	Direction  Direction              `json:"direction"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Timestamp  time.Time              `json:"timestamp"`
	Originator shared.CharacterID     `json:"originator"`
	Sector     *int                   `json:"sector"`
	Ship       *shared.ShipID         `json:"ship"`
	RequestID  string                 `json:"request_id"`
	Meta       map[string]interface{} `json:"meta"`
}

// Recipient is one (event, character) delivery row
type Recipient struct {
	CharacterID shared.CharacterID `json:"character_id"`
	Reason      Reason             `json:"reason"`
}

// ScopeKind tags the closed set of delivery scopes
type ScopeKind string

const (
	ScopeCharacter   ScopeKind = "character"
	ScopeSector      ScopeKind = "sector"
	ScopeCorporation ScopeKind = "corporation"
	ScopeBroadcast   ScopeKind = "broadcast"
)

// Scope describes who an event is for. Exactly one variant's fields are set.
type Scope struct {
	Kind          ScopeKind
	CharacterID   shared.CharacterID
	Sector        int
	CorporationID shared.CorporationID
	// IncludeOrigin delivers sector events to the acting character too
	// (e.g. their own movement.complete)
	IncludeOrigin bool
}

// CharacterScope targets a single pilot
func CharacterScope(id shared.CharacterID) Scope {
	return Scope{Kind: ScopeCharacter, CharacterID: id}
}

// SectorScope targets everyone present in or watching a sector
func SectorScope(sectorID int, includeOrigin bool) Scope {
	return Scope{Kind: ScopeSector, Sector: sectorID, IncludeOrigin: includeOrigin}
}

// CorporationScope targets all active members of a corporation
func CorporationScope(id shared.CorporationID) Scope {
	return Scope{Kind: ScopeCorporation, CorporationID: id}
}

// BroadcastScope targets every on-line pilot; realtime only, no log rows
func BroadcastScope() Scope {
	return Scope{Kind: ScopeBroadcast}
}

// CharacterTopic is the realtime channel for one pilot
func CharacterTopic(id shared.CharacterID) string {
	return "character:" + string(id)
}

// SectorTopic is the realtime channel for one sector
func SectorTopic(sectorID int) string {
	return "sector:" + strconv.Itoa(sectorID)
}

// BroadcastTopic is the realtime channel every client subscribes to
const BroadcastTopic = "broadcast"
