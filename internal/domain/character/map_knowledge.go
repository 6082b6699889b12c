package character

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// PortObservation is what a pilot remembers about a port from their last visit
type PortObservation struct {
	Code       string    `json:"code"`
	ObservedAt time.Time `json:"observed_at"`
}

// SectorKnowledge is a pilot's memory of one visited sector
type SectorKnowledge struct {
	Adjacent    []int            `json:"adjacent_sectors"`
	X           int              `json:"x"`
	Y           int              `json:"y"`
	LastVisited time.Time        `json:"last_visited"`
	Port        *PortObservation `json:"port,omitempty"`
}

// MapKnowledge is a pilot's accumulated view of the universe. It grows
// monotonically: sectors are never forgotten.
type MapKnowledge struct {
	CharacterID   shared.CharacterID      `json:"character_id"`
	CurrentSector int                     `json:"current_sector"`
	TotalVisited  int                     `json:"total_visited"`
	Sectors       map[int]SectorKnowledge `json:"sectors"`
}

// NewMapKnowledge creates an empty knowledge map for a pilot
func NewMapKnowledge(id shared.CharacterID) *MapKnowledge {
	return &MapKnowledge{
		CharacterID: id,
		Sectors:     make(map[int]SectorKnowledge),
	}
}

// Visited reports whether the pilot has recorded the sector
func (m *MapKnowledge) Visited(sectorID int) bool {
	_, ok := m.Sectors[sectorID]
	return ok
}

// RecordVisit upserts knowledge for a sector and returns whether this was
// the first visit. Idempotent: repeating the call with identical arguments
// leaves TotalVisited unchanged and returns false.
func (m *MapKnowledge) RecordVisit(sectorID int, adjacent []int, x, y int, port *PortObservation, at time.Time) bool {
	_, seen := m.Sectors[sectorID]
	m.Sectors[sectorID] = SectorKnowledge{
		Adjacent:    adjacent,
		X:           x,
		Y:           y,
		LastVisited: at,
		Port:        port,
	}
	m.CurrentSector = sectorID
	if !seen {
		m.TotalVisited++
	}
	return !seen
}
