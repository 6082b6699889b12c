package sector

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// DefaultSalvageTTL is how long an unclaimed salvage container drifts before
// the tick loop prunes it
const DefaultSalvageTTL = time.Hour

// Salvage is a container dropped by ship destruction or a deliberate cargo
// dump. Destroyed when fully collected or expired.
type Salvage struct {
	ID        shared.SalvageID `json:"id"`
	Sector    int              `json:"sector"`
	Cargo     shared.CargoMap  `json:"cargo"`
	Scrap     int              `json:"scrap"`
	Credits   int              `json:"credits"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
	Claimed   bool             `json:"claimed"`
}

// NewSalvage creates a salvage container expiring after the default TTL
func NewSalvage(sectorID int, cargo shared.CargoMap, scrap, credits int, now time.Time) *Salvage {
	return &Salvage{
		ID:        shared.NewSalvageID(),
		Sector:    sectorID,
		Cargo:     cargo.Clone(),
		Scrap:     scrap,
		Credits:   credits,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultSalvageTTL),
		Claimed:   false,
	}
}

// Empty reports whether nothing of value remains
func (s *Salvage) Empty() bool {
	return s.Cargo.Total() == 0 && s.Scrap == 0 && s.Credits == 0
}

// Expired reports whether the container has outlived its TTL
func (s *Salvage) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
