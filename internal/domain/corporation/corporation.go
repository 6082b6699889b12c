package corporation

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Corporation is a pilot association. Garrison ownership and sector
// visibility extend to all active members.
type Corporation struct {
	ID        shared.CorporationID `json:"id"`
	Name      string               `json:"name"`
	CreatedAt time.Time            `json:"created_at"`
}

// Member is an active membership row
type Member struct {
	CorporationID shared.CorporationID `json:"corporation_id"`
	CharacterID   shared.CharacterID   `json:"character_id"`
	JoinedAt      time.Time            `json:"joined_at"`
}
