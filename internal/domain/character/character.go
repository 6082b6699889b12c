package character

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Character is a pilot. Display names are unique case-insensitively.
type Character struct {
	ID            shared.CharacterID     `json:"id"`
	Name          string                 `json:"name"`
	ShipID        shared.ShipID          `json:"ship_id"`
	Bank          int                    `json:"bank"`
	CorporationID *shared.CorporationID  `json:"corporation_id"`
	LastActive    time.Time              `json:"last_active"`
	IsNPC         bool                   `json:"is_npc"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// Deposit moves credits into the bank balance
func (c *Character) Deposit(amount int) error {
	if amount <= 0 {
		return shared.NewValidationError("amount", "must be positive")
	}
	c.Bank += amount
	return nil
}

// Withdraw moves credits out of the bank balance
func (c *Character) Withdraw(amount int) error {
	if amount <= 0 {
		return shared.NewValidationError("amount", "must be positive")
	}
	if c.Bank < amount {
		return shared.NewConflictError("insufficient bank balance")
	}
	c.Bank -= amount
	return nil
}

// SameCorporation reports whether both characters are in the same corporation
func (c *Character) SameCorporation(other *Character) bool {
	if c.CorporationID == nil || other.CorporationID == nil {
		return false
	}
	return *c.CorporationID == *other.CorporationID
}
