package garrison

import (
	"fmt"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Mode is the standing order for a deployed fighter stack
type Mode string

const (
	// Offensive garrisons attack any non-corp pilot in the sector
	Offensive Mode = "offensive"
	// Defensive garrisons fight back with a smaller commit
	Defensive Mode = "defensive"
	// Toll garrisons demand payment before attacking
	Toll Mode = "toll"
)

// ParseMode validates a garrison mode tag
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case Offensive, Defensive, Toll:
		return Mode(value), nil
	}
	return "", shared.NewValidationError("mode", fmt.Sprintf("unknown garrison mode %q", value))
}

// Garrison is a sector-anchored fighter stack owned by a character.
// Primary key is (sector, owner).
type Garrison struct {
	Sector      int                `json:"sector"`
	Owner       shared.CharacterID `json:"owner_character_id"`
	Fighters    int                `json:"fighters"`
	Mode        Mode               `json:"mode"`
	TollAmount  int                `json:"toll_amount"`
	TollBalance int                `json:"toll_balance"`
	DeployedAt  time.Time          `json:"deployed_at"`
}

// CombatantID derives the stable participant id a garrison uses in encounters
func (g *Garrison) CombatantID() string {
	return fmt.Sprintf("garrison:%d:%s", g.Sector, g.Owner)
}

// CollectToll credits a paid toll to the stack's balance
func (g *Garrison) CollectToll(amount int) {
	g.TollBalance += amount
}
