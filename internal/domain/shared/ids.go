package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Entity identifiers are opaque UUID strings. They are declared as distinct
// types so a ship id cannot be passed where a character id is expected.
type (
	CharacterID   string
	ShipID        string
	CorporationID string
	CombatID      string
	SalvageID     string
)

func (id CharacterID) String() string   { return string(id) }
func (id ShipID) String() string        { return string(id) }
func (id CorporationID) String() string { return string(id) }
func (id CombatID) String() string      { return string(id) }
func (id SalvageID) String() string     { return string(id) }

// NewCharacterID generates a fresh character identifier
func NewCharacterID() CharacterID {
	return CharacterID(uuid.NewString())
}

// NewShipID generates a fresh ship identifier
func NewShipID() ShipID {
	return ShipID(uuid.NewString())
}

// NewCombatID generates a fresh encounter identifier
func NewCombatID() CombatID {
	return CombatID(uuid.NewString())
}

// NewSalvageID generates a fresh salvage identifier
func NewSalvageID() SalvageID {
	return SalvageID(uuid.NewString())
}

// IsUUID reports whether the value parses as a canonical UUID
func IsUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

// CanonicalCharacterID hashes a legacy display name into a deterministic
// version-5 UUID under the given namespace. The name is trimmed and
// lowercased first so "Ada " and "ada" map to the same identifier.
func CanonicalCharacterID(name string, namespace uuid.UUID) CharacterID {
	normalized := strings.ToLower(strings.TrimSpace(name))
	return CharacterID(uuid.NewSHA1(namespace, []byte(normalized)).String())
}
