package ship

import (
	"encoding/json"
	"fmt"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// OwnerKind tags the closed set of ship ownership variants
type OwnerKind string

const (
	OwnedByCharacter   OwnerKind = "character"
	OwnedByCorporation OwnerKind = "corporation"
	Unowned            OwnerKind = "unowned"
)

// Owner is a tagged variant: a ship belongs to a character, a corporation,
// or nobody (derelicts awaiting claim or salvage).
type Owner struct {
	Kind          OwnerKind
	CharacterID   shared.CharacterID
	CorporationID shared.CorporationID
}

// CharacterOwner constructs a character-owned variant
func CharacterOwner(id shared.CharacterID) Owner {
	return Owner{Kind: OwnedByCharacter, CharacterID: id}
}

// CorporationOwner constructs a corporation-owned variant
func CorporationOwner(id shared.CorporationID) Owner {
	return Owner{Kind: OwnedByCorporation, CorporationID: id}
}

// NoOwner constructs the unowned variant
func NoOwner() Owner {
	return Owner{Kind: Unowned}
}

type ownerJSON struct {
	Kind          OwnerKind `json:"kind"`
	CharacterID   string    `json:"character_id,omitempty"`
	CorporationID string    `json:"corporation_id,omitempty"`
}

// MarshalJSON encodes the variant with its tag
func (o Owner) MarshalJSON() ([]byte, error) {
	return json.Marshal(ownerJSON{
		Kind:          o.Kind,
		CharacterID:   string(o.CharacterID),
		CorporationID: string(o.CorporationID),
	})
}

// UnmarshalJSON decodes the variant, rejecting unknown tags
func (o *Owner) UnmarshalJSON(data []byte) error {
	var raw ownerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case OwnedByCharacter:
		if raw.CharacterID == "" {
			return fmt.Errorf("character owner requires character_id")
		}
	case OwnedByCorporation:
		if raw.CorporationID == "" {
			return fmt.Errorf("corporation owner requires corporation_id")
		}
	case Unowned:
	default:
		return fmt.Errorf("unknown owner kind %q", raw.Kind)
	}
	o.Kind = raw.Kind
	o.CharacterID = shared.CharacterID(raw.CharacterID)
	o.CorporationID = shared.CorporationID(raw.CorporationID)
	return nil
}
