package common

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Actor carries the authenticated identity and correlation data every
// command embeds. The dispatcher fills it after token and authorization
// checks; handlers can assume it is trustworthy.
type Actor struct {
	CharacterID shared.CharacterID
	RequestID   string
	Method      string
	Admin       bool
	At          time.Time
}
