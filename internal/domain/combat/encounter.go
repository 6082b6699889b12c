package combat

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// Default tuning; the daemon overrides RoundTimeout from configuration.
const (
	DefaultRoundTimeout = 15 * time.Second
	// BraceDamageFactor is the fraction of incoming damage a bracing
	// combatant still takes
	BraceDamageFactor = 0.5
)

// CombatantID identifies a participant inside an encounter. For characters
// it is the character UUID; for garrisons it is "garrison:<sector>:<owner>".
type CombatantID = string

// CombatantKind tags the closed set of participant variants
type CombatantKind string

const (
	KindCharacter CombatantKind = "character"
	KindGarrison  CombatantKind = "garrison"
)

// ActionKind tags the closed set of round actions
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionBrace  ActionKind = "brace"
	ActionFlee   ActionKind = "flee"
	ActionPay    ActionKind = "pay"
)

// ParseActionKind validates an action tag
func ParseActionKind(value string) (ActionKind, error) {
	switch ActionKind(value) {
	case ActionAttack, ActionBrace, ActionFlee, ActionPay:
		return ActionKind(value), nil
	}
	return "", shared.NewValidationError("action", fmt.Sprintf("unknown action %q", value))
}

// EndState classifies a finished encounter
type EndState string

const (
	EndDestroyedAll  EndState = "destroyed_all"
	EndFledOut       EndState = "fled_out"
	EndTollSatisfied EndState = "toll_satisfied"
)

// CombatantState is one participant's live state within an encounter
type CombatantState struct {
	ID            CombatantID            `json:"id"`
	Kind          CombatantKind          `json:"kind"`
	Name          string                 `json:"name"`
	Fighters      int                    `json:"fighters"`
	Shields       int                    `json:"shields"`
	MaxFighters   int                    `json:"max_fighters"`
	MaxShields    int                    `json:"max_shields"`
	TurnsPerWarp  int                    `json:"turns_per_warp"`
	ShipType      *string                `json:"ship_type"`
	OwnerID       shared.CharacterID     `json:"owner_character_id"`
	CorporationID *shared.CorporationID  `json:"corporation_id"`
	IsEscapePod   bool                   `json:"is_escape_pod"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// SameSide reports whether two combatants share a side: same owning
// character, or both owners in the same corporation
func (c *CombatantState) SameSide(other *CombatantState) bool {
	if c.OwnerID == other.OwnerID {
		return true
	}
	if c.CorporationID != nil && other.CorporationID != nil {
		return *c.CorporationID == *other.CorporationID
	}
	return false
}

// SideKey groups combatants: corporation id when present, else owner id
func (c *CombatantState) SideKey() string {
	if c.CorporationID != nil {
		return "corp:" + string(*c.CorporationID)
	}
	return "char:" + string(c.OwnerID)
}

// RoundAction is a participant's committed intent for the current round
type RoundAction struct {
	Action      ActionKind   `json:"action"`
	Commit      int          `json:"commit"`
	TimedOut    bool         `json:"timed_out"`
	TargetID    *CombatantID `json:"target_id"`
	Destination *int         `json:"destination_sector"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// TollDemand tracks one garrison's toll claim within an encounter
type TollDemand struct {
	GarrisonID  CombatantID `json:"garrison_id"`
	TargetID    CombatantID `json:"target_id"`
	Amount      int         `json:"amount"`
	DemandRound int         `json:"demand_round"`
	Paid        bool        `json:"paid"`
	PaidRound   int         `json:"paid_round"`
}

// GarrisonSource records which garrison seeded a participant
type GarrisonSource struct {
	Sector int                `json:"sector"`
	Owner  shared.CharacterID `json:"owner_character_id"`
}

// EncounterContext is the immutable-ish bookkeeping attached at creation
type EncounterContext struct {
	Initiator       shared.CharacterID          `json:"initiator"`
	CreatedAt       time.Time                   `json:"created_at"`
	GarrisonSources []GarrisonSource            `json:"garrison_sources"`
	TollRegistry    map[CombatantID]*TollDemand `json:"toll_registry"`
}

// RoundLog is the persisted record of one resolved round
type RoundLog struct {
	Round           int                         `json:"round_number"`
	Actions         map[CombatantID]RoundAction `json:"actions"`
	Hits            map[CombatantID]int         `json:"hits"`
	OffensiveLosses map[CombatantID]int         `json:"offensive_losses"`
	DefensiveLosses map[CombatantID]int         `json:"defensive_losses"`
	ShieldLoss      map[CombatantID]int         `json:"shield_loss"`
	Result          *EndState                   `json:"result"`
	Timestamp       time.Time                   `json:"timestamp"`
}

// Encounter is the reified state of one sector's ongoing combat
type Encounter struct {
	CombatID           shared.CombatID                 `json:"combat_id"`
	Sector             int                             `json:"sector"`
	Round              int                             `json:"round"`
	Deadline           *time.Time                      `json:"deadline"`
	Participants       map[CombatantID]*CombatantState `json:"participants"`
	PendingActions     map[CombatantID]*RoundAction    `json:"pending_actions"`
	Logs               []RoundLog                      `json:"logs"`
	Context            EncounterContext                `json:"context"`
	AwaitingResolution bool                            `json:"awaiting_resolution"`
	Ended              bool                            `json:"ended"`
	EndState           *EndState                       `json:"end_state"`
	BaseSeed           uint32                          `json:"base_seed"`
	LastUpdated        time.Time                       `json:"last_updated"`
}

// NewEncounter creates a round-1 encounter with its deadline armed
func NewEncounter(sectorID int, initiator shared.CharacterID, now time.Time, roundTimeout time.Duration) *Encounter {
	combatID := shared.NewCombatID()
	deadline := now.Add(roundTimeout)
	return &Encounter{
		CombatID:       combatID,
		Sector:         sectorID,
		Round:          1,
		Deadline:       &deadline,
		Participants:   make(map[CombatantID]*CombatantState),
		PendingActions: make(map[CombatantID]*RoundAction),
		Context: EncounterContext{
			Initiator:    initiator,
			CreatedAt:    now,
			TollRegistry: make(map[CombatantID]*TollDemand),
		},
		BaseSeed:    BaseSeedFromCombatID(combatID),
		LastUpdated: now,
	}
}

// BaseSeedFromCombatID derives the deterministic RNG seed from the leading
// hex of the combat UUID, falling back to a random seed if it cannot parse
func BaseSeedFromCombatID(id shared.CombatID) uint32 {
	hex := strings.ReplaceAll(string(id), "-", "")
	if len(hex) >= 8 {
		if parsed, err := strconv.ParseUint(hex[:8], 16, 32); err == nil {
			return uint32(parsed)
		}
	}
	return rand.Uint32()
}

// AddParticipant registers a combatant; participant ids are pairwise distinct
func (e *Encounter) AddParticipant(state *CombatantState) {
	if _, exists := e.Participants[state.ID]; exists {
		return
	}
	e.Participants[state.ID] = state
}

// HasParticipant reports whether the combatant is in the encounter
func (e *Encounter) HasParticipant(id CombatantID) bool {
	_, ok := e.Participants[id]
	return ok
}

// Characters returns the character participants, id-sorted
func (e *Encounter) Characters() []*CombatantState {
	return e.participantsOfKind(KindCharacter)
}

// Garrisons returns the garrison participants, id-sorted
func (e *Encounter) Garrisons() []*CombatantState {
	return e.participantsOfKind(KindGarrison)
}

func (e *Encounter) participantsOfKind(kind CombatantKind) []*CombatantState {
	out := make([]*CombatantState, 0, len(e.Participants))
	for _, id := range e.sortedParticipantIDs() {
		if p := e.Participants[id]; p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func (e *Encounter) sortedParticipantIDs() []CombatantID {
	ids := make([]CombatantID, 0, len(e.Participants))
	for id := range e.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeadlinePassed reports whether the round deadline has elapsed
func (e *Encounter) DeadlinePassed(now time.Time) bool {
	return e.Deadline != nil && !now.Before(*e.Deadline)
}

// AllCombatantsReady reports whether every non-garrison participant with
// fighters has a pending action, which triggers early resolution
func (e *Encounter) AllCombatantsReady() bool {
	ready := false
	for id, p := range e.Participants {
		if p.Kind == KindGarrison || p.Fighters == 0 {
			continue
		}
		if _, ok := e.PendingActions[id]; !ok {
			return false
		}
		ready = true
	}
	return ready
}

// Finish marks the encounter terminal; an ended encounter carries no deadline
func (e *Encounter) Finish(state EndState, now time.Time) {
	e.Ended = true
	e.EndState = &state
	e.Deadline = nil
	e.AwaitingResolution = false
	e.LastUpdated = now
}

// seedBytes serializes the seed for the PRNG derivation in prng.go
func seedBytes(seed uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seed)
	return buf[:]
}
