package combat

import (
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
)

// Garrison commit tables: commit = max(1, min(fighters, max(base, fighters/divisor)))
var garrisonCommitRules = map[garrison.Mode]struct {
	Base    int
	Divisor int
}{
	garrison.Offensive: {Base: 50, Divisor: 2},
	garrison.Defensive: {Base: 25, Divisor: 4},
	garrison.Toll:      {Base: 50, Divisor: 3},
}

// GarrisonMode reads the mode a garrison participant was deployed with.
// It is carried in the combatant metadata at initiation.
func GarrisonMode(state *CombatantState) garrison.Mode {
	if raw, ok := state.Metadata["mode"].(string); ok {
		if mode, err := garrison.ParseMode(raw); err == nil {
			return mode
		}
	}
	return garrison.Defensive
}

func garrisonTollAmount(state *CombatantState) int {
	switch v := state.Metadata["toll_amount"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// DeriveGarrisonAction computes the automatic action for a garrison
// participant. Deterministic: target choice uses only participant state and
// the encounter's toll registry.
func DeriveGarrisonAction(enc *Encounter, g *CombatantState, now time.Time) RoundAction {
	mode := GarrisonMode(g)

	if mode == garrison.Toll {
		return deriveTollAction(enc, g, now)
	}

	target := strongestEligibleTarget(enc, g)
	if target == nil {
		return RoundAction{Action: ActionBrace, SubmittedAt: now}
	}

	rule := garrisonCommitRules[mode]
	commit := rule.Base
	if byShare := g.Fighters / rule.Divisor; byShare > commit {
		commit = byShare
	}
	if commit > g.Fighters {
		commit = g.Fighters
	}
	if commit < 1 {
		commit = 1
	}
	targetID := target.ID
	return RoundAction{Action: ActionAttack, Commit: commit, TargetID: &targetID, SubmittedAt: now}
}

func deriveTollAction(enc *Encounter, g *CombatantState, now time.Time) RoundAction {
	demand := enc.Context.TollRegistry[g.ID]

	if demand == nil {
		target := tollTarget(enc, g)
		if target == nil {
			return RoundAction{Action: ActionBrace, SubmittedAt: now}
		}
		enc.Context.TollRegistry[g.ID] = &TollDemand{
			GarrisonID:  g.ID,
			TargetID:    target.ID,
			Amount:      garrisonTollAmount(g),
			DemandRound: enc.Round,
		}
		// First demand round: the garrison holds fire
		return RoundAction{Action: ActionBrace, SubmittedAt: now}
	}

	if demand.Paid && demand.PaidRound <= enc.Round {
		return RoundAction{Action: ActionBrace, SubmittedAt: now}
	}

	if enc.Round <= demand.DemandRound {
		return RoundAction{Action: ActionBrace, SubmittedAt: now}
	}

	// Unpaid past the demand round: attack with everything
	target, ok := enc.Participants[demand.TargetID]
	if !ok || target.Fighters == 0 {
		if target = strongestEligibleTarget(enc, g); target == nil {
			return RoundAction{Action: ActionBrace, SubmittedAt: now}
		}
		demand.TargetID = target.ID
	}
	targetID := target.ID
	commit := g.Fighters
	if commit < 1 {
		return RoundAction{Action: ActionBrace, SubmittedAt: now}
	}
	return RoundAction{Action: ActionAttack, Commit: commit, TargetID: &targetID, SubmittedAt: now}
}

// tollTarget prefers the initiator when eligible, else the strongest hostile
func tollTarget(enc *Encounter, g *CombatantState) *CombatantState {
	if initiator, ok := enc.Participants[CombatantID(enc.Context.Initiator)]; ok {
		if eligibleTarget(g, initiator) {
			return initiator
		}
	}
	return strongestEligibleTarget(enc, g)
}

// eligibleTarget: a character on a different side with fighters, not a pod
func eligibleTarget(g *CombatantState, candidate *CombatantState) bool {
	return candidate.Kind == KindCharacter &&
		!g.SameSide(candidate) &&
		candidate.Fighters > 0 &&
		!candidate.IsEscapePod
}

// strongestEligibleTarget tiebreaks by more fighters, then more shields,
// then smaller id
func strongestEligibleTarget(enc *Encounter, g *CombatantState) *CombatantState {
	var best *CombatantState
	for _, id := range enc.sortedParticipantIDs() {
		candidate := enc.Participants[id]
		if !eligibleTarget(g, candidate) {
			continue
		}
		if best == nil || strongerThan(candidate, best) {
			best = candidate
		}
	}
	return best
}

func strongerThan(a, b *CombatantState) bool {
	if a.Fighters != b.Fighters {
		return a.Fighters > b.Fighters
	}
	if a.Shields != b.Shields {
		return a.Shields > b.Shields
	}
	return a.ID < b.ID
}
