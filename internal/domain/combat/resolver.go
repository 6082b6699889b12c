package combat

import (
	"math"
	"sort"
	"time"
)

// Attrition tuning: an attacker expects to lose a quarter of its commit,
// jittered by the round PRNG into the 15%..35% band.
const (
	attritionBase       = 0.25
	attritionJitterLow  = 0.6
	attritionJitterSpan = 0.8
)

// Flee tuning: base 75% success, minus 5% per attacker targeting the
// fleer this round, floored at 25%.
const (
	fleeBaseChance    = 0.75
	fleePenaltyPerFoe = 0.05
	fleeMinimumChance = 0.25
)

// RoundOutcome is what one resolver pass produced
type RoundOutcome struct {
	Round     int
	Log       RoundLog
	Fled      map[CombatantID]int // combatant -> destination sector
	Destroyed []CombatantID
	Ended     bool
	EndState  *EndState
}

// Resolve runs one round of the encounter. It substitutes timed-out braces,
// derives garrison actions, applies attacks and flee rolls, mutates
// participant state in place, appends the round log, and either finishes the
// encounter or arms the next round's deadline.
//
// Determinism contract: with identical encounter state (including BaseSeed
// and Round), identical pending actions, and identical garrison modes, two
// Resolve calls produce bit-identical hits, losses, and end state. All
// randomness flows through RoundRNG.
func Resolve(enc *Encounter, now time.Time, roundTimeout time.Duration) *RoundOutcome {
	round := enc.Round

	actions := collectActions(enc, now)

	outcome := &RoundOutcome{
		Round: round,
		Fled:  make(map[CombatantID]int),
		Log: RoundLog{
			Round:           round,
			Actions:         make(map[CombatantID]RoundAction, len(actions)),
			Hits:            make(map[CombatantID]int),
			OffensiveLosses: make(map[CombatantID]int),
			DefensiveLosses: make(map[CombatantID]int),
			ShieldLoss:      make(map[CombatantID]int),
			Timestamp:       now,
		},
	}
	for id, action := range actions {
		outcome.Log.Actions[id] = *action
	}

	resolveFleeRolls(enc, actions, outcome)
	resolveAttacks(enc, actions, outcome)

	for _, id := range enc.sortedParticipantIDs() {
		p := enc.Participants[id]
		if p.Kind == KindCharacter && p.Fighters == 0 && p.Shields == 0 {
			outcome.Destroyed = append(outcome.Destroyed, id)
		}
	}

	endState := determineEndState(enc, actions, outcome)

	enc.PendingActions = make(map[CombatantID]*RoundAction)
	enc.AwaitingResolution = false
	enc.Logs = append(enc.Logs, outcome.Log)

	if endState != nil {
		outcome.Ended = true
		outcome.EndState = endState
		outcome.Log.Result = endState
		enc.Logs[len(enc.Logs)-1].Result = endState
		enc.Finish(*endState, now)
	} else {
		enc.Round = round + 1
		deadline := now.Add(roundTimeout)
		enc.Deadline = &deadline
		enc.LastUpdated = now
	}

	return outcome
}

// collectActions merges submitted actions with timeout substitutions and
// garrison AI decisions into the full action map for the round
func collectActions(enc *Encounter, now time.Time) map[CombatantID]*RoundAction {
	actions := make(map[CombatantID]*RoundAction, len(enc.Participants))
	for id, action := range enc.PendingActions {
		copied := *action
		actions[id] = &copied
	}
	for _, id := range enc.sortedParticipantIDs() {
		p := enc.Participants[id]
		if _, ok := actions[id]; ok {
			continue
		}
		if p.Fighters == 0 && p.Kind == KindCharacter {
			continue
		}
		switch p.Kind {
		case KindCharacter:
			actions[id] = &RoundAction{Action: ActionBrace, TimedOut: true, SubmittedAt: now}
		case KindGarrison:
			if p.Fighters > 0 {
				derived := DeriveGarrisonAction(enc, p, now)
				actions[id] = &derived
			}
		}
	}
	return actions
}

// resolveFleeRolls decides each fleer's fate before any shots land.
// Successful fleers leave the encounter and take no damage; failures stay
// with no commit and take full damage.
func resolveFleeRolls(enc *Encounter, actions map[CombatantID]*RoundAction, outcome *RoundOutcome) {
	for _, id := range enc.sortedParticipantIDs() {
		action, ok := actions[id]
		if !ok || action.Action != ActionFlee || action.Destination == nil {
			continue
		}
		foes := attackersTargeting(enc, actions, id)
		chance := fleeBaseChance - fleePenaltyPerFoe*float64(foes)
		if chance < fleeMinimumChance {
			chance = fleeMinimumChance
		}
		rng := RoundRNG(enc.BaseSeed, enc.Round, id)
		if rng.Float64() < chance {
			outcome.Fled[id] = *action.Destination
			delete(enc.Participants, id)
		}
	}
}

func attackersTargeting(enc *Encounter, actions map[CombatantID]*RoundAction, target CombatantID) int {
	count := 0
	for id, action := range actions {
		if id == target || action.Action != ActionAttack || action.TargetID == nil {
			continue
		}
		if *action.TargetID == target {
			count++
		}
	}
	return count
}

// resolveAttacks applies every attack in deterministic attacker-id order.
// Damage equals the commit; the attacker's round PRNG splits it between the
// target's shields (40..80%) and fighters, shield overflow destroys
// fighters 1:1, and bracing halves the whole volley. Attackers that land a
// volley suffer PRNG-driven attrition proportional to their commit.
func resolveAttacks(enc *Encounter, actions map[CombatantID]*RoundAction, outcome *RoundOutcome) {
	for _, attackerID := range enc.sortedParticipantIDs() {
		action, ok := actions[attackerID]
		if !ok || action.Action != ActionAttack || action.TargetID == nil {
			continue
		}
		attacker, ok := enc.Participants[attackerID]
		if !ok {
			continue
		}
		target, ok := enc.Participants[*action.TargetID]
		if !ok {
			// Target fled or was never present: the volley whiffs
			continue
		}

		commit := action.Commit
		if commit > attacker.Fighters {
			commit = attacker.Fighters
		}
		if commit <= 0 {
			continue
		}

		rng := RoundRNG(enc.BaseSeed, enc.Round, attackerID)

		damage := float64(commit)
		targetAction := actions[*action.TargetID]
		braced := targetAction != nil && (targetAction.Action == ActionBrace)
		if braced {
			damage *= BraceDamageFactor
		}

		shieldShare := 0.4 + 0.4*rng.Float64()
		shieldDamage := int(math.Round(damage * shieldShare))
		fighterDamage := int(math.Round(damage)) - shieldDamage

		if shieldDamage > target.Shields {
			// Overflow destroys fighters 1:1
			fighterDamage += shieldDamage - target.Shields
			shieldDamage = target.Shields
		}
		target.Shields -= shieldDamage

		if fighterDamage > target.Fighters {
			fighterDamage = target.Fighters
		}
		target.Fighters -= fighterDamage

		attrition := int(math.Round(float64(commit) * attritionBase * (attritionJitterLow + attritionJitterSpan*rng.Float64())))
		if attrition < 1 {
			attrition = 1
		}
		if attrition > attacker.Fighters {
			attrition = attacker.Fighters
		}
		attacker.Fighters -= attrition

		outcome.Log.Hits[attackerID] += shieldDamage + fighterDamage
		outcome.Log.OffensiveLosses[attackerID] += attrition
		outcome.Log.DefensiveLosses[*action.TargetID] += fighterDamage
		outcome.Log.ShieldLoss[*action.TargetID] += shieldDamage
	}
}

// determineEndState classifies the round per the terminal rules:
// toll_satisfied when a toll was paid this round and every character's
// action was brace-or-pay; destroyed_all when at most one side still has
// fighters; fled_out when every remaining character left this round.
func determineEndState(enc *Encounter, actions map[CombatantID]*RoundAction, outcome *RoundOutcome) *EndState {
	if tollSatisfied(enc, actions) {
		state := EndTollSatisfied
		return &state
	}

	if len(outcome.Fled) > 0 && len(enc.Characters()) == 0 {
		state := EndFledOut
		return &state
	}

	sides := make(map[string]bool)
	for _, p := range enc.Participants {
		if p.Fighters > 0 {
			sides[p.SideKey()] = true
		}
	}
	if len(sides) <= 1 {
		state := EndDestroyedAll
		return &state
	}

	return nil
}

// tollSatisfied requires a payment registered for this round and a passive
// (brace or pay) round from every character. Fleeing blocks satisfaction.
func tollSatisfied(enc *Encounter, actions map[CombatantID]*RoundAction) bool {
	paidThisRound := false
	for _, demand := range sortedDemands(enc) {
		if demand.Paid && demand.PaidRound == enc.Round {
			paidThisRound = true
			break
		}
	}
	if !paidThisRound {
		return false
	}
	for id, p := range enc.Participants {
		if p.Kind != KindCharacter {
			continue
		}
		action, ok := actions[id]
		if !ok {
			continue // passive zero-fighter participants count as braced
		}
		if action.Action != ActionBrace && action.Action != ActionPay {
			return false
		}
	}
	return true
}

func sortedDemands(enc *Encounter) []*TollDemand {
	ids := make([]string, 0, len(enc.Context.TollRegistry))
	for id := range enc.Context.TollRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	demands := make([]*TollDemand, 0, len(ids))
	for _, id := range ids {
		demands = append(demands, enc.Context.TollRegistry[id])
	}
	return demands
}
