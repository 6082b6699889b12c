package combat_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

var resolverNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestEncounter(seed uint32) *combat.Encounter {
	return &combat.Encounter{
		CombatID:       shared.CombatID("11111111-2222-3333-4444-555555555555"),
		Sector:         5,
		Round:          1,
		Participants:   make(map[combat.CombatantID]*combat.CombatantState),
		PendingActions: make(map[combat.CombatantID]*combat.RoundAction),
		Context: combat.EncounterContext{
			Initiator:    "alice",
			CreatedAt:    resolverNow,
			TollRegistry: make(map[combat.CombatantID]*combat.TollDemand),
		},
		BaseSeed:    seed,
		LastUpdated: resolverNow,
	}
}

func addPilot(enc *combat.Encounter, id string, fighters, shields int) {
	enc.AddParticipant(&combat.CombatantState{
		ID:       id,
		Kind:     combat.KindCharacter,
		Name:     id,
		Fighters: fighters,
		Shields:  shields,
		OwnerID:  shared.CharacterID(id),
	})
}

func attack(target string, commit int) *combat.RoundAction {
	targetID := combat.CombatantID(target)
	return &combat.RoundAction{Action: combat.ActionAttack, Commit: commit, TargetID: &targetID, SubmittedAt: resolverNow}
}

func cloneEncounter(t *testing.T, enc *combat.Encounter) *combat.Encounter {
	raw, err := json.Marshal(enc)
	require.NoError(t, err)
	var copied combat.Encounter
	require.NoError(t, json.Unmarshal(raw, &copied))
	return &copied
}

func TestResolve_Deterministic(t *testing.T) {
	// Arrange - two identical encounters, both pilots attacking
	first := newTestEncounter(9001)
	addPilot(first, "alice", 100, 100)
	addPilot(first, "bravo", 80, 60)
	first.PendingActions["alice"] = attack("bravo", 50)
	first.PendingActions["bravo"] = attack("alice", 40)
	second := cloneEncounter(t, first)

	// Act
	outcomeA := combat.Resolve(first, resolverNow, combat.DefaultRoundTimeout)
	outcomeB := combat.Resolve(second, resolverNow, combat.DefaultRoundTimeout)

	// Assert - bit-identical hits, losses and surviving state
	assert.Equal(t, outcomeA.Log.Hits, outcomeB.Log.Hits)
	assert.Equal(t, outcomeA.Log.OffensiveLosses, outcomeB.Log.OffensiveLosses)
	assert.Equal(t, outcomeA.Log.DefensiveLosses, outcomeB.Log.DefensiveLosses)
	assert.Equal(t, outcomeA.Log.ShieldLoss, outcomeB.Log.ShieldLoss)
	assert.Equal(t, outcomeA.EndState, outcomeB.EndState)
	for id := range first.Participants {
		require.Contains(t, second.Participants, id)
		assert.Equal(t, first.Participants[id].Fighters, second.Participants[id].Fighters)
		assert.Equal(t, first.Participants[id].Shields, second.Participants[id].Shields)
	}
}

func TestResolve_BraceHalvesIncomingDamage(t *testing.T) {
	// Arrange - bravo braces against a 20-fighter volley
	enc := newTestEncounter(7)
	addPilot(enc, "alice", 100, 100)
	addPilot(enc, "bravo", 100, 100)
	enc.PendingActions["alice"] = attack("bravo", 20)
	enc.PendingActions["bravo"] = &combat.RoundAction{Action: combat.ActionBrace, SubmittedAt: resolverNow}

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert - shields absorb the split but the total volley is halved
	assert.Equal(t, 10, outcome.Log.Hits["alice"])
	assert.Equal(t, 10, outcome.Log.ShieldLoss["bravo"]+outcome.Log.DefensiveLosses["bravo"])
	assert.Equal(t, 100-outcome.Log.ShieldLoss["bravo"], enc.Participants["bravo"].Shields)
}

func TestResolve_AttritionStaysInBand(t *testing.T) {
	// Arrange
	enc := newTestEncounter(31337)
	addPilot(enc, "alice", 100, 100)
	addPilot(enc, "bravo", 100, 100)
	enc.PendingActions["alice"] = attack("bravo", 20)
	enc.PendingActions["bravo"] = &combat.RoundAction{Action: combat.ActionBrace, SubmittedAt: resolverNow}

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert - a 20-commit attacker loses 25% +/- jitter of the commit
	attrition := outcome.Log.OffensiveLosses["alice"]
	assert.GreaterOrEqual(t, attrition, 3)
	assert.LessOrEqual(t, attrition, 7)
	assert.Equal(t, 100-attrition, enc.Participants["alice"].Fighters)
}

func TestResolve_ShieldOverflowDestroysFighters(t *testing.T) {
	// Arrange - bravo cannot absorb the volley with 5 shields
	enc := newTestEncounter(42)
	addPilot(enc, "alice", 200, 100)
	addPilot(enc, "bravo", 5, 5)
	enc.PendingActions["alice"] = attack("bravo", 100)

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert - bravo is wiped and the encounter ends
	assert.Equal(t, 0, enc.Participants["bravo"].Shields)
	assert.Equal(t, 0, enc.Participants["bravo"].Fighters)
	assert.Contains(t, outcome.Destroyed, combat.CombatantID("bravo"))
	require.True(t, outcome.Ended)
	require.NotNil(t, outcome.EndState)
	assert.Equal(t, combat.EndDestroyedAll, *outcome.EndState)
	assert.True(t, enc.Ended)
	assert.Nil(t, enc.Deadline)
}

func TestResolve_TimeoutSubstitutesBrace(t *testing.T) {
	// Arrange - bravo never submits an action
	enc := newTestEncounter(5)
	addPilot(enc, "alice", 100, 100)
	addPilot(enc, "bravo", 100, 100)
	enc.PendingActions["alice"] = attack("bravo", 20)

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert - the substituted brace is logged and halves the volley
	bravoAction, ok := outcome.Log.Actions["bravo"]
	require.True(t, ok)
	assert.Equal(t, combat.ActionBrace, bravoAction.Action)
	assert.True(t, bravoAction.TimedOut)
	assert.Equal(t, 10, outcome.Log.Hits["alice"])
}

func TestResolve_FleeRollMatchesRoundRNG(t *testing.T) {
	// Arrange - alice flees while bravo targets her, so the success chance
	// drops to 0.70. The expected outcome mirrors the resolver's own PRNG.
	enc := newTestEncounter(12345)
	addPilot(enc, "alice", 50, 50)
	addPilot(enc, "bravo", 50, 50)
	dest := 2
	enc.PendingActions["alice"] = &combat.RoundAction{Action: combat.ActionFlee, Destination: &dest, SubmittedAt: resolverNow}
	enc.PendingActions["bravo"] = attack("alice", 10)
	expectFled := combat.RoundRNG(enc.BaseSeed, enc.Round, "alice").Float64() < 0.70

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert
	if expectFled {
		assert.Equal(t, 2, outcome.Fled["alice"])
		assert.NotContains(t, enc.Participants, combat.CombatantID("alice"))
		// The volley whiffs against a fleer who already left
		assert.Zero(t, outcome.Log.Hits["bravo"])
	} else {
		assert.NotContains(t, outcome.Fled, combat.CombatantID("alice"))
		assert.Contains(t, enc.Participants, combat.CombatantID("alice"))
		assert.Equal(t, 10, outcome.Log.Hits["bravo"])
	}
}

func TestResolve_AllCharactersFledEndsEncounter(t *testing.T) {
	// Arrange - find a seed whose round-1 roll lets alice escape while the
	// garrison targets her (one foe, so the chance is 0.70), then assert the
	// fled_out terminal state
	var seed uint32
	found := false
	for candidate := uint32(0); candidate < 100; candidate++ {
		if combat.RoundRNG(candidate, 1, "alice").Float64() < 0.70 {
			seed = candidate
			found = true
			break
		}
	}
	require.True(t, found)

	enc := newTestEncounter(seed)
	addPilot(enc, "alice", 50, 50)
	enc.AddParticipant(&combat.CombatantState{
		ID:       "garrison:5:gorin",
		Kind:     combat.KindGarrison,
		Name:     "gorin's garrison",
		Fighters: 100,
		OwnerID:  "gorin",
		Metadata: map[string]interface{}{"mode": "defensive"},
	})
	dest := 4
	enc.PendingActions["alice"] = &combat.RoundAction{Action: combat.ActionFlee, Destination: &dest, SubmittedAt: resolverNow}

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert
	assert.Equal(t, 4, outcome.Fled["alice"])
	require.True(t, outcome.Ended)
	require.NotNil(t, outcome.EndState)
	assert.Equal(t, combat.EndFledOut, *outcome.EndState)
}

func TestResolve_TollSatisfiedEndsEncounter(t *testing.T) {
	// Arrange - the toll was paid this round and alice holds fire
	enc := newTestEncounter(77)
	addPilot(enc, "alice", 50, 50)
	garrisonID := combat.CombatantID("garrison:5:gorin")
	enc.AddParticipant(&combat.CombatantState{
		ID:       garrisonID,
		Kind:     combat.KindGarrison,
		Name:     "gorin's garrison",
		Fighters: 100,
		OwnerID:  "gorin",
		Metadata: map[string]interface{}{"mode": "toll", "toll_amount": 500},
	})
	enc.Context.TollRegistry[garrisonID] = &combat.TollDemand{
		GarrisonID:  garrisonID,
		TargetID:    "alice",
		Amount:      500,
		DemandRound: 1,
		Paid:        true,
		PaidRound:   1,
	}
	enc.PendingActions["alice"] = &combat.RoundAction{Action: combat.ActionPay, SubmittedAt: resolverNow}

	// Act
	outcome := combat.Resolve(enc, resolverNow, combat.DefaultRoundTimeout)

	// Assert
	require.True(t, outcome.Ended)
	require.NotNil(t, outcome.EndState)
	assert.Equal(t, combat.EndTollSatisfied, *outcome.EndState)
	assert.Equal(t, 50, enc.Participants["alice"].Fighters)
}

func TestResolve_AdvancesRoundAndArmsDeadline(t *testing.T) {
	// Arrange - a standoff that resolves without a terminal state
	enc := newTestEncounter(3)
	addPilot(enc, "alice", 100, 100)
	addPilot(enc, "bravo", 100, 100)
	enc.PendingActions["alice"] = attack("bravo", 10)
	enc.PendingActions["bravo"] = attack("alice", 10)

	// Act
	outcome := combat.Resolve(enc, resolverNow, 15*time.Second)

	// Assert
	assert.False(t, outcome.Ended)
	assert.Equal(t, 2, enc.Round)
	require.NotNil(t, enc.Deadline)
	assert.Equal(t, resolverNow.Add(15*time.Second), *enc.Deadline)
	assert.Empty(t, enc.PendingActions)
	require.Len(t, enc.Logs, 1)
	assert.Equal(t, 1, enc.Logs[0].Round)
}

func TestRoundRNG_StableAcrossCalls(t *testing.T) {
	a := combat.RoundRNG(1234, 3, "alice").Float64()
	b := combat.RoundRNG(1234, 3, "alice").Float64()
	other := combat.RoundRNG(1234, 3, "bravo").Float64()
	nextRound := combat.RoundRNG(1234, 4, "alice").Float64()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.NotEqual(t, a, nextRound)
}

func TestBaseSeedFromCombatID(t *testing.T) {
	seed := combat.BaseSeedFromCombatID("0000002a-0000-0000-0000-000000000000")
	assert.Equal(t, uint32(42), seed)

	// Same id yields the same seed
	again := combat.BaseSeedFromCombatID("0000002a-0000-0000-0000-000000000000")
	assert.Equal(t, seed, again)
}

func TestEncounter_AllCombatantsReady(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 100, 100)
	addPilot(enc, "bravo", 100, 100)
	enc.AddParticipant(&combat.CombatantState{
		ID: "garrison:5:gorin", Kind: combat.KindGarrison, Fighters: 50, OwnerID: "gorin",
	})

	assert.False(t, enc.AllCombatantsReady())

	enc.PendingActions["alice"] = attack("bravo", 10)
	assert.False(t, enc.AllCombatantsReady())

	// Garrisons never gate readiness
	enc.PendingActions["bravo"] = &combat.RoundAction{Action: combat.ActionBrace}
	assert.True(t, enc.AllCombatantsReady())
}

func TestEncounter_DeadlinePassed(t *testing.T) {
	enc := newTestEncounter(1)
	deadline := resolverNow.Add(15 * time.Second)
	enc.Deadline = &deadline

	assert.False(t, enc.DeadlinePassed(resolverNow))
	assert.True(t, enc.DeadlinePassed(deadline))
	assert.True(t, enc.DeadlinePassed(deadline.Add(time.Second)))

	enc.Deadline = nil
	assert.False(t, enc.DeadlinePassed(resolverNow))
}
