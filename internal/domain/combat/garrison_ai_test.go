package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
)

func addGarrison(enc *combat.Encounter, owner string, fighters int, mode string, tollAmount int) *combat.CombatantState {
	state := &combat.CombatantState{
		ID:       "garrison:5:" + owner,
		Kind:     combat.KindGarrison,
		Name:     owner + "'s garrison",
		Fighters: fighters,
		OwnerID:  "gorin",
		Metadata: map[string]interface{}{"mode": mode, "toll_amount": tollAmount},
	}
	enc.AddParticipant(state)
	return state
}

func TestDeriveGarrisonAction_OffensiveCommit(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 200, "offensive", 0)

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	// commit = max(50, 200/2) capped at the stack size
	require.Equal(t, combat.ActionAttack, action.Action)
	assert.Equal(t, 100, action.Commit)
	require.NotNil(t, action.TargetID)
	assert.Equal(t, combat.CombatantID("alice"), *action.TargetID)
}

func TestDeriveGarrisonAction_DefensiveCommit(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 60, "defensive", 0)

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	// commit = max(25, 60/4) = 25
	require.Equal(t, combat.ActionAttack, action.Action)
	assert.Equal(t, 25, action.Commit)
}

func TestDeriveGarrisonAction_SmallStackCommitsEverything(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 10, "offensive", 0)

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	require.Equal(t, combat.ActionAttack, action.Action)
	assert.Equal(t, 10, action.Commit)
}

func TestDeriveGarrisonAction_NoEligibleTargetBraces(t *testing.T) {
	enc := newTestEncounter(1)
	g := addGarrison(enc, "gorin", 100, "offensive", 0)
	// The only pilot flies an escape pod
	enc.AddParticipant(&combat.CombatantState{
		ID: "alice", Kind: combat.KindCharacter, Fighters: 5, OwnerID: "alice", IsEscapePod: true,
	})

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	assert.Equal(t, combat.ActionBrace, action.Action)
}

func TestDeriveGarrisonAction_TollDemandRoundHoldsFire(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 100, "toll", 500)

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	// The first toll round registers the demand and braces
	assert.Equal(t, combat.ActionBrace, action.Action)
	demand := enc.Context.TollRegistry[g.ID]
	require.NotNil(t, demand)
	assert.Equal(t, combat.CombatantID("alice"), demand.TargetID)
	assert.Equal(t, 500, demand.Amount)
	assert.Equal(t, 1, demand.DemandRound)
	assert.False(t, demand.Paid)
}

func TestDeriveGarrisonAction_TollUnpaidAttacksFullStack(t *testing.T) {
	enc := newTestEncounter(1)
	enc.Round = 2
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 100, "toll", 500)
	enc.Context.TollRegistry[g.ID] = &combat.TollDemand{
		GarrisonID: g.ID, TargetID: "alice", Amount: 500, DemandRound: 1,
	}

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	require.Equal(t, combat.ActionAttack, action.Action)
	assert.Equal(t, 100, action.Commit)
	require.NotNil(t, action.TargetID)
	assert.Equal(t, combat.CombatantID("alice"), *action.TargetID)
}

func TestDeriveGarrisonAction_TollPaidBraces(t *testing.T) {
	enc := newTestEncounter(1)
	enc.Round = 2
	addPilot(enc, "alice", 80, 50)
	g := addGarrison(enc, "gorin", 100, "toll", 500)
	enc.Context.TollRegistry[g.ID] = &combat.TollDemand{
		GarrisonID: g.ID, TargetID: "alice", Amount: 500, DemandRound: 1, Paid: true, PaidRound: 2,
	}

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	assert.Equal(t, combat.ActionBrace, action.Action)
}

func TestGarrisonMode_DefaultsToDefensive(t *testing.T) {
	state := &combat.CombatantState{ID: "garrison:1:x", Kind: combat.KindGarrison}
	assert.Equal(t, "defensive", string(combat.GarrisonMode(state)))

	state.Metadata = map[string]interface{}{"mode": "bogus"}
	assert.Equal(t, "defensive", string(combat.GarrisonMode(state)))

	state.Metadata = map[string]interface{}{"mode": "toll"}
	assert.Equal(t, "toll", string(combat.GarrisonMode(state)))
}

func TestStrongestTargetPrefersMoreFighters(t *testing.T) {
	enc := newTestEncounter(1)
	addPilot(enc, "alice", 40, 10)
	addPilot(enc, "bravo", 90, 5)
	g := addGarrison(enc, "gorin", 100, "offensive", 0)

	action := combat.DeriveGarrisonAction(enc, g, resolverNow)

	require.NotNil(t, action.TargetID)
	assert.Equal(t, combat.CombatantID("bravo"), *action.TargetID)
}
