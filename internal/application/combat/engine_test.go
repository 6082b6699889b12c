package combat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	appcombat "github.com/andrescamacho/quadrant-go/internal/application/combat"
	"github.com/andrescamacho/quadrant-go/internal/application/events"
	"github.com/andrescamacho/quadrant-go/internal/application/world"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/internal/domain/combat"
	"github.com/andrescamacho/quadrant-go/internal/domain/event"
	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
	"github.com/andrescamacho/quadrant-go/internal/domain/ship"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

type engineFixture struct {
	engine     *appcombat.Engine
	encounters ports.EncounterRepository
	publisher  *helpers.MockPublisher
	clock      *shared.MockClock
}

func newEngineFixture(t *testing.T, encounters ports.EncounterRepository) *engineFixture {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	publisher := &helpers.MockPublisher{}

	characters := persistence.NewGormCharacterRepository(db)
	ships := persistence.NewGormShipRepository(db)
	sectors := persistence.NewGormSectorRepository(db)
	portsRepo := persistence.NewGormPortRepository(db)
	garrisons := persistence.NewGormGarrisonRepository(db)
	salvage := persistence.NewGormSalvageRepository(db)
	knowledge := persistence.NewGormMapKnowledgeRepository(db)
	if encounters == nil {
		encounters = persistence.NewGormEncounterRepository(db)
	}

	observers := events.NewObserverCache(persistence.NewGormObserverRepository(db), clock, 30*time.Second)
	visibility := events.NewVisibility(
		characters,
		garrisons,
		persistence.NewGormCorporationRepository(db),
		observers,
	)
	bus := events.NewBus(persistence.NewGormEventRepository(db), publisher, visibility, clock)
	snapshots := world.NewSnapshotter(sectors, portsRepo, characters, ships, garrisons, salvage, encounters, knowledge)

	ctx := context.Background()
	sectorFive := 5
	require.NoError(t, characters.Save(ctx, &character.Character{ID: "char-alice", Name: "Alice", ShipID: "ship-alice"}))
	require.NoError(t, characters.Save(ctx, &character.Character{ID: "char-bravo", Name: "Bravo", ShipID: "ship-bravo"}))
	require.NoError(t, ships.Save(ctx, &ship.Ship{
		ID: "ship-alice", TypeID: "kestrel_courier", Name: "Dauntless",
		Owner: ship.CharacterOwner("char-alice"), Sector: &sectorFive,
		Cargo: shared.CargoMap{}, WarpPower: 300, Shields: 20, Fighters: 40,
	}))
	require.NoError(t, ships.Save(ctx, &ship.Ship{
		ID: "ship-bravo", TypeID: "kestrel_courier", Name: "Vagabond",
		Owner: ship.CharacterOwner("char-bravo"), Sector: &sectorFive,
		Cargo: shared.CargoMap{}, WarpPower: 300, Shields: 15, Fighters: 30,
	}))

	return &engineFixture{
		engine:     appcombat.NewEngine(characters, ships, garrisons, salvage, encounters, snapshots, bus, clock, 15*time.Second),
		encounters: encounters,
		publisher:  publisher,
		clock:      clock,
	}
}

// bracedStandoff builds a round-1 encounter between Alice and Bravo where
// both have braced, ready for resolution
func bracedStandoff(now time.Time) *combat.Encounter {
	enc := combat.NewEncounter(5, "char-alice", now, 15*time.Second)
	enc.AddParticipant(&combat.CombatantState{
		ID: "char-alice", Kind: combat.KindCharacter, Name: "Alice",
		Fighters: 40, Shields: 20, OwnerID: "char-alice",
	})
	enc.AddParticipant(&combat.CombatantState{
		ID: "char-bravo", Kind: combat.KindCharacter, Name: "Bravo",
		Fighters: 30, Shields: 15, OwnerID: "char-bravo",
	})
	enc.PendingActions["char-alice"] = &combat.RoundAction{Action: combat.ActionBrace, SubmittedAt: now}
	enc.PendingActions["char-bravo"] = &combat.RoundAction{Action: combat.ActionBrace, SubmittedAt: now}
	enc.AwaitingResolution = true
	return enc
}

func roundSource(at time.Time) event.Source {
	return event.NewRPCSource("combat_action", "req-1", at)
}

// contendedEncounterStore fails every Save with a conflict, simulating a
// writer that loses the optimistic-concurrency race on every attempt
type contendedEncounterStore struct {
	now   time.Time
	saves int
}

func (s *contendedEncounterStore) FindByID(ctx context.Context, id shared.CombatID) (*combat.Encounter, error) {
	enc := bracedStandoff(s.now)
	enc.CombatID = id
	enc.BaseSeed = 42
	return enc, nil
}

func (s *contendedEncounterStore) FindActiveBySector(ctx context.Context, sectorID int) (*combat.Encounter, error) {
	return nil, shared.NewNotFoundError("encounter", "no active encounter")
}

func (s *contendedEncounterStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*combat.Encounter, error) {
	return nil, nil
}

func (s *contendedEncounterStore) Create(ctx context.Context, enc *combat.Encounter) error {
	return nil
}

func (s *contendedEncounterStore) Save(ctx context.Context, enc *combat.Encounter, expectedRound int, expectedUpdated time.Time) error {
	s.saves++
	return shared.NewConflictError("encounter row changed underneath")
}

func TestEngine_ResolveRoundSurfacesPublishFailure(t *testing.T) {
	// Arrange
	fx := newEngineFixture(t, nil)
	ctx := context.Background()
	enc := bracedStandoff(fx.clock.Now())
	require.NoError(t, fx.encounters.Create(ctx, enc))
	live, err := fx.encounters.FindByID(ctx, enc.CombatID)
	require.NoError(t, err)
	fx.publisher.FailWith = assert.AnError

	// Act
	err = fx.engine.ResolveRound(ctx, live, roundSource(fx.clock.Now()))

	// Assert - the failure reaches the caller, but the resolved round is
	// already durable
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	stored, findErr := fx.encounters.FindByID(ctx, enc.CombatID)
	require.NoError(t, findErr)
	assert.Equal(t, 2, stored.Round)
	assert.Len(t, stored.Logs, 1)
}

func TestEngine_ResolveRoundRetriesLostSaveRaceOnce(t *testing.T) {
	// Arrange
	clockStart := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := &contendedEncounterStore{now: clockStart}
	fx := newEngineFixture(t, store)
	ctx := context.Background()
	enc, err := store.FindByID(ctx, "combat-contended")
	require.NoError(t, err)

	// Act
	err = fx.engine.ResolveRound(ctx, enc, roundSource(clockStart))

	// Assert - one fresh-read retry, then the conflict surfaces
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, 2, store.saves)
}

func TestEngine_ResolveRoundDropsWorkWhenRoundAlreadyAdvanced(t *testing.T) {
	// Arrange - two reads of the same round-1 encounter; the first writer wins
	fx := newEngineFixture(t, nil)
	ctx := context.Background()
	enc := bracedStandoff(fx.clock.Now())
	require.NoError(t, fx.encounters.Create(ctx, enc))
	stale, err := fx.encounters.FindByID(ctx, enc.CombatID)
	require.NoError(t, err)
	live, err := fx.encounters.FindByID(ctx, enc.CombatID)
	require.NoError(t, err)
	require.NoError(t, fx.engine.ResolveRound(ctx, live, roundSource(fx.clock.Now())))
	published := len(fx.publisher.Envelopes)

	// Act
	err = fx.engine.ResolveRound(ctx, stale, roundSource(fx.clock.Now()))

	// Assert - the loser's work is dropped without error or duplicate events
	require.NoError(t, err)
	assert.Len(t, fx.publisher.Envelopes, published)

	stored, findErr := fx.encounters.FindByID(ctx, enc.CombatID)
	require.NoError(t, findErr)
	assert.Equal(t, 2, stored.Round)
	assert.Len(t, stored.Logs, 1)
}
