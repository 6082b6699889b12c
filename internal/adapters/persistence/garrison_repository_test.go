package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/domain/garrison"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func TestGarrisonRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGarrisonRepository(db)
	ctx := context.Background()

	stack := &garrison.Garrison{
		Sector:     3,
		Owner:      "char-1",
		Fighters:   100,
		Mode:       garrison.Toll,
		TollAmount: 500,
		DeployedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	// Act
	require.NoError(t, repo.Save(ctx, stack))
	found, err := repo.Find(ctx, 3, "char-1")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 100, found.Fighters)
	assert.Equal(t, garrison.Toll, found.Mode)
	assert.Equal(t, 500, found.TollAmount)
}

func TestGarrisonRepository_FindAbsentReturnsNil(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGarrisonRepository(db)

	found, err := repo.Find(context.Background(), 3, "nobody")

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGarrisonRepository_ListBySector(t *testing.T) {
	// Arrange - two stacks in sector 3, one elsewhere
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGarrisonRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Save(ctx, &garrison.Garrison{Sector: 3, Owner: "char-b", Fighters: 10, Mode: garrison.Defensive, DeployedAt: now}))
	require.NoError(t, repo.Save(ctx, &garrison.Garrison{Sector: 3, Owner: "char-a", Fighters: 20, Mode: garrison.Offensive, DeployedAt: now}))
	require.NoError(t, repo.Save(ctx, &garrison.Garrison{Sector: 4, Owner: "char-a", Fighters: 30, Mode: garrison.Defensive, DeployedAt: now}))

	// Act
	stacks, err := repo.ListBySector(ctx, 3)

	// Assert - owner-ordered
	require.NoError(t, err)
	require.Len(t, stacks, 2)
	assert.Equal(t, "char-a", string(stacks[0].Owner))
	assert.Equal(t, "char-b", string(stacks[1].Owner))
}

func TestGarrisonRepository_Delete(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGarrisonRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &garrison.Garrison{Sector: 3, Owner: "char-1", Fighters: 10, Mode: garrison.Defensive, DeployedAt: time.Now().UTC()}))

	// Act
	require.NoError(t, repo.Delete(ctx, 3, "char-1"))

	// Assert
	found, err := repo.Find(ctx, 3, "char-1")
	require.NoError(t, err)
	assert.Nil(t, found)
}
