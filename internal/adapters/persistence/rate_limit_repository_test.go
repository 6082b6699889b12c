package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func TestRateLimitRepository_HitIncrements(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormRateLimitRepository(db)
	ctx := context.Background()
	window := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// Act / Assert - counts climb within one window
	for expected := 1; expected <= 3; expected++ {
		count, err := repo.Hit(ctx, "char-1", "move", window)
		require.NoError(t, err)
		assert.Equal(t, expected, count)
	}
}

func TestRateLimitRepository_WindowsAreIndependent(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormRateLimitRepository(db)
	ctx := context.Background()
	first := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)

	_, err := repo.Hit(ctx, "char-1", "move", first)
	require.NoError(t, err)
	_, err = repo.Hit(ctx, "char-1", "move", first)
	require.NoError(t, err)

	// Act - a fresh window starts back at one
	count, err := repo.Hit(ctx, "char-1", "move", second)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimitRepository_MethodsAreIndependent(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormRateLimitRepository(db)
	ctx := context.Background()
	window := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := repo.Hit(ctx, "char-1", "move", window)
	require.NoError(t, err)

	// Act
	count, err := repo.Hit(ctx, "char-1", "send_message", window)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimitRepository_Reset(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormRateLimitRepository(db)
	ctx := context.Background()
	window := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	_, err := repo.Hit(ctx, "char-1", "move", window)
	require.NoError(t, err)

	// Act
	require.NoError(t, repo.Reset(ctx))

	// Assert
	count, err := repo.Hit(ctx, "char-1", "move", window)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
