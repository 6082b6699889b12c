package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/persistence"
	"github.com/andrescamacho/quadrant-go/internal/domain/character"
	"github.com/andrescamacho/quadrant-go/test/helpers"
)

func TestMapKnowledgeRepository_FindUnseededReturnsEmpty(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormMapKnowledgeRepository(db)

	// Act - a pilot who never moved has an empty map, not an error
	knowledge, err := repo.Find(context.Background(), "char-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, knowledge.TotalVisited)
	assert.Empty(t, knowledge.Sectors)
}

func TestMapKnowledgeRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormMapKnowledgeRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	knowledge := character.NewMapKnowledge("char-1")
	knowledge.RecordVisit(0, []int{1, 2}, 0, 0, nil, now)
	knowledge.RecordVisit(2, []int{0}, 2, 1, &character.PortObservation{Code: "BSS", ObservedAt: now}, now)

	// Act
	require.NoError(t, repo.Save(ctx, knowledge))
	found, err := repo.Find(ctx, "char-1")

	// Assert - the whole document round-trips
	require.NoError(t, err)
	assert.Equal(t, 2, found.TotalVisited)
	assert.Equal(t, 2, found.CurrentSector)
	assert.True(t, found.Visited(0))
	assert.True(t, found.Visited(2))
	require.NotNil(t, found.Sectors[2].Port)
	assert.Equal(t, "BSS", found.Sectors[2].Port.Code)
	assert.Equal(t, []int{1, 2}, found.Sectors[0].Adjacent)
}

func TestMapKnowledgeRepository_SaveIsUpsert(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormMapKnowledgeRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	knowledge := character.NewMapKnowledge("char-1")
	knowledge.RecordVisit(0, []int{1}, 0, 0, nil, now)
	require.NoError(t, repo.Save(ctx, knowledge))

	knowledge.RecordVisit(1, []int{0}, 1, 0, nil, now)

	// Act
	require.NoError(t, repo.Save(ctx, knowledge))
	found, err := repo.Find(ctx, "char-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, found.TotalVisited)
	assert.Equal(t, 1, found.CurrentSector)
}
