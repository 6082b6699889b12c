package character_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/domain/character"
)

func TestMapKnowledge_RecordVisit(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	knowledge := character.NewMapKnowledge("pilot-1")

	first := knowledge.RecordVisit(0, []int{1, 2}, 0, 0, nil, now)

	assert.True(t, first)
	assert.Equal(t, 1, knowledge.TotalVisited)
	assert.Equal(t, 0, knowledge.CurrentSector)
	assert.True(t, knowledge.Visited(0))
	assert.False(t, knowledge.Visited(1))
}

func TestMapKnowledge_RevisitIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	knowledge := character.NewMapKnowledge("pilot-1")
	knowledge.RecordVisit(0, []int{1}, 0, 0, nil, now)
	knowledge.RecordVisit(1, []int{0, 2}, 1, 0, nil, now)

	again := knowledge.RecordVisit(0, []int{1}, 0, 0, nil, now.Add(time.Minute))

	assert.False(t, again)
	assert.Equal(t, 2, knowledge.TotalVisited)
	assert.Equal(t, 0, knowledge.CurrentSector)
	assert.Equal(t, now.Add(time.Minute), knowledge.Sectors[0].LastVisited)
}

func TestMapKnowledge_RevisitRefreshesPortObservation(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	knowledge := character.NewMapKnowledge("pilot-1")
	knowledge.RecordVisit(2, []int{1}, 2, 0, &character.PortObservation{Code: "BSS", ObservedAt: now}, now)

	later := now.Add(time.Hour)
	knowledge.RecordVisit(2, []int{1}, 2, 0, &character.PortObservation{Code: "BSS", ObservedAt: later}, later)

	require.NotNil(t, knowledge.Sectors[2].Port)
	assert.Equal(t, later, knowledge.Sectors[2].Port.ObservedAt)
	assert.Equal(t, 1, knowledge.TotalVisited)
}
