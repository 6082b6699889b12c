package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/infrastructure/config"
)

func TestLoadConfig_DefaultsApply(t *testing.T) {
	// Arrange - no config file, no env vars
	cfg, err := config.LoadConfig("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Combat.RoundTimeout)
	assert.Equal(t, time.Second, cfg.Combat.TickInterval)
	assert.Equal(t, 20, cfg.Combat.TickBatchSize)
	assert.Equal(t, 5*time.Second, cfg.Movement.DelayPerTurn)
	assert.Equal(t, 1.0, cfg.Movement.DelayScale)
	assert.Equal(t, 30*time.Second, cfg.Observer.CacheTTL)
	assert.Equal(t, 3, cfg.Broadcast.Retries)
	assert.Equal(t, 40*time.Millisecond, cfg.Broadcast.RetryDelay)
	assert.True(t, cfg.Edge.AllowLegacyIDs)
}

func TestLoadConfig_OperationalEnvOverrides(t *testing.T) {
	// Arrange
	t.Setenv("EDGE_API_TOKEN", "secret-token")
	t.Setenv("COMBAT_ROUND_TIMEOUT", "30")
	t.Setenv("COMBAT_TICK_BATCH_SIZE", "50")
	t.Setenv("MOVE_DELAY_SECONDS_PER_TURN", "2.5")
	t.Setenv("SUPABASE_OBSERVER_CACHE_TTL_MS", "5000")
	t.Setenv("EDGE_BROADCAST_RETRIES", "5")
	t.Setenv("EDGE_BROADCAST_RETRY_DELAY_MS", "100")
	t.Setenv("SUPABASE_ALLOW_LEGACY_IDS", "false")

	// Act
	cfg, err := config.LoadConfig("")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Edge.APIToken)
	assert.Equal(t, 30*time.Second, cfg.Combat.RoundTimeout)
	assert.Equal(t, 50, cfg.Combat.TickBatchSize)
	assert.Equal(t, 2500*time.Millisecond, cfg.Movement.DelayPerTurn)
	assert.Equal(t, 5*time.Second, cfg.Observer.CacheTTL)
	assert.Equal(t, 5, cfg.Broadcast.Retries)
	assert.Equal(t, 100*time.Millisecond, cfg.Broadcast.RetryDelay)
	assert.False(t, cfg.Edge.AllowLegacyIDs)
}

func TestLoadConfig_RejectsNegativeBatchSize(t *testing.T) {
	t.Setenv("COMBAT_TICK_BATCH_SIZE", "-1")

	_, err := config.LoadConfig("")

	assert.Error(t, err)
}
