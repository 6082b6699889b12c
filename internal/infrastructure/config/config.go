package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Edge      EdgeConfig      `mapstructure:"edge"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Combat    CombatConfig    `mapstructure:"combat"`
	Movement  MovementConfig  `mapstructure:"movement"`
	Observer  ObserverConfig  `mapstructure:"observer"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// EdgeConfig holds the endpoint auth surface
type EdgeConfig struct {
	// Shared secret for the x-api-token header; empty enables the
	// local-dev bypass
	APIToken string `mapstructure:"api_token"`

	// Admin gate: plaintext password or its SHA-256 hex digest
	AdminPassword     string `mapstructure:"admin_password"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`

	// Legacy character-name ids hashed into v5 UUIDs
	AllowLegacyIDs    bool   `mapstructure:"allow_legacy_ids"`
	LegacyIDNamespace string `mapstructure:"legacy_id_namespace"`
}

// BroadcastConfig holds the realtime push gateway settings
type BroadcastConfig struct {
	URL        string        `mapstructure:"url"`
	Token      string        `mapstructure:"token"`
	Retries    int           `mapstructure:"retries" validate:"min=0"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// CombatConfig tunes the combat engine and tick loop
type CombatConfig struct {
	RoundTimeout  time.Duration `mapstructure:"round_timeout"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	TickBatchSize int           `mapstructure:"tick_batch_size" validate:"min=1"`
}

// MovementConfig tunes hyperspace transit latency
type MovementConfig struct {
	DelayPerTurn time.Duration `mapstructure:"delay_per_turn"`
	DelayScale   float64       `mapstructure:"delay_scale"`
}

// ObserverConfig tunes the observer channel cache
type ObserverConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LoadConfig loads configuration with priority: environment variables, then
// the optional config file, then defaults
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/quadrant")
	}

	v.SetEnvPrefix("QUADRANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy ids stay accepted until deployments opt out explicitly
	v.SetDefault("edge.allow_legacy_ids", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars and defaults apply
	}

	applyWellKnownEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyWellKnownEnv maps the unprefixed operational variables the deployment
// environment sets onto their config keys
func applyWellKnownEnv(v *viper.Viper) {
	setString := func(key, env string) {
		if value := os.Getenv(env); value != "" {
			v.Set(key, value)
		}
	}
	setString("database.url", "DATABASE_URL")
	setString("edge.api_token", "EDGE_API_TOKEN")
	setString("edge.admin_password", "EDGE_ADMIN_PASSWORD")
	setString("edge.admin_password_hash", "EDGE_ADMIN_PASSWORD_HASH")
	setString("edge.legacy_id_namespace", "SUPABASE_LEGACY_ID_NAMESPACE")
	setString("broadcast.url", "EDGE_BROADCAST_URL")
	setString("broadcast.token", "EDGE_BROADCAST_TOKEN")

	if value := os.Getenv("SUPABASE_ALLOW_LEGACY_IDS"); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			v.Set("edge.allow_legacy_ids", parsed)
		}
	}
	if value := os.Getenv("COMBAT_ROUND_TIMEOUT"); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			v.Set("combat.round_timeout", time.Duration(seconds)*time.Second)
		}
	}
	if value := os.Getenv("COMBAT_TICK_BATCH_SIZE"); value != "" {
		if size, err := strconv.Atoi(value); err == nil {
			v.Set("combat.tick_batch_size", size)
		}
	}
	if value := os.Getenv("MOVE_DELAY_SECONDS_PER_TURN"); value != "" {
		if seconds, err := strconv.ParseFloat(value, 64); err == nil {
			v.Set("movement.delay_per_turn", time.Duration(seconds*float64(time.Second)))
		}
	}
	if value := os.Getenv("MOVE_DELAY_SCALE"); value != "" {
		if scale, err := strconv.ParseFloat(value, 64); err == nil {
			v.Set("movement.delay_scale", scale)
		}
	}
	if value := os.Getenv("SUPABASE_OBSERVER_CACHE_TTL_MS"); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			v.Set("observer.cache_ttl", time.Duration(ms)*time.Millisecond)
		}
	}
	if value := os.Getenv("EDGE_BROADCAST_RETRIES"); value != "" {
		if retries, err := strconv.Atoi(value); err == nil {
			v.Set("broadcast.retries", retries)
		}
	}
	if value := os.Getenv("EDGE_BROADCAST_RETRY_DELAY_MS"); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			v.Set("broadcast.retry_delay", time.Duration(ms)*time.Millisecond)
		}
	}
}
