package config

import "time"

// SetDefaults fills zero values with sensible defaults
func SetDefaults(cfg *Config) {
	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Type == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "quadrant.db"
	}
	if cfg.Database.Type == "postgres" {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 20
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = time.Hour
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.Broadcast.Retries == 0 {
		cfg.Broadcast.Retries = 3
	}
	if cfg.Broadcast.RetryDelay == 0 {
		cfg.Broadcast.RetryDelay = 40 * time.Millisecond
	}

	if cfg.Combat.RoundTimeout == 0 {
		cfg.Combat.RoundTimeout = 15 * time.Second
	}
	if cfg.Combat.TickInterval == 0 {
		cfg.Combat.TickInterval = time.Second
	}
	if cfg.Combat.TickBatchSize == 0 {
		cfg.Combat.TickBatchSize = 20
	}

	if cfg.Movement.DelayPerTurn == 0 {
		cfg.Movement.DelayPerTurn = 5 * time.Second
	}
	if cfg.Movement.DelayScale == 0 {
		cfg.Movement.DelayScale = 1.0
	}

	if cfg.Observer.CacheTTL == 0 {
		cfg.Observer.CacheTTL = 30 * time.Second
	}
}
