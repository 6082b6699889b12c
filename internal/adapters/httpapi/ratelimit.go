package httpapi

import (
	"context"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// MethodLimit is one per-method rate limit: at most Max calls per Window
type MethodLimit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits is the per-method table; methods not listed fall back to
// the "default" entry
func DefaultLimits() map[string]MethodLimit {
	return map[string]MethodLimit{
		"move":          {Max: 30, Window: time.Minute},
		"combat_action": {Max: 60, Window: time.Minute},
		"send_message":  {Max: 20, Window: time.Minute},
		"default":       {Max: 120, Window: time.Minute},
	}
}

// RateLimiter enforces store-backed fixed-window limits per (character,
// method), so restarts and multiple instances share one budget
type RateLimiter struct {
	store  ports.RateLimitRepository
	limits map[string]MethodLimit
	clock  shared.Clock
}

// NewRateLimiter creates a limiter over the given counter store
func NewRateLimiter(store ports.RateLimitRepository, limits map[string]MethodLimit, clock shared.Clock) *RateLimiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &RateLimiter{store: store, limits: limits, clock: clock}
}

// Allow counts one call and fails with a rate limit error once the window
// budget is spent
func (l *RateLimiter) Allow(ctx context.Context, characterID shared.CharacterID, method string) error {
	limit, ok := l.limits[method]
	if !ok {
		limit = l.limits["default"]
	}
	if limit.Max <= 0 {
		return nil
	}
	windowStart := l.clock.Now().Truncate(limit.Window)
	count, err := l.store.Hit(ctx, characterID, method, windowStart)
	if err != nil {
		return shared.NewTransientError("rate limit store unavailable", err)
	}
	if count > limit.Max {
		return shared.NewRateLimitError(method)
	}
	return nil
}
