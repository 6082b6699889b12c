package events

import (
	"context"
	"sync"
	"time"

	"github.com/andrescamacho/quadrant-go/internal/domain/ports"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

// DefaultObserverTTL is how long cached observer-channel lists stay fresh
const DefaultObserverTTL = 30 * time.Second

// ObserverCache is a per-process TTL read-through cache over the observer
// channel registry. Stale reads are acceptable: a newly attached observer
// may miss at most one TTL window of events.
type ObserverCache struct {
	repo  ports.ObserverRepository
	clock shared.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[int]observerEntry
}

type observerEntry struct {
	channels  []string
	fetchedAt time.Time
}

// NewObserverCache creates the cache with the given TTL
func NewObserverCache(repo ports.ObserverRepository, clock shared.Clock, ttl time.Duration) *ObserverCache {
	if ttl <= 0 {
		ttl = DefaultObserverTTL
	}
	return &ObserverCache{
		repo:    repo,
		clock:   clock,
		ttl:     ttl,
		entries: make(map[int]observerEntry),
	}
}

// ChannelsForSector returns the observer channels for a sector, reading
// through to the store when the cached entry has expired
func (c *ObserverCache) ChannelsForSector(ctx context.Context, sectorID int) ([]string, error) {
	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[sectorID]
	c.mu.RUnlock()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		return entry.channels, nil
	}

	channels, err := c.repo.ChannelsForSector(ctx, sectorID)
	if err != nil {
		// Serve stale on a store blip rather than dropping observers
		if ok {
			return entry.channels, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[sectorID] = observerEntry{channels: channels, fetchedAt: now}
	c.mu.Unlock()
	return channels, nil
}
