package mealdb

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/bitematch/internal/model"
)

// Cache stores meal details by id. Implementations treat backend errors as
// misses.
type Cache interface {
	Get(ctx context.Context, id string) (*model.MealDetail, bool)
	Set(ctx context.Context, id string, meal model.MealDetail, ttl time.Duration)
}

type memoryEntry struct {
	meal      model.MealDetail
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, id string) (*model.MealDetail, bool) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	meal := e.meal
	return &meal, true
}

func (c *MemoryCache) Set(_ context.Context, id string, meal model.MealDetail, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = memoryEntry{meal: meal, expiresAt: c.now().Add(ttl)}
}

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
