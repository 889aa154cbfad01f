package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// permissionCache is a short-lived read cache for resolver results.
// It is latency-only: grant and revoke invalidate the affected user
// synchronously, and a TTL of zero disables caching entirely.
type permissionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[uuid.UUID]map[string]cacheEntry
}

type cacheEntry struct {
	granted   bool
	expiresAt time.Time
}

func newPermissionCache(ttl time.Duration) *permissionCache {
	return &permissionCache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]map[string]cacheEntry),
	}
}

func (c *permissionCache) get(userID uuid.UUID, permission string) (bool, bool) {
	if c.ttl <= 0 {
		return false, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	byPerm, ok := c.entries[userID]
	if !ok {
		return false, false
	}
	e, ok := byPerm[permission]
	if !ok || time.Now().After(e.expiresAt) {
		return false, false
	}
	return e.granted, true
}

func (c *permissionCache) set(userID uuid.UUID, permission string, granted bool) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	byPerm, ok := c.entries[userID]
	if !ok {
		byPerm = make(map[string]cacheEntry)
		c.entries[userID] = byPerm
	}
	byPerm[permission] = cacheEntry{granted: granted, expiresAt: time.Now().Add(c.ttl)}
}

func (c *permissionCache) invalidateUser(userID uuid.UUID) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}
