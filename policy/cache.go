/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"sync"
	"time"
)

// cacheEntry is a single repository's cached central-store snapshot.
type cacheEntry struct {
	policy    EffectivePolicy
	expiresAt time.Time
}

// storeCache is the read-mostly, TTL-bounded cache for central-store
// snapshots described in spec §4.1/§9 ("only two pieces of global state:
// the per-PR lease map and the config cache"). It is a per-key map modeled
// on clonemanager/meta.go's Meta.Get: get reads under the RLock only, and
// set takes the write lock when the resolver stores a freshly fetched
// snapshot after a miss or expiry. There is no recheck under the write lock.
type storeCache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

const (
	minCacheTTL = time.Minute
	maxCacheTTL = 10 * time.Minute
)

// newStoreCache builds a cache with ttl clamped to [minCacheTTL, maxCacheTTL]
// per spec §4.1.
func newStoreCache(ttl time.Duration) *storeCache {
	if ttl < minCacheTTL {
		ttl = minCacheTTL
	}
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	return &storeCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// get returns the cached policy for key if present and unexpired. Both the
// normal hot path (skip the store round-trip entirely while the TTL holds)
// and the fetch-failure fallback path use this same TTL check — spec §4.1
// is explicit that on fetch failure "a cached value within TTL is used;
// else... the built-in defaults" are used instead, so an expired entry must
// never be treated as valid just because it is still present in the map.
func (c *storeCache) get(key string) (EffectivePolicy, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return EffectivePolicy{}, false
	}
	return e.policy, true
}

func (c *storeCache) set(key string, p EffectivePolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{policy: p, expiresAt: time.Now().Add(c.ttl)}
}

// invalidate drops a single repository's cached entry, for explicit refresh.
func (c *storeCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
