/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"testing"
	"time"
)

func TestStoreCache_GetMissingKey(t *testing.T) {
	c := newStoreCache(time.Minute)
	if _, ok := c.get("acme/widgets"); ok {
		t.Error("get on empty cache returned ok=true, want false")
	}
}

func TestStoreCache_SetThenGetHitsWithinTTL(t *testing.T) {
	c := newStoreCache(time.Minute)
	want := DefaultPolicy()
	want.WorkItem.Required = true
	c.set("acme/widgets", want)

	got, ok := c.get("acme/widgets")
	if !ok {
		t.Fatal("get after set returned ok=false, want true")
	}
	if got.WorkItem.Required != want.WorkItem.Required {
		t.Errorf("WorkItem.Required = %v, want %v", got.WorkItem.Required, want.WorkItem.Required)
	}
}

// TestStoreCache_ExpiredEntryIsNotServed pins an entry whose expiresAt is
// already in the past directly (bypassing set's clamped TTL, since the
// minimum clamp of one minute makes a real-time expiry wait impractical in a
// unit test) and asserts get() refuses to return it. Spec §4.1 is explicit
// that only a value "within TTL" may be used on the fetch-failure fallback
// path; an expired-but-present entry must behave like a miss.
func TestStoreCache_ExpiredEntryIsNotServed(t *testing.T) {
	c := newStoreCache(time.Minute)
	c.mu.Lock()
	c.entries["acme/widgets"] = cacheEntry{policy: DefaultPolicy(), expiresAt: time.Now().Add(-time.Second)}
	c.mu.Unlock()

	if _, ok := c.get("acme/widgets"); ok {
		t.Error("get returned an expired entry as valid, want ok=false")
	}
}

func TestStoreCache_Invalidate(t *testing.T) {
	c := newStoreCache(time.Minute)
	c.set("acme/widgets", DefaultPolicy())
	c.invalidate("acme/widgets")
	if _, ok := c.get("acme/widgets"); ok {
		t.Error("get after invalidate returned ok=true, want false")
	}
}
