/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package coordinate

import (
	"strconv"
	"sync"

	"github.com/pvandervelde/merge-warden/platform"
)

// leaseState tracks, per (repo, pr), whether a cycle currently holds the
// lease and at most one coalesced event queued behind it. Only the latest
// queued event is retained: "the queued event replaces any prior queued
// event so only the latest event for that PR runs next" (spec §4.5),
// bounding queue depth to <= 1 per PR by construction rather than by a
// FIFO that implementers are warned away from.
type leaseState struct {
	held   bool
	queued *platform.ProcessEvent
}

// leaseTable is the per-PR lease map, the first of the two pieces of
// global state spec §9 allows. It adapts the lazily-created map entry idiom
// from clonemanager/meta.go's Meta.Get to lease entries, guarded by a
// single sync.Mutex held for each whole operation (no read-lock fast path
// or double-checked locking), since leases have no expensive construction
// step of their own.
type leaseTable struct {
	mu      sync.Mutex
	entries map[string]*leaseState
}

func newLeaseTable() *leaseTable {
	return &leaseTable{entries: make(map[string]*leaseState)}
}

func leaseKey(repo platform.RepoRef, pr uint64) string {
	return repo.String() + "#" + strconv.FormatUint(pr, 10)
}

// acquireOrQueue attempts to take the lease for ev's PR. If the lease is
// free, it is marked held and acquireOrQueue returns true: the caller
// should run the cycle now. If the lease is held by another in-flight
// cycle, ev replaces any previously queued event for that PR and
// acquireOrQueue returns false: the caller does nothing further, since
// whichever goroutine currently holds the lease will pick up the queued
// event on release.
func (t *leaseTable) acquireOrQueue(ev platform.ProcessEvent) bool {
	key := leaseKey(ev.Repo, ev.PRNumber)

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entries[key]
	if !ok {
		st = &leaseState{}
		t.entries[key] = st
	}

	if !st.held {
		st.held = true
		return true
	}

	e := ev
	st.queued = &e
	return false
}

// release drops the lease for (repo, pr). If an event was coalesced while
// the lease was held, release returns it and keeps the lease held for the
// caller to process it immediately (no re-acquire round trip needed, and
// no gap during which a third event could slip into "acquireOrQueue
// succeeds concurrently with another runner").
func (t *leaseTable) release(repo platform.RepoRef, pr uint64) (platform.ProcessEvent, bool) {
	key := leaseKey(repo, pr)

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.entries[key]
	if !ok {
		return platform.ProcessEvent{}, false
	}

	if st.queued != nil {
		next := *st.queued
		st.queued = nil
		return next, true
	}

	st.held = false
	return platform.ProcessEvent{}, false
}
