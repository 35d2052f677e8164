/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package coordinate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metrics registered once at init, the observability
// supplement SPEC_FULL.md §9 adds on top of spec.md's required per-cycle
// audit record. Grounded on the teacher's own global-var
// promauto.NewCounterVec idiom (agents/evals/metrics.go), kept as package
// singletons rather than per-Coordinator instances so that constructing
// more than one Coordinator in a process (or in tests) never double
// registers a collector with the default registry.
var (
	cyclesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_cycles_processed_total",
		Help: "Total number of reconciliation cycles completed.",
	})
	cyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_cycles_skipped_total",
		Help: "Total number of cycles short-circuited to a no-op (closed/merged PR, stale event, bot-label echo).",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "merge_warden_cycle_duration_seconds",
		Help:    "Wall-clock duration of a full reconciliation cycle.",
		Buckets: prometheus.DefBuckets,
	})
	configDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_config_degraded_total",
		Help: "Total number of cycles that fell back to default policy because the central store was unreachable with no cached value.",
	})
	configErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_config_errors_total",
		Help: "Total number of cycles that hit a permanent ConfigError.",
	})
	bypassApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_bypass_applied_total",
		Help: "Total number of individual check bypasses applied.",
	})
	authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_auth_failures_total",
		Help: "Total number of platform authentication failures observed.",
	})
	panicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_panics_recovered_total",
		Help: "Total number of panics recovered at the cycle boundary.",
	})
	eventsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "merge_warden_events_coalesced_total",
		Help: "Total number of events coalesced behind an in-flight lease for the same PR.",
	})
)
