/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package auditlog emits the structured per-cycle audit record spec §4.5
// requires: one record per reconciliation cycle, carrying outcomes and
// mutations applied but never PR body text. It is a thin wrapper over
// clog's structured logging, matching the rest of the core's logging
// idiom rather than standing up a separate event-bus dependency.
package auditlog

import (
	"context"

	"github.com/chainguard-dev/clog"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/reconcile"
	"github.com/pvandervelde/merge-warden/validate"
)

// maxLoggedTitleLen is spec §4.5's "titles may be logged truncated to 120
// chars" bound.
const maxLoggedTitleLen = 120

// Record is one cycle's audit record, per spec §4.5:
// {repo, pr, event_kind, outcomes, mutations_applied, duration_ms, degraded_config}.
type Record struct {
	Repo           platform.RepoRef
	PR             uint64
	EventKind      platform.EventKind
	Title          string
	Outcomes       []validate.CheckOutcome
	Report         reconcile.Report
	DurationMS     int64
	DegradedConfig bool
}

// Emit writes one structured audit record. It never logs PR body text; the
// title is truncated to maxLoggedTitleLen characters.
func Emit(ctx context.Context, r Record) {
	log := clog.FromContext(ctx)

	summaries := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		summaries = append(summaries, string(o.Kind)+"="+string(o.Status))
	}

	log.Infof(
		"merge-warden cycle complete: repo=%s pr=%d event=%s title=%q outcomes=%v labels_added=%v labels_removed=%v comments_created=%v comments_updated=%v comments_deleted=%v status=%s duration_ms=%d degraded_config=%v partial_failure=%v",
		r.Repo, r.PR, r.EventKind, truncate(r.Title, maxLoggedTitleLen), summaries,
		r.Report.LabelsAdded, r.Report.LabelsRemoved,
		r.Report.CommentsCreated, r.Report.CommentsUpdated, r.Report.CommentsDeleted,
		r.Report.StatusConclusion, r.DurationMS, r.DegradedConfig, r.Report.PartialFailure,
	)
}

// EmitSkipped records a cycle that short-circuited to a no-op (spec §6:
// Closed/Merged events, or a stale/not-found PR).
func EmitSkipped(ctx context.Context, repo platform.RepoRef, pr uint64, kind platform.EventKind, reason string) {
	log := clog.FromContext(ctx)
	log.Infof("merge-warden cycle skipped: repo=%s pr=%d event=%s reason=%s", repo, pr, kind, reason)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
