/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package bypass implements C3: overlays bypass verdicts onto the
// validators' pure CheckOutcomes based on actor identity, before the
// reconciler ever sees them.
package bypass

import (
	"context"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/validate"
)

// Event is the audit record emitted whenever a bypass rule fires. It
// carries the repository, PR number, actor, and check kind; it has no
// timestamp field, so Apply stays time-independent, matching the
// pure-function posture the rest of the core shares.
type Event struct {
	Repo  platform.RepoRef
	PR    uint64
	Actor string
	Kind  validate.CheckKind
}

// Apply overlays bypass verdicts onto outcomes for the given actor login,
// returning the (possibly transformed) outcomes and the audit events
// generated. Only title and work-item outcomes are eligible; size has no
// bypass rule set per spec §4.3.
func Apply(repo platform.RepoRef, prNumber uint64, actorLogin string, pol policy.BypassPolicy, outcomes []validate.CheckOutcome) ([]validate.CheckOutcome, []Event) {
	lowered := strings.ToLower(actorLogin)
	out := make([]validate.CheckOutcome, len(outcomes))
	var events []Event

	for i, o := range outcomes {
		rule, eligible := ruleFor(o.Kind, pol)
		if !eligible || !rule.Allows(lowered) || o.Status == validate.StatusDisabled {
			out[i] = o
			continue
		}

		out[i] = transform(o)
		events = append(events, Event{Repo: repo, PR: prNumber, Actor: actorLogin, Kind: o.Kind})
	}

	return out, events
}

// LogEvents writes each bypass event to the structured log, matching the
// rest of the core's clog-based audit idiom rather than a bespoke event
// bus (see SPEC_FULL.md §4.3).
func LogEvents(ctx context.Context, events []Event) {
	log := clog.FromContext(ctx)
	for _, e := range events {
		log.Infof("bypass applied: repo=%s pr=%d actor=%s kind=%s", e.Repo, e.PR, e.Actor, e.Kind)
	}
}

func ruleFor(kind validate.CheckKind, pol policy.BypassPolicy) (policy.BypassRule, bool) {
	switch kind {
	case validate.CheckTitle:
		return pol.Title, true
	case validate.CheckWorkItem:
		return pol.WorkItem, true
	default:
		return policy.BypassRule{}, false
	}
}

// transform implements spec §4.3's bypass transform: status becomes
// Bypassed, desired label presence is dropped (but bot-owned removal
// intent is kept so a previously-added label still gets cleared), the
// comment body becomes a bypass note rather than being deleted (avoiding a
// surprise silent transition), and the status contribution becomes
// neutral.
func transform(o validate.CheckOutcome) validate.CheckOutcome {
	o.Status = validate.StatusBypassed
	o.Artifacts.AddLabels = nil
	o.Artifacts.StatusContribution = platform.ConclusionNeutral
	if o.Artifacts.CommentBody != nil {
		o.Artifacts.CommentBody = bypassNote(o.Kind)
	}
	return o
}

func bypassNote(kind validate.CheckKind) *string {
	body := "<!-- merge-warden:" + string(kind) + ":v" + strconv.Itoa(platform.MarkerSchemaVersion) + " -->\n" +
		"**This check was bypassed** for the PR author by repository policy."
	return &body
}
