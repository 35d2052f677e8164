/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package validate implements C2: pure functions from a platform.PullRequest
// and a policy.EffectivePolicy to a CheckOutcome, generalized from
// examples/prvalidation/validation.go's single conventional-commit check
// into the three independent, policy-driven checks spec §4.2 describes.
package validate

import "github.com/pvandervelde/merge-warden/platform"

// CheckKind identifies which rule produced a CheckOutcome.
type CheckKind string

const (
	CheckTitle    CheckKind = "title"
	CheckWorkItem CheckKind = "workitem"
	CheckSize     CheckKind = "size"
)

// Status is the tri-plus-one state a check can land in. Disabled is
// reported distinctly from Pass so the commit-status summary line can say
// "disabled" per spec §6.
type Status string

const (
	StatusPass     Status = "pass"
	StatusFail     Status = "fail"
	StatusBypassed Status = "bypassed"
	StatusDisabled Status = "disabled"
)

// DesiredArtifacts lists the platform-visible state a single check wants,
// consumed by the reconcile package's label and comment diffs
// (computeLabelDiff, computeCommentDiff). AddLabels/RemoveLabels name label text only;
// ownership and set-algebra with current state is reconcile's job, not
// validate's. RemoveLabels is the check's declared intent; the reconciler
// additionally removes any bot-owned label no outcome wants present, so a
// missing declaration never leaks a stale label.
type DesiredArtifacts struct {
	AddLabels    []string
	RemoveLabels []string
	// CommentBody is nil to mean "no opinion / delete any existing comment
	// of this kind"; a non-nil empty string is never produced.
	CommentBody *string
	// StatusContribution is this check's contribution to the aggregate
	// commit-status conclusion (spec §4.4 step 4).
	StatusContribution platform.CommitStatusConclusion
}

// CheckOutcome is the pure-function output of one validator.
type CheckOutcome struct {
	Kind      CheckKind
	Status    Status
	Detail    string
	Artifacts DesiredArtifacts
}

// commentBody is a small helper so call sites read as "a comment with this
// body" rather than repeating the pointer-taking idiom.
func commentBody(s string) *string { return &s }
