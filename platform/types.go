/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package platform defines the typed boundary between the policy-evaluation
// core and a hosted code-review platform (GitHub is the primary target).
// Nothing in this package analyzes policy; it only describes the shape of
// pull requests, comments, and labels, and the capabilities required to
// mutate them.
package platform

import "fmt"

// RepoRef identifies a repository by owner and name.
type RepoRef struct {
	Owner string
	Name  string
}

func (r RepoRef) String() string {
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// Author identifies the account that opened or owns a pull request.
type Author struct {
	Login string
	IsBot bool
}

// Label is a single label attached to a pull request. CreatedByBot is
// never supplied by the platform, and neither the GitHub adapter nor the
// reconciler sets it: the reconciler decides label ownership by name (see
// reconcile.IsBotLabel).
type Label struct {
	Name         string
	Color        string
	CreatedByBot bool
}

// FileChange describes one file touched by a pull request's diff.
type FileChange struct {
	Path      string
	Additions uint32
	Deletions uint32
}

// PullRequest is the input view of a pull request for a single evaluation
// cycle. It is immutable within that cycle.
type PullRequest struct {
	Repo         RepoRef
	Number       uint64
	Author       Author
	Title        string
	Body         string
	BaseRef      string
	HeadSHA      string
	Labels       []Label
	Additions    uint32
	Deletions    uint32
	ChangedFiles []FileChange
	Draft        bool
}

// CommentKind identifies which bot-owned concern a comment belongs to.
type CommentKind string

const (
	CommentKindTitle    CommentKind = "title"
	CommentKindWorkItem CommentKind = "workitem"
	CommentKindSize     CommentKind = "size"
	CommentKindConfig   CommentKind = "config"
)

// MarkerSchemaVersion is the schema version embedded in bot comment markers.
const MarkerSchemaVersion = 1

// Comment is a single comment on a pull request, as observed from the
// platform. Ownership is determined structurally (see reconcile.CommentKindOf),
// not by an IsBot flag from the platform.
type Comment struct {
	ID   int64
	Body string
}

// CommitStatusConclusion is the tri-state result contributed to the
// "merge-warden" commit status context.
type CommitStatusConclusion string

const (
	ConclusionSuccess CommitStatusConclusion = "success"
	ConclusionNeutral CommitStatusConclusion = "neutral"
	ConclusionFailure CommitStatusConclusion = "failure"
)

// StatusContext is the fixed commit-status context name used for
// branch-protection wiring.
const StatusContext = "merge-warden"

// CommitStatus is the desired state of the merge-warden commit status for a
// given head SHA.
type CommitStatus struct {
	SHA        string
	Conclusion CommitStatusConclusion
	Summary    string
}

// EventKind enumerates the pull-request lifecycle events the core consumes.
type EventKind string

const (
	EventOpened      EventKind = "opened"
	EventEdited      EventKind = "edited"
	EventSynchronize EventKind = "synchronize"
	EventReopened    EventKind = "reopened"
	EventLabeled     EventKind = "labeled"
	EventUnlabeled   EventKind = "unlabeled"
	EventClosed      EventKind = "closed"
	EventMerged      EventKind = "merged"
)

// ProcessEvent is the inbound request the core is invoked with. The webhook
// transport and HMAC verification that produce this value are out of core
// scope (see platform.Adapter for the boundary).
type ProcessEvent struct {
	Repo      RepoRef
	PRNumber  uint64
	Kind      EventKind
	Actor     string
	Label     string // populated for Labeled/Unlabeled events
	Timestamp int64  // unix seconds, supplied by the caller so validators stay time-independent
}
