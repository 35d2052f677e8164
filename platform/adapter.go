/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import "context"

// Adapter is the full set of outbound capabilities the reconciliation core
// requires from a hosted code-review platform. Nothing upstream of this
// interface knows it is talking to GitHub specifically.
//
// Every method returns a *TransientError or *PermanentError (never a bare
// error) so callers can classify failures with errors.As without inspecting
// platform-specific status codes.
type Adapter interface {
	// FetchPullRequest returns the current view of a pull request, including
	// its diff summary and attached labels.
	FetchPullRequest(ctx context.Context, repo RepoRef, number uint64) (*PullRequest, error)

	// ListComments returns every comment currently on the pull request, in
	// platform order. The reconciler scans these for bot-owned markers; it
	// does not assume the platform itself distinguishes bot comments.
	ListComments(ctx context.Context, repo RepoRef, number uint64) ([]Comment, error)

	// CreateComment posts a new comment and returns its assigned ID.
	CreateComment(ctx context.Context, repo RepoRef, number uint64, body string) (int64, error)

	// EditComment overwrites the body of an existing comment.
	EditComment(ctx context.Context, repo RepoRef, commentID int64, body string) error

	// DeleteComment removes a comment the reconciler no longer wants to own.
	DeleteComment(ctx context.Context, repo RepoRef, commentID int64) error

	// AddLabel attaches a label, creating it on the repository first if the
	// platform requires labels to pre-exist.
	AddLabel(ctx context.Context, repo RepoRef, number uint64, name string, color string) error

	// RemoveLabel detaches a label. It is not an error to remove a label
	// that is already absent.
	RemoveLabel(ctx context.Context, repo RepoRef, number uint64, name string) error

	// SetCommitStatus sets the merge-warden commit status context for the
	// given head SHA.
	SetCommitStatus(ctx context.Context, repo RepoRef, status CommitStatus) error
}

// TokenSourceFunc produces a short-lived credential for a repository. The
// two implementations in this package are NewInstallationTokenSource
// (ghinstallation) and NewOctoSTSTokenSource (chainguard.dev/sdk/octosts);
// both satisfy this signature so a caller that only needs a bearer token
// does not care which credential mechanism is in effect.
type TokenSourceFunc func(ctx context.Context, repo RepoRef) (string, error)
