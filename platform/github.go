/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
)

// GitHubAdapter implements Adapter against the real GitHub REST and GraphQL
// APIs. FetchPullRequest uses a single batched GraphQL query (grounded on
// changemanager/manager.go's NewSession query); ListComments and all
// mutations use REST calls (grounded on changemanager/session.go's Upsert).
type GitHubAdapter struct {
	rest    *github.Client
	gql     *githubv4.Client
	limiter *RateLimiter
}

// NewGitHubAdapter wraps an already-authenticated REST client and GraphQL
// client. Credential acquisition (ghinstallation, OctoSTS) lives in
// installation.go and octosts.go; this constructor only wires transports. A
// RateLimiter is constructed internally and applied to every outbound call
// (spec §5's token-bucket throttling, halved below 10% quota remaining).
func NewGitHubAdapter(rest *github.Client, gql *githubv4.Client) *GitHubAdapter {
	return &GitHubAdapter{rest: rest, gql: gql, limiter: NewRateLimiter()}
}

// gqlPullRequestQuery mirrors changemanager/manager.go's combined
// PR+labels query shape, extended with files and the author's bot flag.
type gqlPullRequestQuery struct {
	Repository struct {
		PullRequest struct {
			Number      githubv4.Int
			Title       githubv4.String
			Body        githubv4.String
			BaseRefName githubv4.String
			IsDraft     githubv4.Boolean
			Additions   githubv4.Int
			Deletions   githubv4.Int
			Author      struct {
				Login    githubv4.String
				Typename githubv4.String `graphql:"__typename"`
			}
			HeadRefOid githubv4.String
			Labels     struct {
				Nodes []struct {
					Name  githubv4.String
					Color githubv4.String
				}
			} `graphql:"labels(first: 100)"`
			Files struct {
				Nodes []struct {
					Path      githubv4.String
					Additions githubv4.Int
					Deletions githubv4.Int
				}
			} `graphql:"files(first: 100)"`
		} `graphql:"pullRequest(number: $number)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (a *GitHubAdapter) FetchPullRequest(ctx context.Context, repo RepoRef, number uint64) (*PullRequest, error) {
	log := clog.FromContext(ctx)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, &TransientError{Op: "FetchPullRequest", Err: err}
	}

	var q gqlPullRequestQuery
	vars := map[string]interface{}{
		"owner":  githubv4.String(repo.Owner),
		"name":   githubv4.String(repo.Name),
		"number": githubv4.Int(number), //nolint:gosec // PR numbers never exceed int32 range
	}
	if err := a.gql.Query(ctx, &q, vars); err != nil {
		return nil, classifyGraphQLError("FetchPullRequest", err)
	}

	pr := q.Repository.PullRequest
	log.Debugf("fetched PR #%d (%d labels, %d files)", number, len(pr.Labels.Nodes), len(pr.Files.Nodes))

	labels := make([]Label, 0, len(pr.Labels.Nodes))
	for _, n := range pr.Labels.Nodes {
		labels = append(labels, Label{Name: string(n.Name), Color: string(n.Color)})
	}

	files := make([]FileChange, 0, len(pr.Files.Nodes))
	for _, f := range pr.Files.Nodes {
		files = append(files, FileChange{
			Path:      string(f.Path),
			Additions: uint32(f.Additions),
			Deletions: uint32(f.Deletions),
		})
	}

	return &PullRequest{
		Repo:   repo,
		Number: number,
		Author: Author{
			Login: string(pr.Author.Login),
			IsBot: string(pr.Author.Typename) == "Bot",
		},
		Title:        string(pr.Title),
		Body:         string(pr.Body),
		BaseRef:      string(pr.BaseRefName),
		HeadSHA:      string(pr.HeadRefOid),
		Labels:       labels,
		Additions:    uint32(pr.Additions),
		Deletions:    uint32(pr.Deletions),
		ChangedFiles: files,
		Draft:        bool(pr.IsDraft),
	}, nil
}

func (a *GitHubAdapter) ListComments(ctx context.Context, repo RepoRef, number uint64) ([]Comment, error) {
	var all []Comment
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &TransientError{Op: "ListComments", Err: err}
		}
		comments, resp, err := a.rest.Issues.ListComments(ctx, repo.Owner, repo.Name, int(number), opts)
		a.observe(ctx, resp)
		if err != nil {
			return nil, classifyRESTError("ListComments", resp, err)
		}
		for _, c := range comments {
			all = append(all, Comment{ID: c.GetID(), Body: c.GetBody()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (a *GitHubAdapter) CreateComment(ctx context.Context, repo RepoRef, number uint64, body string) (int64, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, &TransientError{Op: "CreateComment", Err: err}
	}
	c, resp, err := a.rest.Issues.CreateComment(ctx, repo.Owner, repo.Name, int(number), &github.IssueComment{
		Body: github.Ptr(body),
	})
	a.observe(ctx, resp)
	if err != nil {
		return 0, classifyRESTError("CreateComment", resp, err)
	}
	return c.GetID(), nil
}

func (a *GitHubAdapter) EditComment(ctx context.Context, repo RepoRef, commentID int64, body string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "EditComment", Err: err}
	}
	_, resp, err := a.rest.Issues.EditComment(ctx, repo.Owner, repo.Name, commentID, &github.IssueComment{
		Body: github.Ptr(body),
	})
	a.observe(ctx, resp)
	if err != nil {
		return classifyRESTError("EditComment", resp, err)
	}
	return nil
}

func (a *GitHubAdapter) DeleteComment(ctx context.Context, repo RepoRef, commentID int64) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "DeleteComment", Err: err}
	}
	resp, err := a.rest.Issues.DeleteComment(ctx, repo.Owner, repo.Name, commentID)
	a.observe(ctx, resp)
	if err != nil {
		return classifyRESTError("DeleteComment", resp, err)
	}
	return nil
}

func (a *GitHubAdapter) AddLabel(ctx context.Context, repo RepoRef, number uint64, name string, color string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "AddLabel(GetLabel)", Err: err}
	}
	_, getResp, getErr := a.rest.Issues.GetLabel(ctx, repo.Owner, repo.Name, name)
	a.observe(ctx, getResp)
	if getErr != nil {
		if getResp == nil || getResp.StatusCode != 404 {
			return classifyRESTError("AddLabel(GetLabel)", getResp, getErr)
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return &TransientError{Op: "AddLabel(CreateLabel)", Err: err}
		}
		_, createResp, createErr := a.rest.Issues.CreateLabel(ctx, repo.Owner, repo.Name, &github.Label{
			Name:  github.Ptr(name),
			Color: github.Ptr(color),
		})
		a.observe(ctx, createResp)
		if createErr != nil {
			return classifyRESTError("AddLabel(CreateLabel)", createResp, createErr)
		}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "AddLabel", Err: err}
	}
	_, resp, err := a.rest.Issues.AddLabelsToIssue(ctx, repo.Owner, repo.Name, int(number), []string{name})
	a.observe(ctx, resp)
	if err != nil {
		return classifyRESTError("AddLabel", resp, err)
	}
	return nil
}

func (a *GitHubAdapter) RemoveLabel(ctx context.Context, repo RepoRef, number uint64, name string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "RemoveLabel", Err: err}
	}
	resp, err := a.rest.Issues.RemoveLabelForIssue(ctx, repo.Owner, repo.Name, int(number), name)
	a.observe(ctx, resp)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil
		}
		return classifyRESTError("RemoveLabel", resp, err)
	}
	return nil
}

// SetCommitStatus uses the Checks API rather than the legacy Statuses API
// (github.RepoStatus only has success/failure/error/pending states, with no
// genuine neutral) so a Bypassed check's "neutral" conclusion is reported to
// GitHub and branch protection as neutral, not collapsed into "success" — see
// spec §8 P5.
func (a *GitHubAdapter) SetCommitStatus(ctx context.Context, repo RepoRef, status CommitStatus) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return &TransientError{Op: "SetCommitStatus", Err: err}
	}
	_, resp, err := a.rest.Checks.CreateCheckRun(ctx, repo.Owner, repo.Name, github.CreateCheckRunOptions{
		Name:       StatusContext,
		HeadSHA:    status.SHA,
		Status:     github.Ptr("completed"),
		Conclusion: github.Ptr(checkRunConclusionFor(status.Conclusion)),
		Output: &github.CheckRunOutput{
			Title:   github.Ptr(checkRunTitleFor(status.Conclusion)),
			Summary: github.Ptr(status.Summary),
		},
	})
	a.observe(ctx, resp)
	if err != nil {
		return classifyRESTError("SetCommitStatus", resp, err)
	}
	return nil
}

// observe feeds a REST response's rate-limit headers into the adapter's
// token bucket; resp is nil on transport-level failures (no response was
// ever received), in which case there is nothing to observe.
func (a *GitHubAdapter) observe(ctx context.Context, resp *github.Response) {
	if resp == nil {
		return
	}
	a.limiter.Observe(ctx, resp.Rate)
}

func checkRunConclusionFor(c CommitStatusConclusion) string {
	switch c {
	case ConclusionSuccess:
		return "success"
	case ConclusionFailure:
		return "failure"
	default:
		return "neutral"
	}
}

func checkRunTitleFor(c CommitStatusConclusion) string {
	switch c {
	case ConclusionSuccess:
		return "All checks passed"
	case ConclusionFailure:
		return "One or more checks failed"
	case ConclusionNeutral:
		return "Checks passed with a bypass in effect"
	default:
		return string(c)
	}
}

func classifyRESTError(op string, resp *github.Response, err error) error {
	if resp == nil {
		return &TransientError{Op: op, Err: err}
	}
	retryAfter := 0
	if resp.StatusCode == 429 {
		if until := time.Until(resp.Rate.Reset.Time); until > 0 {
			retryAfter = int(until.Seconds())
		}
	}
	return ClassifyStatusCode(op, resp.StatusCode, retryAfter, err)
}

func classifyGraphQLError(op string, err error) error {
	// githubv4 does not surface HTTP status codes on its error type, so
	// classification falls back on the error's shape: cancellation and
	// deadline expiry are retryable, a "could not resolve" node error is the
	// GraphQL spelling of a 404, everything else is permanent.
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransientError{Op: op, Err: err}
	}
	if strings.Contains(err.Error(), "Could not resolve to") {
		return &PermanentError{Op: op, StatusCode: 404, Err: err}
	}
	return &PermanentError{Op: op, Err: err}
}
