/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package coordinate

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

// fakeAdapter is an in-memory platform.Adapter double guarded by a mutex
// since Coordinator dispatches cycles onto goroutines.
type fakeAdapter struct {
	mu          sync.Mutex
	prs         map[string]*platform.PullRequest
	comments    map[string][]platform.Comment
	labels      map[string]map[string]bool
	statuses    map[string]platform.CommitStatus
	fetchCalls  int
	notFoundFor map[string]bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		prs:         map[string]*platform.PullRequest{},
		comments:    map[string][]platform.Comment{},
		labels:      map[string]map[string]bool{},
		statuses:    map[string]platform.CommitStatus{},
		notFoundFor: map[string]bool{},
	}
}

func prKey(repo platform.RepoRef, number uint64) string {
	return leaseKey(repo, number)
}

func (f *fakeAdapter) put(pr *platform.PullRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prs[prKey(pr.Repo, pr.Number)] = pr
}

func (f *fakeAdapter) FetchPullRequest(ctx context.Context, repo platform.RepoRef, number uint64) (*platform.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	key := prKey(repo, number)
	if f.notFoundFor[key] {
		return nil, &platform.PermanentError{Op: "fetch", StatusCode: 404}
	}
	pr, ok := f.prs[key]
	if !ok {
		return nil, &platform.PermanentError{Op: "fetch", StatusCode: 404}
	}
	return pr, nil
}

func (f *fakeAdapter) ListComments(ctx context.Context, repo platform.RepoRef, number uint64) ([]platform.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[prKey(repo, number)], nil
}

func (f *fakeAdapter) CreateComment(ctx context.Context, repo platform.RepoRef, number uint64, body string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prKey(repo, number)
	id := int64(len(f.comments[key]) + 1)
	f.comments[key] = append(f.comments[key], platform.Comment{ID: id, Body: body})
	return id, nil
}

func (f *fakeAdapter) EditComment(ctx context.Context, repo platform.RepoRef, commentID int64, body string) error {
	return nil
}

func (f *fakeAdapter) DeleteComment(ctx context.Context, repo platform.RepoRef, commentID int64) error {
	return nil
}

func (f *fakeAdapter) AddLabel(ctx context.Context, repo platform.RepoRef, number uint64, name string, color string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := prKey(repo, number)
	if f.labels[key] == nil {
		f.labels[key] = map[string]bool{}
	}
	f.labels[key][name] = true
	return nil
}

func (f *fakeAdapter) RemoveLabel(ctx context.Context, repo platform.RepoRef, number uint64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.labels[prKey(repo, number)], name)
	return nil
}

func (f *fakeAdapter) SetCommitStatus(ctx context.Context, repo platform.RepoRef, status platform.CommitStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[repo.String()+status.SHA] = status
	return nil
}

func goodPR(repo platform.RepoRef, number uint64) *platform.PullRequest {
	return &platform.PullRequest{
		Repo:    repo,
		Number:  number,
		Author:  platform.Author{Login: "octocat"},
		Title:   "feat: add widget",
		Body:    "Fixes #1",
		HeadSHA: "sha-" + strconv.FormatUint(number, 10),
		ChangedFiles: []platform.FileChange{
			{Path: "widget.go", Additions: 5, Deletions: 1},
		},
	}
}

func testCoordinator(adapter platform.Adapter) *Coordinator {
	resolver := policy.NewResolver(nil, nil, time.Minute)
	return New(Config{Adapter: adapter, Resolver: resolver})
}

func TestRunSync_HappyPathSetsSuccessStatus(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	adapter.put(goodPR(repo, 1))
	c := testCoordinator(adapter)

	report := c.RunSync(context.Background(), platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventOpened})
	if report.StatusConclusion != platform.ConclusionSuccess {
		t.Fatalf("StatusConclusion = %v, want success; report=%+v", report.StatusConclusion, report)
	}
}

func TestRunSync_ClosedEventIsNoOp(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	c := testCoordinator(adapter)

	c.RunSync(context.Background(), platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventClosed})
	if adapter.fetchCalls != 0 {
		t.Fatalf("fetchCalls = %d, want 0: closed events must never fetch the PR", adapter.fetchCalls)
	}
}

func TestRunSync_NotFoundPRIsTreatedAsStale(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	adapter.notFoundFor[prKey(repo, 99)] = true
	c := testCoordinator(adapter)

	report := c.RunSync(context.Background(), platform.ProcessEvent{Repo: repo, PRNumber: 99, Kind: platform.EventOpened})
	if report.StatusConclusion != "" {
		t.Fatalf("report = %+v, want empty report for a stale/not-found PR", report)
	}
}

func TestRunSync_BotLabelEchoIsIgnored(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	pr := goodPR(repo, 1)
	adapter.put(pr)
	c := testCoordinator(adapter)

	c.RunSync(context.Background(), platform.ProcessEvent{
		Repo: repo, PRNumber: 1, Kind: platform.EventLabeled, Label: "invalid-title",
	})
	if adapter.fetchCalls != 0 {
		t.Fatalf("fetchCalls = %d, want 0: a Labeled event naming a bot-owned label is the core's own echo", adapter.fetchCalls)
	}
}

func TestRunSync_DraftPRIsSkipped(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	pr := goodPR(repo, 1)
	pr.Draft = true
	adapter.put(pr)
	c := testCoordinator(adapter)

	report := c.RunSync(context.Background(), platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventOpened})
	if report.StatusConclusion != "" {
		t.Fatalf("report = %+v, want empty report for a draft PR", report)
	}
}

func TestSubmit_CoalescesEventsForSamePR(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	adapter := newFakeAdapter()
	adapter.put(goodPR(repo, 1))
	c := testCoordinator(adapter)

	if !c.leases.acquireOrQueue(platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventOpened}) {
		t.Fatal("first acquireOrQueue = false, want true (lease free)")
	}
	if c.leases.acquireOrQueue(platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventEdited}) {
		t.Fatal("second acquireOrQueue = true, want false (lease held, event should coalesce)")
	}
	// A third event must replace the queued second one, not queue behind it.
	if c.leases.acquireOrQueue(platform.ProcessEvent{Repo: repo, PRNumber: 1, Kind: platform.EventSynchronize}) {
		t.Fatal("third acquireOrQueue = true, want false")
	}

	next, ok := c.leases.release(repo, 1)
	if !ok {
		t.Fatal("release ok = false, want true: a coalesced event should be returned")
	}
	if next.Kind != platform.EventSynchronize {
		t.Fatalf("coalesced event kind = %v, want the latest (Synchronize), not the superseded Edited", next.Kind)
	}

	// Releasing again with nothing queued frees the lease.
	if _, ok := c.leases.release(repo, 1); ok {
		t.Fatal("release ok = true, want false: queue should be empty now")
	}
}

func TestCoordinator_DistinctPRsDoNotBlockEachOther(t *testing.T) {
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	lt := newLeaseTable()
	if !lt.acquireOrQueue(platform.ProcessEvent{Repo: repo, PRNumber: 1}) {
		t.Fatal("acquireOrQueue for PR 1 = false, want true")
	}
	if !lt.acquireOrQueue(platform.ProcessEvent{Repo: repo, PRNumber: 2}) {
		t.Fatal("acquireOrQueue for PR 2 = false, want true: distinct PRs must not share a lease")
	}
}
