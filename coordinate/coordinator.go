/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package coordinate implements C5: serializes processing per PR, enforces
// timeouts, classifies errors, and emits audit events, per spec §4.5.
package coordinate

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/pvandervelde/merge-warden/auditlog"
	"github.com/pvandervelde/merge-warden/bypass"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/reconcile"
	"github.com/pvandervelde/merge-warden/validate"
)

const (
	// defaultCycleTimeout is spec §4.5's whole-cycle deadline.
	defaultCycleTimeout = 30 * time.Second
	// maxWorkers is spec §5's resource bound: min(configured worker count, 64).
	maxWorkers = 64
)

// Config wires a Coordinator to its collaborators. Adapter and Resolver are
// required; the rest have spec-mandated defaults.
type Config struct {
	Adapter  platform.Adapter
	Resolver *policy.Resolver

	// Workers bounds concurrent cycles; clamped to [1, maxWorkers]. Zero
	// means "use maxWorkers".
	Workers int

	// CycleTimeout overrides the whole-cycle deadline; zero means
	// defaultCycleTimeout.
	CycleTimeout time.Duration
}

// Coordinator is the single entry point webhook delivery (or the CLI)
// calls into. It holds the two pieces of global state spec §9 permits:
// the per-PR lease map and (transitively, via Resolver) the config cache.
type Coordinator struct {
	adapter      platform.Adapter
	resolver     *policy.Resolver
	leases       *leaseTable
	sem          chan struct{}
	cycleTimeout time.Duration
}

// New builds a Coordinator from cfg.
func New(cfg Config) *Coordinator {
	workers := cfg.Workers
	if workers <= 0 || workers > maxWorkers {
		workers = maxWorkers
	}
	timeout := cfg.CycleTimeout
	if timeout <= 0 {
		timeout = defaultCycleTimeout
	}
	return &Coordinator{
		adapter:      cfg.Adapter,
		resolver:     cfg.Resolver,
		leases:       newLeaseTable(),
		sem:          make(chan struct{}, workers),
		cycleTimeout: timeout,
	}
}

// Submit enqueues ev for processing. If no cycle is currently in flight for
// ev's (repo, pr), a worker is claimed and the cycle runs in the
// background using a context detached from ctx's cancellation (so that a
// request-scoped ctx going away does not abort an accepted lease — the
// cycle gets its own spec §4.5 deadline instead) but carrying ctx's
// logger. If a cycle is already in flight, ev coalesces behind it and
// Submit returns immediately: spec §4.5's "Busy" path.
//
// Submit itself never blocks on cycle completion; callers that need
// synchronous processing (the CLI's single-shot "check" command) should
// use RunSync instead.
func (c *Coordinator) Submit(ctx context.Context, ev platform.ProcessEvent) {
	if !c.leases.acquireOrQueue(ev) {
		eventsCoalesced.Inc()
		clog.FromContext(ctx).Infof("coalesced event for %s#%d behind in-flight cycle", ev.Repo, ev.PRNumber)
		return
	}

	clog.FromContext(ctx).Infof("accepted event for %s#%d, dispatching to worker pool", ev.Repo, ev.PRNumber)

	c.sem <- struct{}{}
	go func() {
		defer func() { <-c.sem }()
		c.drain(context.WithoutCancel(ctx), ev)
	}()
}

// RunSync processes ev and every coalesced follow-up synchronously,
// returning the last cycle's report. Used by the CLI's single-shot "check"
// subcommand, which has no webhook delivery loop to hand asynchronous
// completion back to.
func (c *Coordinator) RunSync(ctx context.Context, ev platform.ProcessEvent) reconcile.Report {
	if !c.leases.acquireOrQueue(ev) {
		eventsCoalesced.Inc()
		return reconcile.Report{}
	}
	return c.drain(ctx, ev)
}

// drain runs cycles for ev and every event coalesced while a prior cycle
// for the same PR was in flight, releasing the lease only once the queue
// is empty. Returns the last cycle's report.
func (c *Coordinator) drain(ctx context.Context, ev platform.ProcessEvent) reconcile.Report {
	current := ev
	var last reconcile.Report
	for {
		last = c.runCycle(ctx, current)
		next, ok := c.leases.release(current.Repo, current.PRNumber)
		if !ok {
			return last
		}
		current = next
	}
}

// runCycle executes exactly one reconciliation cycle under spec §4.5's
// whole-cycle deadline, recovering from panics at the boundary so a bug in
// a validator or the reconciler is logged and aborts only this cycle
// (spec §7's Internal error class), never the process.
func (c *Coordinator) runCycle(parent context.Context, ev platform.ProcessEvent) (report reconcile.Report) {
	ctx, cancel := context.WithTimeout(parent, c.cycleTimeout)
	defer cancel()

	log := clog.FromContext(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("recovered panic processing %s#%d: %v", ev.Repo, ev.PRNumber, r)
			panicsRecovered.Inc()
			report = reconcile.Report{PartialFailure: true}
		}
	}()

	if ev.Kind == platform.EventClosed || ev.Kind == platform.EventMerged {
		auditlog.EmitSkipped(ctx, ev.Repo, ev.PRNumber, ev.Kind, "pr closed or merged")
		cyclesSkipped.Inc()
		return reconcile.Report{}
	}

	result, err := c.resolver.Resolve(ctx, ev.Repo.Owner, ev.Repo.Name, "", nil, nil)
	if err != nil {
		log.Errorf("resolving policy for %s#%d: %v", ev.Repo, ev.PRNumber, err)
		return reconcile.Report{PartialFailure: true}
	}
	if result.ConfigErr != nil {
		c.handleConfigError(ctx, ev, *result.ConfigErr)
		configErrors.Inc()
		return reconcile.Report{}
	}
	if result.Degraded {
		configDegraded.Inc()
	}
	pol := result.Policy

	if (ev.Kind == platform.EventLabeled || ev.Kind == platform.EventUnlabeled) &&
		reconcile.IsBotLabel(ev.Label, pol.Labels, pol.Size.LabelPrefix) {
		auditlog.EmitSkipped(ctx, ev.Repo, ev.PRNumber, ev.Kind, "bot-owned label echo")
		cyclesSkipped.Inc()
		return reconcile.Report{}
	}

	pr, err := c.adapter.FetchPullRequest(ctx, ev.Repo, ev.PRNumber)
	if err != nil {
		switch {
		case platform.IsNotFound(err):
			auditlog.EmitSkipped(ctx, ev.Repo, ev.PRNumber, ev.Kind, "pr not found, event treated as stale")
			cyclesSkipped.Inc()
		case platform.IsAuthFailure(err):
			log.Errorf("authentication failure fetching %s#%d: %v", ev.Repo, ev.PRNumber, err)
			authFailures.Inc()
		default:
			log.Errorf("fetching %s#%d: %v", ev.Repo, ev.PRNumber, err)
		}
		return reconcile.Report{PartialFailure: true}
	}
	if pr.Draft {
		auditlog.EmitSkipped(ctx, ev.Repo, ev.PRNumber, ev.Kind, "draft pr")
		cyclesSkipped.Inc()
		return reconcile.Report{}
	}

	comments, err := c.adapter.ListComments(ctx, ev.Repo, ev.PRNumber)
	if err != nil {
		log.Errorf("listing comments for %s#%d: %v", ev.Repo, ev.PRNumber, err)
		return reconcile.Report{PartialFailure: true}
	}

	outcomes := validate.Evaluate(pr, pol)
	outcomes, bypassEvents := bypass.Apply(pr.Repo, pr.Number, pr.Author.Login, pol.Bypass, outcomes)
	bypass.LogEvents(ctx, bypassEvents)
	for range bypassEvents {
		bypassApplied.Inc()
	}

	report = reconcile.Reconcile(ctx, c.adapter, pr, comments, outcomes, pol)

	auditlog.Emit(ctx, auditlog.Record{
		Repo:           ev.Repo,
		PR:             ev.PRNumber,
		EventKind:      ev.Kind,
		Title:          pr.Title,
		Outcomes:       outcomes,
		Report:         report,
		DurationMS:     time.Since(start).Milliseconds(),
		DegradedConfig: result.Degraded,
	})
	cyclesProcessed.Inc()
	cycleDuration.Observe(time.Since(start).Seconds())

	return report
}

// handleConfigError implements spec §7's ConfigError handling: a neutral
// commit status plus a single `config`-kind comment explaining the defect,
// and no other mutations. It reuses reconcile's comment-ownership helpers
// rather than duplicating marker parsing.
func (c *Coordinator) handleConfigError(ctx context.Context, ev platform.ProcessEvent, cfgErr policy.ConfigError) {
	log := clog.FromContext(ctx)

	pr, err := c.adapter.FetchPullRequest(ctx, ev.Repo, ev.PRNumber)
	if err != nil {
		log.Errorf("fetching %s#%d while handling config error: %v", ev.Repo, ev.PRNumber, err)
		return
	}

	comments, err := c.adapter.ListComments(ctx, ev.Repo, ev.PRNumber)
	if err != nil {
		log.Errorf("listing comments for %s#%d while handling config error: %v", ev.Repo, ev.PRNumber, err)
		comments = nil
	}

	body := fmt.Sprintf("<!-- merge-warden:config:v%d -->\n**Configuration error**: %s", platform.MarkerSchemaVersion, cfgErr.Error())

	var existingID int64
	found := false
	for _, cm := range comments {
		if kind, _, ok := reconcile.CommentKindOf(cm.Body); ok && kind == platform.CommentKindConfig {
			existingID = cm.ID
			found = true
			break
		}
	}

	if found {
		if err := c.adapter.EditComment(ctx, ev.Repo, existingID, body); err != nil {
			log.Errorf("editing config-error comment on %s#%d: %v", ev.Repo, ev.PRNumber, err)
		}
	} else if _, err := c.adapter.CreateComment(ctx, ev.Repo, ev.PRNumber, body); err != nil {
		log.Errorf("creating config-error comment on %s#%d: %v", ev.Repo, ev.PRNumber, err)
	}

	status := platform.CommitStatus{SHA: pr.HeadSHA, Conclusion: platform.ConclusionNeutral, Summary: "configuration error: " + cfgErr.Error()}
	if err := c.adapter.SetCommitStatus(ctx, ev.Repo, status); err != nil {
		log.Errorf("setting commit status on %s#%d while handling config error: %v", ev.Repo, ev.PRNumber, err)
	}

	auditlog.EmitSkipped(ctx, ev.Repo, ev.PRNumber, ev.Kind, "config error: "+cfgErr.Error())
}
