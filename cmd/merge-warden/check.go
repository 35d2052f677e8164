/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/pvandervelde/merge-warden/bypass"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/reconcile"
	"github.com/pvandervelde/merge-warden/validate"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	owner        string
	repo         string
	prNumber     int64
	octoIdentity string
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one reconciliation cycle against a pull request and print the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.owner == "" || opts.repo == "" || opts.prNumber <= 0 {
				return exitError{code: exitInvalidArgs, err: errors.New("--owner, --repo, and --pr are required")}
			}
			if opts.octoIdentity == "" {
				opts.octoIdentity = os.Getenv("OCTO_IDENTITY")
			}
			if opts.octoIdentity == "" {
				return exitError{code: exitInvalidArgs, err: errors.New("--octo-identity or OCTO_IDENTITY must be set")}
			}
			return runCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.owner, "owner", "", "repository owner")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "repository name")
	cmd.Flags().Int64Var(&opts.prNumber, "pr", 0, "pull request number")
	cmd.Flags().StringVar(&opts.octoIdentity, "octo-identity", "", "OctoSTS trust policy identity (default: $OCTO_IDENTITY)")

	return cmd
}

// exitError carries the spec §6 exit code alongside the underlying error,
// so the root command's Execute() error path can still print a message
// while main can translate it to the right process exit code.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }
func (e exitError) Unwrap() error { return e.err }

func runCheck(ctx context.Context, opts *checkOptions) error {
	log := clog.FromContext(ctx)
	repo := platform.RepoRef{Owner: opts.owner, Name: opts.repo}
	prNumber := uint64(opts.prNumber)

	rest, gql, err := platform.NewOctoSTSClients(ctx, opts.octoIdentity, repo)
	if err != nil {
		return exitError{code: exitAuthError, err: fmt.Errorf("authenticating: %w", err)}
	}
	adapter := platform.NewGitHubAdapter(rest, gql)

	resolver := policy.NewResolver(nil, platform.NewGitHubRepoFileSource(rest), 5*time.Minute)

	pr, err := adapter.FetchPullRequest(ctx, repo, prNumber)
	if err != nil {
		if platform.IsAuthFailure(err) {
			return exitError{code: exitAuthError, err: fmt.Errorf("fetching PR: %w", err)}
		}
		return exitError{code: exitPlatformError, err: fmt.Errorf("fetching PR: %w", err)}
	}

	result, err := resolver.Resolve(ctx, opts.owner, opts.repo, pr.BaseRef, nil, nil)
	if err != nil {
		return exitError{code: exitPlatformError, err: fmt.Errorf("resolving policy: %w", err)}
	}
	if result.ConfigErr != nil {
		log.Errorf("configuration error: %v", result.ConfigErr)
		return exitError{code: exitConfigError, err: result.ConfigErr}
	}
	pol := result.Policy

	comments, err := adapter.ListComments(ctx, repo, prNumber)
	if err != nil {
		return exitError{code: exitPlatformError, err: fmt.Errorf("listing comments: %w", err)}
	}

	outcomes := validate.Evaluate(pr, pol)
	outcomes, bypassEvents := bypass.Apply(repo, prNumber, pr.Author.Login, pol.Bypass, outcomes)
	bypass.LogEvents(ctx, bypassEvents)

	report := reconcile.Reconcile(ctx, adapter, pr, comments, outcomes, pol)

	printSummary(outcomes, report)

	if report.PartialFailure {
		return exitError{code: exitPlatformError, err: errors.New("one or more mutations failed; see log for detail")}
	}
	for _, o := range outcomes {
		if o.Status == validate.StatusFail {
			return exitError{code: exitFail, err: errors.New("one or more checks failed")}
		}
	}
	return nil
}

func printSummary(outcomes []validate.CheckOutcome, report reconcile.Report) {
	fmt.Println("merge-warden check result:")
	for _, o := range outcomes {
		fmt.Printf("  - %s: %s\n", o.Kind, o.Status)
	}
	fmt.Printf("commit status: %s\n", report.StatusConclusion)
}
