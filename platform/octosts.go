/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"fmt"

	"chainguard.dev/sdk/octosts"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// NewOctoSTSTokenSource returns a TokenSourceFunc that exchanges the
// workload's ambient identity for a short-lived, org-scoped GitHub token via
// OctoSTS, mirroring the `NewOrgTokenSource` call wired in
// examples/github-pr-validator/cmd/reconciler/main.go. identity names the
// OctoSTS trust policy to assume (e.g. "merge-warden-reconciler").
func NewOctoSTSTokenSource(identity string) TokenSourceFunc {
	return func(ctx context.Context, repo RepoRef) (string, error) {
		tok, err := octosts.Token(ctx, identity, repo.Owner, "")
		if err != nil {
			return "", fmt.Errorf("exchanging octosts token for org %q: %w", repo.Owner, err)
		}
		clog.FromContext(ctx).Infof("octosts: minted org-scoped token for identity=%q org=%q", identity, repo.Owner)
		return tok, nil
	}
}

// NewOctoSTSClients builds REST and GraphQL clients authenticated with an
// OctoSTS-minted org token for a single repository. Callers needing a fresh
// token per call (e.g. long-lived workers spanning many repos) should
// instead use NewOctoSTSTokenSource directly and construct a client per
// invocation.
func NewOctoSTSClients(ctx context.Context, identity string, repo RepoRef) (*github.Client, *githubv4.Client, error) {
	src := NewOctoSTSTokenSource(identity)
	tok, err := src(ctx, repo)
	if err != nil {
		return nil, nil, err
	}
	httpClient := oauth2.NewClient(ctx, &staticTokenSource{token: tok})
	rest := github.NewClient(httpClient)
	gql := githubv4.NewClient(httpClient)
	return rest, gql, nil
}
