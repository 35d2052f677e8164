/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// NewInstallationClients builds the REST and GraphQL clients for a single
// GitHub App installation, using ghinstallation's transport to mint and
// refresh installation tokens transparently. This is the thinnest possible
// credential-acquisition seam: it constructs a transport, it does not manage
// App private key rotation or installation discovery.
func NewInstallationClients(appID, installationID int64, privateKeyPEM []byte) (*github.Client, *githubv4.Client, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, nil, fmt.Errorf("building ghinstallation transport: %w", err)
	}

	httpClient := &http.Client{Transport: tr}
	rest := github.NewClient(httpClient)
	gql := githubv4.NewClient(httpClient)
	return rest, gql, nil
}

// installationTokenSource adapts an ghinstallation transport to the
// TokenSourceFunc signature, for callers that only need a bearer token
// string rather than a ready-made *github.Client (e.g. git-credential
// helpers outside core scope).
type installationTokenSource struct {
	tr *ghinstallation.Transport
}

// NewInstallationTokenSource returns a TokenSourceFunc backed by a single
// GitHub App installation. repo is ignored: one installation token source is
// scoped to exactly the installation it was minted for.
func NewInstallationTokenSource(appID, installationID int64, privateKeyPEM []byte) (TokenSourceFunc, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("building ghinstallation transport: %w", err)
	}
	src := &installationTokenSource{tr: tr}
	return src.token, nil
}

func (s *installationTokenSource) token(ctx context.Context, _ RepoRef) (string, error) {
	tok, err := s.tr.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("minting installation token: %w", err)
	}
	return tok, nil
}

var _ oauth2.TokenSource = (*staticTokenSource)(nil)

// staticTokenSource wraps a plain bearer token as an oauth2.TokenSource, used
// when wiring an OctoSTS-minted token into a *github.Client via
// oauth2.NewClient.
type staticTokenSource struct {
	token string
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: s.token}, nil
}
