/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package platform

import (
	"context"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// repoConfigCandidates are tried in order against the PR's base branch,
// per spec §4.1: ".github/merge-warden.toml" then ".merge-warden.toml".
var repoConfigCandidates = []string{".github/merge-warden.toml", ".merge-warden.toml"}

// GitHubRepoFileSource implements policy.RepoFileSource against the real
// GitHub contents API, grounded on go-github's Repositories.GetContents
// idiom (the same REST client platform.GitHubAdapter already wires).
type GitHubRepoFileSource struct {
	rest *github.Client
}

// NewGitHubRepoFileSource wraps an already-authenticated REST client.
func NewGitHubRepoFileSource(rest *github.Client) *GitHubRepoFileSource {
	return &GitHubRepoFileSource{rest: rest}
}

// FetchRepoConfig implements policy.RepoFileSource.
func (s *GitHubRepoFileSource) FetchRepoConfig(ctx context.Context, owner, repo, baseRef string) ([]byte, bool, error) {
	opts := &github.RepositoryContentGetOptions{Ref: baseRef}

	for _, path := range repoConfigCandidates {
		content, _, resp, err := s.rest.Repositories.GetContents(ctx, owner, repo, path, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == 404 {
				continue
			}
			return nil, false, classifyRESTError("FetchRepoConfig", resp, err)
		}
		if content == nil {
			continue
		}
		doc, err := content.GetContent()
		if err != nil {
			return nil, false, fmt.Errorf("decoding %s content: %w", path, err)
		}
		return []byte(doc), true, nil
	}

	return nil, false, nil
}
