/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
)

// RepoFileSource fetches the repository-scoped config document from the
// PR's base branch. Found is false when neither candidate path exists,
// which is not an error: the resolver simply has nothing to overlay at
// that layer.
type RepoFileSource interface {
	FetchRepoConfig(ctx context.Context, owner, repo, baseRef string) (doc []byte, found bool, err error)
}

// StoreSource fetches a central key/value store's org- or repo-scoped
// config document. It is explicitly an external collaborator (spec §1);
// this package only defines the shape it depends on.
type StoreSource interface {
	FetchCentralConfig(ctx context.Context, owner, repo string) (doc []byte, found bool, err error)
}

// Overrides carries environment- or CLI-sourced overrides, the two highest
// priority layers. Pointer fields are nil when not set at that layer, so
// merging is "last non-nil wins".
type Overrides struct {
	TitleMode          *TitleMode
	WorkItemRequired   *bool
	SizeFailOnOversize *bool
}

// Resolver implements C1: resolve(repo, event_ctx) -> EffectivePolicy. It
// merges, highest priority first: CLI overrides, environment overrides,
// central store (cached), repository file, built-in defaults.
type Resolver struct {
	store    StoreSource
	repoFile RepoFileSource
	cache    *storeCache
}

// NewResolver builds a Resolver. store and repoFile may be nil, in which
// case that layer contributes nothing and resolution falls through to the
// next one; this keeps the CLI's single-shot "check" command usable without
// standing up a central store.
func NewResolver(store StoreSource, repoFile RepoFileSource, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		store:    store,
		repoFile: repoFile,
		cache:    newStoreCache(cacheTTL),
	}
}

// ResolveResult is the outcome of a single Resolve call.
type ResolveResult struct {
	Policy    EffectivePolicy
	Degraded  bool // true iff the central store was unreachable and no cache hit existed
	ConfigErr *ConfigError
}

// Resolve produces the frozen EffectivePolicy for one evaluation cycle.
// envOverrides and cliOverrides may be nil.
func (r *Resolver) Resolve(ctx context.Context, owner, repo, baseRef string, envOverrides, cliOverrides *Overrides) (ResolveResult, error) {
	log := clog.FromContext(ctx)
	key := owner + "/" + repo

	policy := DefaultPolicy()

	if r.repoFile != nil {
		doc, found, err := r.repoFile.FetchRepoConfig(ctx, owner, repo, baseRef)
		if err != nil {
			log.Warnf("fetching repository config for %s: %v", key, err)
		} else if found {
			p, perr := parseRepoConfig(ctx, doc, policy)
			var cfgErr *ConfigError
			if errors.As(perr, &cfgErr) {
				return ResolveResult{Policy: DefaultPolicy(), Degraded: false, ConfigErr: cfgErr}, nil
			}
			if perr != nil {
				return ResolveResult{}, fmt.Errorf("resolving repository config: %w", perr)
			}
			policy = p
		}
	}

	degraded := false
	if r.store != nil {
		if cached, ok := r.cache.get(key); ok {
			policy = cached
		} else {
			doc, found, err := r.store.FetchCentralConfig(ctx, owner, repo)
			switch {
			case err != nil:
				if cached, ok := r.cache.get(key); ok {
					log.Warnf("central store unavailable for %s, using cached config within TTL: %v", key, err)
					policy = cached
				} else {
					log.Warnf("central store unavailable for %s with no usable cached config, falling back to defaults: %v", key, err)
					policy = DefaultPolicy()
					degraded = true
				}
			case found:
				p, perr := parseRepoConfig(ctx, doc, policy)
				var cfgErr *ConfigError
				if errors.As(perr, &cfgErr) {
					return ResolveResult{Policy: DefaultPolicy(), Degraded: false, ConfigErr: cfgErr}, nil
				}
				if perr != nil {
					return ResolveResult{}, fmt.Errorf("resolving central store config: %w", perr)
				}
				policy = p
				r.cache.set(key, policy)
			default:
				// central store reachable, nothing configured there: keep repo-file/default layer.
			}
		}
	}

	policy = applyOverrides(policy, envOverrides)
	policy = applyOverrides(policy, cliOverrides)

	return ResolveResult{Policy: policy, Degraded: degraded}, nil
}

// InvalidateRepo drops any cached central-store snapshot for owner/repo, for
// explicit refresh requests.
func (r *Resolver) InvalidateRepo(owner, repo string) {
	r.cache.invalidate(owner + "/" + repo)
}

func applyOverrides(p EffectivePolicy, o *Overrides) EffectivePolicy {
	if o == nil {
		return p
	}
	if o.TitleMode != nil {
		p.Title.Mode = *o.TitleMode
	}
	if o.WorkItemRequired != nil {
		p.WorkItem.Required = *o.WorkItemRequired
	}
	if o.SizeFailOnOversize != nil {
		p.Size.FailOnOversized = *o.SizeFailOnOversize
	}
	return p
}
