/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/pelletier/go-toml/v2"
)

// repoConfigPaths are tried in order against the PR's base branch; the
// first one present wins.
var repoConfigPaths = []string{".github/merge-warden.toml", ".merge-warden.toml"}

// RepoConfigPaths returns the candidate config file paths, for callers that
// fetch repository content themselves. This package does not depend on
// platform, to stay decoupled from transport; platform.GitHubRepoFileSource
// keeps its own copy of the same list.
func RepoConfigPaths() []string { return repoConfigPaths }

type rawTitle struct {
	Format  string `toml:"format"`
	Pattern string `toml:"pattern"`
}

// The work-item and size bool fields are pointers for the same reason PRSize
// is: go-toml/v2 only allocates a pointer field when the key is present, so
// "key absent, inherit the default" and "key explicitly false" stay
// distinguishable. rawBypassRule.Enabled is a plain bool.
type rawWorkItem struct {
	Required *bool  `toml:"required"`
	Pattern  string `toml:"pattern"`
}

type rawThresholds struct {
	XS int `toml:"xs"`
	S  int `toml:"s"`
	M  int `toml:"m"`
	L  int `toml:"l"`
	XL int `toml:"xl"`
}

type rawSize struct {
	Enabled            *bool         `toml:"enabled"`
	FailOnOversized    *bool         `toml:"failOnOversized"`
	Thresholds         rawThresholds `toml:"thresholds"`
	ExcludedPatterns   []string      `toml:"excludedPatterns"`
	LabelPrefix        string        `toml:"labelPrefix"`
	CommentOnOversized *bool         `toml:"commentOnOversized"`
}

type rawBypassRule struct {
	Enabled bool     `toml:"enabled"`
	Actors  []string `toml:"actors"`
}

type rawBypass struct {
	PRTitle  rawBypassRule `toml:"prTitle"`
	WorkItem rawBypassRule `toml:"workItem"`
}

type rawLabels struct {
	InvalidTitle    string `toml:"invalidTitle"`
	MissingWorkItem string `toml:"missingWorkItem"`
	SizePrefix      string `toml:"sizeLabelPrefix"`
}

type rawPolicies struct {
	PullRequests struct {
		PRTitle  rawTitle    `toml:"prTitle"`
		WorkItem rawWorkItem `toml:"workItem"`
		// PRSize is a pointer so the decoder can distinguish "table present
		// with every key at its zero value" (e.g. an explicit `enabled =
		// false` and nothing else) from "table absent entirely" — go-toml/v2
		// allocates a pointer struct field only when the TOML table key is
		// actually present in the document.
		PRSize *rawSize `toml:"prSize"`
	} `toml:"pullRequests"`
	Bypass rawBypass `toml:"bypass"`
	Labels rawLabels `toml:"labels"`
}

type rawConfig struct {
	SchemaVersion int         `toml:"schemaVersion"`
	Policies      rawPolicies `toml:"policies"`
}

// parseRepoConfig decodes a repository config document into EffectivePolicy,
// starting from defaults and overlaying whatever the document sets. Unknown
// keys are logged as a warning via a second, strict-mode pass, matching
// spec §4.1's "unknown keys are a warning" rule: the permissive decode's
// result is still used even when the strict pass fails.
func parseRepoConfig(ctx context.Context, doc []byte, base EffectivePolicy) (EffectivePolicy, error) {
	var raw rawConfig
	if err := toml.Unmarshal(doc, &raw); err != nil {
		return base, fmt.Errorf("parsing repository config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	var strict rawConfig
	if err := dec.Decode(&strict); err != nil {
		clog.FromContext(ctx).Warnf("merge-warden config contains unknown keys: %v", err)
	}

	if raw.SchemaVersion != CurrentSchemaVersion {
		return base, &ConfigError{Kind: ErrUnsupportedSchema, Schema: raw.SchemaVersion}
	}

	out := base
	out.SchemaVersion = raw.SchemaVersion

	if t := raw.Policies.PullRequests.PRTitle; t.Format != "" {
		switch t.Format {
		case "conventional-commits":
			out.Title = TitlePolicy{Mode: TitleConventionalCommits}
		case "regex":
			re, err := regexp.Compile(`^(?:` + t.Pattern + `)$`)
			if err != nil {
				return base, &ConfigError{Kind: ErrInvalidRegex, Key: "policies.pullRequests.prTitle.pattern", Err: err}
			}
			out.Title = TitlePolicy{Mode: TitleRegex, Pattern: re}
		case "disabled":
			out.Title = TitlePolicy{Mode: TitleDisabled}
		default:
			clog.FromContext(ctx).Warnf("unknown prTitle format %q, keeping inherited title policy", t.Format)
		}
	}

	if w := raw.Policies.PullRequests.WorkItem; w.Pattern != "" || w.Required != nil {
		if w.Pattern != "" {
			re, err := regexp.Compile(w.Pattern)
			if err != nil {
				return base, &ConfigError{Kind: ErrInvalidRegex, Key: "policies.pullRequests.workItem.pattern", Err: err}
			}
			out.WorkItem.Pattern = re
		}
		if w.Required != nil {
			out.WorkItem.Required = *w.Required
		}
	}

	if s := raw.Policies.PullRequests.PRSize; s != nil {
		th := SizeThresholds{XS: s.Thresholds.XS, S: s.Thresholds.S, M: s.Thresholds.M, L: s.Thresholds.L, XL: s.Thresholds.XL}
		if th == (SizeThresholds{}) {
			th = base.Size.Thresholds
		}
		if !monotonic(th) {
			return base, &ConfigError{Kind: ErrThresholdNotMonotonic}
		}
		out.Size.Thresholds = th
		if s.Enabled != nil {
			out.Size.Enabled = *s.Enabled
		}
		if s.FailOnOversized != nil {
			out.Size.FailOnOversized = *s.FailOnOversized
		}
		if s.CommentOnOversized != nil {
			out.Size.CommentOnOversized = *s.CommentOnOversized
		}
		if s.ExcludedPatterns != nil {
			out.Size.ExcludedGlobs = s.ExcludedPatterns
		}
		if s.LabelPrefix != "" {
			out.Size.LabelPrefix = s.LabelPrefix
		}
	}

	if b := raw.Policies.Bypass.PRTitle; len(b.Actors) > 0 || b.Enabled {
		out.Bypass.Title = BypassRule{Enabled: b.Enabled, Actors: actorSet(b.Actors)}
	}
	if b := raw.Policies.Bypass.WorkItem; len(b.Actors) > 0 || b.Enabled {
		out.Bypass.WorkItem = BypassRule{Enabled: b.Enabled, Actors: actorSet(b.Actors)}
	}

	if l := raw.Policies.Labels; l.InvalidTitle != "" {
		out.Labels.InvalidTitle = l.InvalidTitle
	}
	if l := raw.Policies.Labels; l.MissingWorkItem != "" {
		out.Labels.MissingWorkItem = l.MissingWorkItem
	}
	if l := raw.Policies.Labels; l.SizePrefix != "" {
		out.Size.LabelPrefix = l.SizePrefix
	}

	if err := validateLabelNames(out.Labels); err != nil {
		return base, &ConfigError{Kind: ErrLabelNamesInvalid, Err: err}
	}

	return out, nil
}

func monotonic(t SizeThresholds) bool {
	return t.XS >= 0 && t.XS < t.S && t.S < t.M && t.M < t.L && t.L < t.XL
}

func actorSet(actors []string) map[string]struct{} {
	out := make(map[string]struct{}, len(actors))
	for _, a := range actors {
		out[strings.ToLower(a)] = struct{}{}
	}
	return out
}

func validateLabelNames(l LabelNames) error {
	if l.InvalidTitle == "" || l.MissingWorkItem == "" {
		return fmt.Errorf("label names must be non-empty")
	}
	if l.InvalidTitle == l.MissingWorkItem {
		return fmt.Errorf("invalid-title and missing-work-item labels must be distinct, got %q twice", l.InvalidTitle)
	}
	return nil
}
