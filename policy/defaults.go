/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package policy

import "regexp"

// defaultWorkItemPattern accepts #N, GH-N, owner/repo#N, optionally
// preceded case-insensitively by a closing verb, per spec §3.
const defaultWorkItemPattern = `(?i)(closes?d?|fix(?:e[sd])?|resolves?d?|relates to|references?|refs?)\s+((?:[\w.-]+/[\w.-]+)?(?:#|GH-)\d+)|(?:[\w.-]+/[\w.-]+)?(?:#|GH-)\d+`

// DefaultPolicy is the built-in-defaults fallback, used when the repository
// carries no config file, the central store is unreachable with no cached
// value, or a permanent ConfigError forces the fallback path.
func DefaultPolicy() EffectivePolicy {
	return EffectivePolicy{
		SchemaVersion: CurrentSchemaVersion,
		Title: TitlePolicy{
			Mode: TitleConventionalCommits,
		},
		WorkItem: WorkItemPolicy{
			Required: true,
			Pattern:  regexp.MustCompile(defaultWorkItemPattern),
		},
		Size: SizePolicy{
			Enabled:         true,
			FailOnOversized: false,
			Thresholds: SizeThresholds{
				XS: 10, S: 50, M: 100, L: 250, XL: 500,
			},
			ExcludedGlobs:      []string{"*.md", "**/*.lock", "**/testdata/**"},
			LabelPrefix:        "size/",
			CommentOnOversized: true,
		},
		Bypass: BypassPolicy{
			Title:    BypassRule{Enabled: false, Actors: map[string]struct{}{}},
			WorkItem: BypassRule{Enabled: false, Actors: map[string]struct{}{}},
		},
		Labels: LabelNames{
			InvalidTitle:    "invalid-title",
			MissingWorkItem: "missing-work-item",
		},
	}
}
