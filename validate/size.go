/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package validate

import (
	"fmt"
	"path"
	"strings"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

// Size evaluates the size validator for one cycle.
func Size(pr *platform.PullRequest, pol policy.EffectivePolicy) CheckOutcome {
	if !pol.Size.Enabled {
		return CheckOutcome{Kind: CheckSize, Status: StatusDisabled, Artifacts: DesiredArtifacts{
			StatusContribution: platform.ConclusionNeutral,
		}}
	}

	netLines := 0
	for _, f := range pr.ChangedFiles {
		if isExcluded(f.Path, pol.Size.ExcludedGlobs) {
			continue
		}
		netLines += int(f.Additions) + int(f.Deletions)
	}

	bucket, oversized := bucketFor(netLines, pol.Size.Thresholds)
	label := pol.Size.LabelPrefix + bucket

	status := StatusPass
	conclusion := platform.ConclusionSuccess
	var detail string
	var body *string
	if oversized && pol.Size.FailOnOversized {
		status = StatusFail
		conclusion = platform.ConclusionFailure
		detail = fmt.Sprintf("PR is oversized: %d net counted lines exceeds the xl threshold of %d", netLines, pol.Size.Thresholds.XL)
		if pol.Size.CommentOnOversized {
			body = commentBody(fmt.Sprintf(
				"<!-- merge-warden:size:v%d -->\n"+
					"**This PR is oversized** (%d net counted lines). Consider splitting it into smaller PRs.",
				platform.MarkerSchemaVersion, netLines,
			))
		}
	}

	return CheckOutcome{
		Kind:   CheckSize,
		Status: status,
		Detail: detail,
		Artifacts: DesiredArtifacts{
			AddLabels:          []string{label},
			CommentBody:        body,
			StatusContribution: conclusion,
		},
	}
}

// bucketFor returns the smallest bucket name whose threshold is >= netLines,
// or "XXL" with oversized=true when it exceeds even the xl threshold.
func bucketFor(netLines int, t policy.SizeThresholds) (bucket string, oversized bool) {
	switch {
	case netLines <= t.XS:
		return "XS", false
	case netLines <= t.S:
		return "S", false
	case netLines <= t.M:
		return "M", false
	case netLines <= t.L:
		return "L", false
	case netLines <= t.XL:
		return "XL", false
	default:
		return "XXL", true
	}
}

// isExcluded reports whether path matches any of the glob patterns. `*`
// matches within a single path segment, `**` matches any number of
// segments; matching is case-sensitive, per spec §4.2.
func isExcluded(p string, globs []string) bool {
	for _, g := range globs {
		if matchGlob(g, p) {
			return true
		}
	}
	return false
}

func matchGlob(pattern, p string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(p, "/"))
}

func matchSegments(patSegs, strSegs []string) bool {
	if len(patSegs) == 0 {
		return len(strSegs) == 0
	}
	if patSegs[0] == "**" {
		if matchSegments(patSegs[1:], strSegs) {
			return true
		}
		if len(strSegs) == 0 {
			return false
		}
		return matchSegments(patSegs, strSegs[1:])
	}
	if len(strSegs) == 0 {
		return false
	}
	ok, err := path.Match(patSegs[0], strSegs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(patSegs[1:], strSegs[1:])
}
