/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package validate

import (
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

// Evaluate runs all validators in the fixed order spec §4.2 requires
// (title, work-item, size) for deterministic logging. Each validator is
// referentially transparent (P4): identical (pr, policy) inputs always
// produce byte-identical outcomes, since none of them touch I/O or time.
func Evaluate(pr *platform.PullRequest, pol policy.EffectivePolicy) []CheckOutcome {
	return []CheckOutcome{
		Title(pr, pol),
		WorkItem(pr, pol),
		Size(pr, pol),
	}
}
