/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package validate

import (
	"fmt"
	"regexp"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

const maxBodyLen = 65536

var (
	fencedCodeBlockRe = regexp.MustCompile("(?s)```.*?```")
	htmlCommentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	inlineCodeRe      = regexp.MustCompile("`[^`\n]*`")
)

// WorkItem evaluates the work-item validator for one cycle. Matches inside
// fenced code blocks, inline code, and HTML comments are ignored per spec
// §4.2, since those regions are either quoted examples or editor scaffolding
// rather than an intentional reference.
func WorkItem(pr *platform.PullRequest, pol policy.EffectivePolicy) CheckOutcome {
	if !pol.WorkItem.Required {
		return CheckOutcome{Kind: CheckWorkItem, Status: StatusDisabled, Artifacts: DesiredArtifacts{
			RemoveLabels:       []string{pol.Labels.MissingWorkItem},
			StatusContribution: platform.ConclusionNeutral,
		}}
	}

	body, _ := truncate(pr.Body, maxBodyLen)
	scanned := stripIgnoredRegions(body)

	if pol.WorkItem.Pattern != nil && pol.WorkItem.Pattern.MatchString(scanned) {
		return CheckOutcome{
			Kind:   CheckWorkItem,
			Status: StatusPass,
			Artifacts: DesiredArtifacts{
				RemoveLabels:       []string{pol.Labels.MissingWorkItem},
				StatusContribution: platform.ConclusionSuccess,
			},
		}
	}

	body1 := fmt.Sprintf(
		"<!-- merge-warden:workitem:v%d -->\n"+
			"**No work-item reference found.** Reference a tracker issue in the description, "+
			"e.g. `Fixes #123` or `Closes owner/repo#123`.",
		platform.MarkerSchemaVersion,
	)
	return CheckOutcome{
		Kind:   CheckWorkItem,
		Status: StatusFail,
		Detail: "no work-item reference found outside of code blocks, inline code, or HTML comments",
		Artifacts: DesiredArtifacts{
			AddLabels:          []string{pol.Labels.MissingWorkItem},
			CommentBody:        commentBody(body1),
			StatusContribution: platform.ConclusionFailure,
		},
	}
}

// stripIgnoredRegions removes fenced code blocks, HTML comments, and inline
// code spans before the pattern is applied.
func stripIgnoredRegions(body string) string {
	body = fencedCodeBlockRe.ReplaceAllString(body, "")
	body = htmlCommentRe.ReplaceAllString(body, "")
	body = inlineCodeRe.ReplaceAllString(body, "")
	return body
}
