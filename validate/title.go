/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

const maxTitleLen = 256

// titleShape always matches (every group is optional) so the distinct
// failure modes spec §4.2 requires can be read off which group is empty,
// rather than retrying several anchored patterns. The scope group is bound
// to 1-64 characters per spec §4.2's literal pattern; an empty or
// over-length scope is caught separately by rawScopeRe below so it gets its
// own failure mode rather than silently falling through as a missing scope.
var titleShape = regexp.MustCompile(`^([a-zA-Z]*)(\([^)]{1,64}\))?(!)?(: ?)?(.*)$`)

// rawScopeRe detects any parenthesized scope attempt immediately after the
// type, regardless of length, so conventionalCommitsTitle can distinguish
// "scope present but wrong length" from "no scope at all".
var rawScopeRe = regexp.MustCompile(`^[a-zA-Z]*(\([^)]*\))`)

const (
	failMissingType       = "missing-type"
	failUnknownType       = "unknown-type"
	failMissingColonSpace = "missing-colon-space"
	failEmptyDescription  = "empty-description"
	failForbiddenControl  = "forbidden-control-char"
	failScopeLength       = "scope-length"
)

// Title evaluates the title validator for one cycle.
func Title(pr *platform.PullRequest, pol policy.EffectivePolicy) CheckOutcome {
	title, truncated := truncate(pr.Title, maxTitleLen)

	switch pol.Title.Mode {
	case policy.TitleDisabled:
		return CheckOutcome{Kind: CheckTitle, Status: StatusDisabled, Artifacts: DesiredArtifacts{
			StatusContribution: platform.ConclusionNeutral,
		}}
	case policy.TitleRegex:
		if pol.Title.Pattern != nil && pol.Title.Pattern.MatchString(title) {
			return passTitle(pol)
		}
		return failTitle(pol, "does not match the configured pattern", fmt.Sprintf("pattern: `%s`", patternSource(pol.Title.Pattern)), truncated)
	default: // conventional-commits
		return conventionalCommitsTitle(title, pol, truncated)
	}
}

func conventionalCommitsTitle(title string, pol policy.EffectivePolicy, truncated bool) CheckOutcome {
	if forbiddenControlChar(title) {
		return failTitle(pol, failForbiddenControl, "feat: remove control characters from the title", truncated)
	}

	if raw := rawScopeRe.FindStringSubmatch(title); raw != nil {
		scopeContent := raw[1][1 : len(raw[1])-1]
		if n := len([]rune(scopeContent)); n < 1 || n > 64 {
			return failTitle(pol, failScopeLength, "feat(api): add a short description", truncated)
		}
	}

	m := titleShape.FindStringSubmatch(title)
	typ, colonSpace, rest := m[1], m[4], m[5]

	switch {
	case typ == "":
		return failTitle(pol, failMissingType, "feat: add a short description", truncated)
	case !isConventionalType(typ) && colonSpace == "":
		// The leading word is not a recognized type and no colon follows it
		// at all: the title does not begin with a type ("added api").
		return failTitle(pol, failMissingType, "feat: add a short description", truncated)
	case !isConventionalType(typ):
		return failTitle(pol, failUnknownType, fmt.Sprintf("feat: %s (valid types: %s)", rest, strings.Join(policy.ConventionalTypes, ", ")), truncated)
	case colonSpace != ": ":
		return failTitle(pol, failMissingColonSpace, fmt.Sprintf("%s: add a short description", typ), truncated)
	case rest == "":
		return failTitle(pol, failEmptyDescription, typ+": add a short description", truncated)
	default:
		return passTitle(pol)
	}
}

func isConventionalType(t string) bool {
	for _, c := range policy.ConventionalTypes {
		if c == t {
			return true
		}
	}
	return false
}

func forbiddenControlChar(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

func passTitle(pol policy.EffectivePolicy) CheckOutcome {
	return CheckOutcome{
		Kind:   CheckTitle,
		Status: StatusPass,
		Artifacts: DesiredArtifacts{
			RemoveLabels:       []string{pol.Labels.InvalidTitle},
			StatusContribution: platform.ConclusionSuccess,
		},
	}
}

func failTitle(pol policy.EffectivePolicy, failureMode, example string, truncated bool) CheckOutcome {
	detail := failureMode
	if truncated {
		detail += " (title truncated to 256 characters before matching)"
	}
	body := fmt.Sprintf(
		"<!-- merge-warden:title:v%d -->\n"+
			"**Title check failed:** `%s`\n\n"+
			"Example of a valid title:\n```\n%s\n```",
		platform.MarkerSchemaVersion, failureMode, example,
	)
	return CheckOutcome{
		Kind:   CheckTitle,
		Status: StatusFail,
		Detail: detail,
		Artifacts: DesiredArtifacts{
			AddLabels:          []string{pol.Labels.InvalidTitle},
			CommentBody:        commentBody(body),
			StatusContribution: platform.ConclusionFailure,
		},
	}
}

func patternSource(re *regexp.Regexp) string {
	if re == nil {
		return ""
	}
	return re.String()
}

// truncate caps s at maxLen runes, returning whether truncation occurred.
func truncate(s string, maxLen int) (string, bool) {
	r := []rune(s)
	if len(r) <= maxLen {
		return s, false
	}
	return string(r[:maxLen]), true
}
