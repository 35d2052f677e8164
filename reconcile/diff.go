/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package reconcile

import (
	"sort"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/validate"
)

// LabelDiff is the minimal label mutation set computed from current state
// and the desired artifacts of a set of outcomes, per spec §4.4 step 1-2.
type LabelDiff struct {
	ToAdd    []string
	ToRemove []string
}

// computeLabelDiff implements spec §4.4's diff algorithm steps 1-2: every
// label an outcome wants present is added if missing, and every
// currently-attached bot-owned label that no outcome wants present any
// more is removed. Deriving removal from current state rather than from
// the validators' explicit RemoveLabels declarations means a validator
// that forgets to declare a removal cannot leak a stale bot label, and it
// keeps the size bucket family single-membered without the validator ever
// inspecting current state. Add wins over remove for the same name by
// construction — removal only considers names outside the desired set —
// which is what makes re-running against converged state a no-op (P1) and
// an add+remove of the same label in one cycle impossible. Human-owned
// labels are never removal candidates (P2).
func computeLabelDiff(current []platform.Label, outcomes []validate.CheckOutcome, labels policy.LabelNames, sizePrefix string) LabelDiff {
	desired := map[string]struct{}{}
	for _, o := range outcomes {
		for _, name := range o.Artifacts.AddLabels {
			desired[name] = struct{}{}
		}
	}

	var toAdd, toRemove []string
	currentSet := map[string]struct{}{}
	for _, l := range current {
		currentSet[l.Name] = struct{}{}
		if _, want := desired[l.Name]; !want && IsBotLabel(l.Name, labels, sizePrefix) {
			toRemove = append(toRemove, l.Name)
		}
	}
	for name := range desired {
		if _, present := currentSet[name]; !present {
			toAdd = append(toAdd, name)
		}
	}

	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return LabelDiff{ToAdd: toAdd, ToRemove: toRemove}
}

// CommentAction is one step the reconciler must take for a single bot
// comment kind.
type CommentAction struct {
	Kind   platform.CommentKind
	Action string // "create", "edit", "delete", "none"
	// ExistingID is set for edit/delete; ExtraDeleteIDs holds duplicate
	// bot comments of the same kind beyond the retained oldest one (spec
	// §4.4: "if duplicates are found, the oldest is retained and edited,
	// the rest deleted").
	ExistingID     int64
	ExtraDeleteIDs []int64
	Body           string
}

// computeCommentDiff implements spec §4.4 step 3.
func computeCommentDiff(current []platform.Comment, outcomes []validate.CheckOutcome) []CommentAction {
	desired := map[platform.CommentKind]*string{}
	for _, o := range outcomes {
		kind := platform.CommentKind(o.Kind)
		desired[kind] = o.Artifacts.CommentBody
	}
	// A config-error comment is only ever desired by the ConfigError path,
	// which bypasses this diff entirely; a normal cycle reaching here means
	// the configuration resolved, so any leftover config comment is stale.
	if _, ok := desired[platform.CommentKindConfig]; !ok {
		desired[platform.CommentKindConfig] = nil
	}

	existing := map[platform.CommentKind][]platform.Comment{}
	for _, c := range current {
		kind, _, ok := CommentKindOf(c.Body)
		if !ok {
			continue
		}
		existing[kind] = append(existing[kind], c)
	}

	var actions []CommentAction
	for kind, body := range desired {
		matches := existing[kind]
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

		switch {
		case body == nil && len(matches) == 0:
			// nothing to do
		case body == nil && len(matches) > 0:
			actions = append(actions, CommentAction{Kind: kind, Action: "delete", ExistingID: matches[0].ID, ExtraDeleteIDs: idsOf(matches[1:])})
		case body != nil && len(matches) == 0:
			actions = append(actions, CommentAction{Kind: kind, Action: "create", Body: *body})
		case body != nil && matches[0].Body == *body:
			if len(matches) > 1 {
				actions = append(actions, CommentAction{Kind: kind, Action: "none", ExistingID: matches[0].ID, ExtraDeleteIDs: idsOf(matches[1:])})
			}
		default:
			actions = append(actions, CommentAction{Kind: kind, Action: "edit", ExistingID: matches[0].ID, ExtraDeleteIDs: idsOf(matches[1:]), Body: *body})
		}
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Kind < actions[j].Kind })
	return actions
}

func idsOf(comments []platform.Comment) []int64 {
	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	return ids
}

// computeCommitStatus implements spec §4.4 step 4.
func computeCommitStatus(outcomes []validate.CheckOutcome) (platform.CommitStatusConclusion, string) {
	conclusion := platform.ConclusionSuccess
	anyFail := false
	anyBypassed := false
	lines := make([]string, 0, len(outcomes))

	for _, o := range outcomes {
		switch o.Status {
		case validate.StatusFail:
			anyFail = true
		case validate.StatusBypassed:
			anyBypassed = true
		}
		lines = append(lines, "- "+string(o.Kind)+": "+string(o.Status))
	}

	switch {
	case anyFail:
		conclusion = platform.ConclusionFailure
	case anyBypassed:
		conclusion = platform.ConclusionNeutral
	default:
		conclusion = platform.ConclusionSuccess
	}

	summary := ""
	for i, l := range lines {
		if i > 0 {
			summary += "\n"
		}
		summary += l
	}
	return conclusion, summary
}
