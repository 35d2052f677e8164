/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package reconcile

import (
	"testing"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/validate"
)

var testLabels = policy.LabelNames{InvalidTitle: "invalid-title", MissingWorkItem: "missing-work-item"}

func strptr(s string) *string { return &s }

func TestComputeLabelDiff_AddsMissingDesired(t *testing.T) {
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckTitle, Status: validate.StatusFail, Artifacts: validate.DesiredArtifacts{AddLabels: []string{"invalid-title"}}},
	}
	diff := computeLabelDiff(nil, outcomes, testLabels, "size/")
	if len(diff.ToAdd) != 1 || diff.ToAdd[0] != "invalid-title" {
		t.Fatalf("ToAdd = %v, want [invalid-title]", diff.ToAdd)
	}
	if len(diff.ToRemove) != 0 {
		t.Fatalf("ToRemove = %v, want none", diff.ToRemove)
	}
}

func TestComputeLabelDiff_NoOpWhenAlreadyPresent(t *testing.T) {
	current := []platform.Label{{Name: "invalid-title"}}
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckTitle, Status: validate.StatusFail, Artifacts: validate.DesiredArtifacts{AddLabels: []string{"invalid-title"}}},
	}
	diff := computeLabelDiff(current, outcomes, testLabels, "size/")
	if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 0 {
		t.Fatalf("re-running with already-converged state must be a no-op (P1), got ToAdd=%v ToRemove=%v", diff.ToAdd, diff.ToRemove)
	}
}

func TestComputeLabelDiff_RemovesBotLabelNoLongerDesired(t *testing.T) {
	current := []platform.Label{{Name: "invalid-title"}}
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckTitle, Status: validate.StatusPass},
	}
	diff := computeLabelDiff(current, outcomes, testLabels, "size/")
	if len(diff.ToAdd) != 0 {
		t.Fatalf("ToAdd = %v, want none", diff.ToAdd)
	}
	if len(diff.ToRemove) != 1 || diff.ToRemove[0] != "invalid-title" {
		t.Fatalf("ToRemove = %v, want [invalid-title]", diff.ToRemove)
	}
}

func TestComputeLabelDiff_NeverLeavesHumanLabels(t *testing.T) {
	current := []platform.Label{{Name: "good-first-issue"}}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Status: validate.StatusPass}}
	diff := computeLabelDiff(current, outcomes, testLabels, "size/")
	if len(diff.ToRemove) != 0 {
		t.Fatalf("ToRemove = %v, want none: human labels must never be touched (P2/P3)", diff.ToRemove)
	}
}

func TestComputeLabelDiff_DropsOldSizeBucket(t *testing.T) {
	current := []platform.Label{{Name: "size/s"}}
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckSize, Status: validate.StatusPass, Artifacts: validate.DesiredArtifacts{
			AddLabels: []string{"size/m"},
		}},
	}
	diff := computeLabelDiff(current, outcomes, testLabels, "size/")
	if len(diff.ToAdd) != 1 || diff.ToAdd[0] != "size/m" {
		t.Fatalf("ToAdd = %v, want [size/m]", diff.ToAdd)
	}
	if len(diff.ToRemove) != 1 || diff.ToRemove[0] != "size/s" {
		t.Fatalf("ToRemove = %v, want [size/s]: only one size bucket label may remain", diff.ToRemove)
	}
}

func TestComputeLabelDiff_AddWinsOverRemove(t *testing.T) {
	current := []platform.Label{{Name: "invalid-title"}}
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckTitle, Status: validate.StatusFail, Artifacts: validate.DesiredArtifacts{
			AddLabels:    []string{"invalid-title"},
			RemoveLabels: []string{"invalid-title"},
		}},
	}
	diff := computeLabelDiff(current, outcomes, testLabels, "size/")
	if len(diff.ToAdd) != 0 || len(diff.ToRemove) != 0 {
		t.Fatalf("add must win over remove for the same name: ToAdd=%v ToRemove=%v", diff.ToAdd, diff.ToRemove)
	}
}

func TestComputeCommentDiff_CreatesWhenDesiredAndAbsent(t *testing.T) {
	outcomes := []validate.CheckOutcome{
		{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{CommentBody: strptr("explain the failure")}},
	}
	actions := computeCommentDiff(nil, outcomes)
	if len(actions) != 1 || actions[0].Action != "create" {
		t.Fatalf("actions = %+v, want single create", actions)
	}
}

func TestComputeCommentDiff_DeletesWhenNoLongerDesired(t *testing.T) {
	current := []platform.Comment{{ID: 1, Body: "<!-- merge-warden:title:v1 -->\nold"}}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{CommentBody: nil}}}
	actions := computeCommentDiff(current, outcomes)
	if len(actions) != 1 || actions[0].Action != "delete" || actions[0].ExistingID != 1 {
		t.Fatalf("actions = %+v, want single delete of id 1", actions)
	}
}

func TestComputeCommentDiff_NoOpWhenBodyIdentical(t *testing.T) {
	body := "<!-- merge-warden:title:v1 -->\nsame"
	current := []platform.Comment{{ID: 1, Body: body}}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{CommentBody: strptr(body)}}}
	actions := computeCommentDiff(current, outcomes)
	if len(actions) != 0 {
		t.Fatalf("actions = %+v, want none: idempotence (P1) requires zero mutations when state already matches", actions)
	}
}

func TestComputeCommentDiff_EditsWhenBodyDiffers(t *testing.T) {
	current := []platform.Comment{{ID: 1, Body: "<!-- merge-warden:title:v1 -->\nold"}}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{CommentBody: strptr("new body")}}}
	actions := computeCommentDiff(current, outcomes)
	if len(actions) != 1 || actions[0].Action != "edit" || actions[0].ExistingID != 1 {
		t.Fatalf("actions = %+v, want single edit of id 1", actions)
	}
}

func TestComputeCommentDiff_DuplicatesKeepOldestDeleteRest(t *testing.T) {
	current := []platform.Comment{
		{ID: 5, Body: "<!-- merge-warden:title:v1 -->\nsecond"},
		{ID: 2, Body: "<!-- merge-warden:title:v1 -->\nfirst"},
	}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{CommentBody: strptr("new")}}}
	actions := computeCommentDiff(current, outcomes)
	if len(actions) != 1 {
		t.Fatalf("actions = %+v, want one action", actions)
	}
	if actions[0].ExistingID != 2 {
		t.Errorf("ExistingID = %d, want 2 (oldest retained)", actions[0].ExistingID)
	}
	if len(actions[0].ExtraDeleteIDs) != 1 || actions[0].ExtraDeleteIDs[0] != 5 {
		t.Errorf("ExtraDeleteIDs = %v, want [5]", actions[0].ExtraDeleteIDs)
	}
}

func TestComputeCommentDiff_StaleConfigCommentIsDeleted(t *testing.T) {
	current := []platform.Comment{{ID: 7, Body: "<!-- merge-warden:config:v1 -->\n**Configuration error**: bad regex"}}
	outcomes := []validate.CheckOutcome{{Kind: validate.CheckTitle, Artifacts: validate.DesiredArtifacts{}}}
	actions := computeCommentDiff(current, outcomes)
	if len(actions) != 1 || actions[0].Action != "delete" || actions[0].ExistingID != 7 {
		t.Fatalf("actions = %+v, want single delete of the stale config comment once config resolves again", actions)
	}
}

func TestComputeCommitStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []validate.Status
		want     platform.CommitStatusConclusion
	}{
		{"all pass", []validate.Status{validate.StatusPass, validate.StatusPass}, platform.ConclusionSuccess},
		{"one bypassed", []validate.Status{validate.StatusPass, validate.StatusBypassed}, platform.ConclusionNeutral},
		{"one fail wins over bypass", []validate.Status{validate.StatusFail, validate.StatusBypassed}, platform.ConclusionFailure},
		{"disabled counts as pass-like", []validate.Status{validate.StatusDisabled, validate.StatusPass}, platform.ConclusionSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes := make([]validate.CheckOutcome, len(tt.statuses))
			for i, s := range tt.statuses {
				outcomes[i] = validate.CheckOutcome{Kind: validate.CheckTitle, Status: s}
			}
			conclusion, _ := computeCommitStatus(outcomes)
			if conclusion != tt.want {
				t.Errorf("conclusion = %v, want %v", conclusion, tt.want)
			}
		})
	}
}
