/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package bypass

import (
	"testing"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/validate"
)

func failingTitleOutcome() validate.CheckOutcome {
	body := "failure body"
	return validate.CheckOutcome{
		Kind:   validate.CheckTitle,
		Status: validate.StatusFail,
		Artifacts: validate.DesiredArtifacts{
			AddLabels:          []string{"invalid-title"},
			CommentBody:        &body,
			StatusContribution: platform.ConclusionFailure,
		},
	}
}

func TestApply_BypassesEligibleActor(t *testing.T) {
	pol := policy.BypassPolicy{
		Title: policy.BypassRule{Enabled: true, Actors: map[string]struct{}{"dependabot[bot]": {}}},
	}
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}

	out, events := Apply(repo, 7, "Dependabot[bot]", pol, []validate.CheckOutcome{failingTitleOutcome()})

	if out[0].Status != validate.StatusBypassed {
		t.Fatalf("Status = %v, want Bypassed", out[0].Status)
	}
	if len(out[0].Artifacts.AddLabels) != 0 {
		t.Errorf("AddLabels = %v, want empty after bypass", out[0].Artifacts.AddLabels)
	}
	if out[0].Artifacts.StatusContribution != platform.ConclusionNeutral {
		t.Errorf("StatusContribution = %v, want neutral", out[0].Artifacts.StatusContribution)
	}
	if out[0].Artifacts.CommentBody == nil {
		t.Fatal("expected a bypass comment body, got nil")
	}
	if len(events) != 1 || events[0].Actor != "Dependabot[bot]" || events[0].Kind != validate.CheckTitle {
		t.Errorf("events = %+v, unexpected", events)
	}
}

func TestApply_IneligibleActorUnchanged(t *testing.T) {
	pol := policy.BypassPolicy{
		Title: policy.BypassRule{Enabled: true, Actors: map[string]struct{}{"dependabot[bot]": {}}},
	}
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}

	out, events := Apply(repo, 7, "some-human", pol, []validate.CheckOutcome{failingTitleOutcome()})

	if out[0].Status != validate.StatusFail {
		t.Errorf("Status = %v, want unchanged Fail", out[0].Status)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none", events)
	}
}

func TestApply_SizeNeverBypassed(t *testing.T) {
	pol := policy.BypassPolicy{
		Title:    policy.BypassRule{Enabled: true, Actors: map[string]struct{}{"dependabot[bot]": {}}},
		WorkItem: policy.BypassRule{Enabled: true, Actors: map[string]struct{}{"dependabot[bot]": {}}},
	}
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}
	sizeOutcome := validate.CheckOutcome{Kind: validate.CheckSize, Status: validate.StatusFail}

	out, events := Apply(repo, 7, "dependabot[bot]", pol, []validate.CheckOutcome{sizeOutcome})

	if out[0].Status != validate.StatusFail {
		t.Errorf("Status = %v, want unchanged (size has no bypass rule set)", out[0].Status)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none", events)
	}
}

func TestApply_CaseInsensitiveActorMatchPreservesBotSuffix(t *testing.T) {
	pol := policy.BypassPolicy{
		Title: policy.BypassRule{Enabled: true, Actors: map[string]struct{}{"renovate[bot]": {}}},
	}
	repo := platform.RepoRef{Owner: "acme", Name: "widgets"}

	_, events := Apply(repo, 1, "RENOVATE[bot]", pol, []validate.CheckOutcome{failingTitleOutcome()})
	if len(events) != 1 {
		t.Fatalf("expected case-insensitive match to bypass, got %d events", len(events))
	}

	_, events2 := Apply(repo, 1, "renovate", pol, []validate.CheckOutcome{failingTitleOutcome()})
	if len(events2) != 0 {
		t.Errorf("expected login without [bot] suffix to NOT match, got %d events", len(events2))
	}
}
