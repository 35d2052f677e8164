/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package validate

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
)

func TestTitle_ConventionalCommits(t *testing.T) {
	pol := policy.DefaultPolicy()

	tests := []struct {
		name       string
		title      string
		wantStatus Status
		wantDetail string
	}{
		{"valid simple", "feat: add v2 endpoint", StatusPass, ""},
		{"valid with scope", "fix(api): handle nil pointer", StatusPass, ""},
		{"valid breaking", "feat(api)!: remove v1 endpoint", StatusPass, ""},
		{"missing type", ": add a thing", StatusFail, failMissingType},
		{"unknown word without colon", "added api", StatusFail, failMissingType},
		{"unknown type", "feature: add a thing", StatusFail, failUnknownType},
		{"missing colon space", "feat add a thing", StatusFail, failMissingColonSpace},
		{"empty description", "feat: ", StatusFail, failEmptyDescription},
		{"control char", "feat: add a \x07thing", StatusFail, failForbiddenControl},
		{"empty scope", "feat(): add a thing", StatusFail, failScopeLength},
		{"scope too long", "feat(" + strings.Repeat("a", 65) + "): add a thing", StatusFail, failScopeLength},
		{"scope at max length", "feat(" + strings.Repeat("a", 64) + "): add a thing", StatusPass, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := &platform.PullRequest{Title: tt.title}
			got := Title(pr, pol)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v (detail=%q)", got.Status, tt.wantStatus, got.Detail)
			}
			if tt.wantDetail != "" && got.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", got.Detail, tt.wantDetail)
			}
		})
	}
}

func TestTitle_Disabled(t *testing.T) {
	pol := policy.DefaultPolicy()
	pol.Title.Mode = policy.TitleDisabled

	got := Title(&platform.PullRequest{Title: "not conventional at all"}, pol)
	if got.Status != StatusDisabled {
		t.Errorf("Status = %v, want %v", got.Status, StatusDisabled)
	}
	if len(got.Artifacts.AddLabels) != 0 {
		t.Errorf("AddLabels = %v, want empty", got.Artifacts.AddLabels)
	}
}

func TestTitle_PassRequestsLabelRemoval(t *testing.T) {
	pol := policy.DefaultPolicy()
	got := Title(&platform.PullRequest{Title: "feat: add a thing"}, pol)
	if got.Status != StatusPass {
		t.Fatalf("Status = %v, want Pass", got.Status)
	}
	if len(got.Artifacts.RemoveLabels) != 1 || got.Artifacts.RemoveLabels[0] != pol.Labels.InvalidTitle {
		t.Errorf("RemoveLabels = %v, want [%s]", got.Artifacts.RemoveLabels, pol.Labels.InvalidTitle)
	}
}

func TestTitle_Referentiallytransparent(t *testing.T) {
	pol := policy.DefaultPolicy()
	pr := &platform.PullRequest{Title: "bad title"}
	a := Title(pr, pol)
	b := Title(pr, pol)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Title is not referentially transparent: %+v != %+v", a, b)
	}
}
