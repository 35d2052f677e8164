/*
Copyright 2026 Merge Warden Authors
SPDX-License-Identifier: Apache-2.0
*/

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/pvandervelde/merge-warden/platform"
	"github.com/pvandervelde/merge-warden/policy"
	"github.com/pvandervelde/merge-warden/validate"
)

// Report is what Reconcile changed, returned for the audit record (spec
// §4.5's `mutations_applied`).
type Report struct {
	LabelsAdded      []string
	LabelsRemoved    []string
	CommentsCreated  []platform.CommentKind
	CommentsUpdated  []platform.CommentKind
	CommentsDeleted  []platform.CommentKind
	StatusConclusion platform.CommitStatusConclusion
	PartialFailure   bool
	Errors           []error
}

func (r *Report) addErr(op string, err error) {
	r.Errors = append(r.Errors, fmt.Errorf("%s: %w", op, err))
}

// Reconcile implements C4's contract: reconcile(pr, outcomes, policy,
// platform) -> ReconcileReport. Mutations are applied in the priority
// order spec §4.4 fixes: commit-status, then labels, then comments. A
// permanent error on a higher-priority tier aborts the remaining
// lower-priority mutations for this cycle; idempotence (P1) makes it safe
// to pick them up again next cycle. currentComments is passed in rather
// than fetched here so callers (coordinate.Coordinator) control the
// platform round-trips within their own timeout budget; current label
// state rides along on pr.Labels, which the same upstream fetch already
// populates — the asymmetry is intentional, since comments need their own
// list call while labels come for free with the PR view.
func Reconcile(ctx context.Context, adapter platform.Adapter, pr *platform.PullRequest, currentComments []platform.Comment, outcomes []validate.CheckOutcome, pol policy.EffectivePolicy) Report {
	log := clog.FromContext(ctx)
	report := Report{}

	conclusion, summary := computeCommitStatus(outcomes)
	report.StatusConclusion = conclusion
	err := retry(ctx, func() error {
		return adapter.SetCommitStatus(ctx, pr.Repo, platform.CommitStatus{SHA: pr.HeadSHA, Conclusion: conclusion, Summary: summary})
	})
	if err != nil {
		report.addErr("commit status", err)
		if isPermanent(err) {
			log.Warnf("%s/%s#%d: permanent error setting commit status, aborting remaining mutations: %v", pr.Repo.Owner, pr.Repo.Name, pr.Number, err)
			report.PartialFailure = true
			return report
		}
		report.PartialFailure = true
	}

	if applyLabels(ctx, adapter, pr, outcomes, pol, &report) {
		return report
	}

	applyComments(ctx, adapter, pr, currentComments, outcomes, &report)
	return report
}

func applyLabels(ctx context.Context, adapter platform.Adapter, pr *platform.PullRequest, outcomes []validate.CheckOutcome, pol policy.EffectivePolicy, report *Report) (abort bool) {
	diff := computeLabelDiff(pr.Labels, outcomes, pol.Labels, pol.Size.LabelPrefix)

	for _, name := range diff.ToAdd {
		err := retry(ctx, func() error {
			return adapter.AddLabel(ctx, pr.Repo, pr.Number, name, colorFor(name, pol))
		})
		if err != nil {
			report.addErr("add label "+name, err)
			report.PartialFailure = true
			if isPermanent(err) {
				return true
			}
			continue
		}
		report.LabelsAdded = append(report.LabelsAdded, name)
	}

	for _, name := range diff.ToRemove {
		err := retry(ctx, func() error {
			return adapter.RemoveLabel(ctx, pr.Repo, pr.Number, name)
		})
		if err != nil {
			report.addErr("remove label "+name, err)
			report.PartialFailure = true
			if isPermanent(err) {
				return true
			}
			continue
		}
		report.LabelsRemoved = append(report.LabelsRemoved, name)
	}

	return false
}

func applyComments(ctx context.Context, adapter platform.Adapter, pr *platform.PullRequest, currentComments []platform.Comment, outcomes []validate.CheckOutcome, report *Report) {
	actions := computeCommentDiff(currentComments, outcomes)

	for _, a := range actions {
		for _, extraID := range a.ExtraDeleteIDs {
			id := extraID
			if err := retry(ctx, func() error { return adapter.DeleteComment(ctx, pr.Repo, id) }); err != nil {
				report.addErr(fmt.Sprintf("delete duplicate %s comment", a.Kind), err)
				report.PartialFailure = true
				if isPermanent(err) {
					return
				}
			}
		}

		switch a.Action {
		case "create":
			body := markerBody(a.Kind, a.Body)
			if _, err := createComment(ctx, adapter, pr, body); err != nil {
				report.addErr("create "+string(a.Kind)+" comment", err)
				report.PartialFailure = true
				if isPermanent(err) {
					return
				}
				continue
			}
			report.CommentsCreated = append(report.CommentsCreated, a.Kind)
		case "edit":
			body := markerBody(a.Kind, a.Body)
			id := a.ExistingID
			if err := retry(ctx, func() error { return adapter.EditComment(ctx, pr.Repo, id, body) }); err != nil {
				report.addErr("edit "+string(a.Kind)+" comment", err)
				report.PartialFailure = true
				if isPermanent(err) {
					return
				}
				continue
			}
			report.CommentsUpdated = append(report.CommentsUpdated, a.Kind)
		case "delete":
			id := a.ExistingID
			if err := retry(ctx, func() error { return adapter.DeleteComment(ctx, pr.Repo, id) }); err != nil {
				report.addErr("delete "+string(a.Kind)+" comment", err)
				report.PartialFailure = true
				if isPermanent(err) {
					return
				}
				continue
			}
			report.CommentsDeleted = append(report.CommentsDeleted, a.Kind)
		}
	}
}

func createComment(ctx context.Context, adapter platform.Adapter, pr *platform.PullRequest, body string) (int64, error) {
	var id int64
	err := retry(ctx, func() error {
		newID, err := adapter.CreateComment(ctx, pr.Repo, pr.Number, body)
		if err != nil {
			return err
		}
		id = newID
		return nil
	})
	return id, err
}

func markerBody(kind platform.CommentKind, body string) string {
	if strings.HasPrefix(body, markerPrefix) {
		return body
	}
	return fmt.Sprintf("%s%s:v%d -->\n%s", markerPrefix, kind, platform.MarkerSchemaVersion, body)
}

func isPermanent(err error) bool {
	var pe *platform.PermanentError
	return errors.As(err, &pe)
}

func colorFor(name string, pol policy.EffectivePolicy) string {
	switch {
	case name == pol.Labels.InvalidTitle:
		return "d73a4a"
	case name == pol.Labels.MissingWorkItem:
		return "fbca04"
	case strings.HasPrefix(name, pol.Size.LabelPrefix):
		return "0e8a16"
	default:
		return "ededed"
	}
}
