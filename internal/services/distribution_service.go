// Package services – DistributionService
//
// This file implements the distribution engine: the fan-out of a published
// model to a target set of user accounts, with per-user idempotent
// assignment and partial-failure accounting. The fan-out is deliberately not
// one atomic batch: a failure partway leaves the completed assignments in
// place and reports how far it got, and because already-assigned pairs are
// skipped, retrying with the same target set safely completes the remainder.
//
// ApproveAndPush is the approval/push orchestration built on top: state
// transition, catalog publish, target resolution, fan-out, and persisting
// the outcome on the submission and its tracker projection.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

// PushResult reports the outcome of a push or re-dispatch.
type PushResult struct {
	ModelKey string `json:"modelKey"`
	// Assigned is the number of newly created assignments; users who
	// already held the model are not counted.
	Assigned int `json:"assigned"`
	// AssignmentError is non-empty when the fan-out stopped early; the
	// completed assignments stand and the same target set can be retried.
	AssignmentError string `json:"assignmentError,omitempty"`
	// Summary is the operator-facing outcome line.
	Summary string `json:"summary"`
}

// Partial reports whether the push made incomplete progress.
func (r *PushResult) Partial() bool { return r.AssignmentError != "" }

// DistributionService fans published models out to user accounts.
type DistributionService struct {
	DB          *gorm.DB
	Submissions *SubmissionService
	Catalog     *CatalogService

	// createAssignment is a seam for tests that need to fail the fan-out
	// partway through. Defaults to repo.CreateAssignment.
	CreateAssignmentFn func(ctx context.Context, db *gorm.DB, userID, modelKey string) (*domain.Assignment, error)
}

func (s *DistributionService) create(ctx context.Context, userID, modelKey string) (*domain.Assignment, error) {
	if s.CreateAssignmentFn != nil {
		return s.CreateAssignmentFn(ctx, s.DB, userID, modelKey)
	}
	return repo.CreateAssignment(ctx, s.DB, userID, modelKey)
}

// Dispatch assigns modelKey to each target account, skipping pairs that are
// already assigned, and returns the count of newly created assignments.
// Deduplication of targetIDs is the caller's responsibility.
//
// On an unexpected store failure the iteration stops: completed assignments
// are kept, the count so far is returned together with a descriptive error,
// and a retry with the same target set picks up where this call stopped.
// A cancellation of the caller's context does not propagate into a fan-out
// already in flight; it runs to completion over its resolved target set.
func (s *DistributionService) Dispatch(ctx context.Context, modelKey string, targetIDs []string) (int, error) {
	ctx = context.WithoutCancel(ctx)

	assigned := 0
	for _, uid := range targetIDs {
		_, err := s.create(ctx, uid, modelKey)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				continue
			}
			return assigned, fmt.Errorf("assigning %q to user %q: %w", modelKey, uid, err)
		}
		assigned++
	}
	return assigned, nil
}

// ResolveTargets evaluates the target-set policy for a submission:
//
//   - specific_users: the submission's explicit UID list, filtered to
//     accounts that currently exist.
//   - all_users: every account that is neither admin nor partner. When that
//     set is empty the fall-back is literally every known account; observed
//     behavior of the portal, kept pending a product decision.
func (s *DistributionService) ResolveTargets(ctx context.Context, sub *domain.Submission) ([]string, error) {
	if sub.TargetMode == domain.TargetSpecificUsers {
		return repo.FilterExistingUIDs(ctx, s.DB, sub.TargetIDs())
	}

	accounts, err := repo.ListAccounts(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	endUsers := make([]string, 0, len(accounts))
	everyone := make([]string, 0, len(accounts))
	for _, a := range accounts {
		everyone = append(everyone, a.UID)
		if domain.ParseRole(a.Role).IsEndUser() {
			endUsers = append(endUsers, a.UID)
		}
	}
	if len(endUsers) == 0 {
		return everyone, nil
	}
	return endUsers, nil
}

// ApproveAndPush runs the full approval/push orchestration for a submission:
//
//  1. A rejected submission is refused outright, with no state change.
//  2. If not already approved, the state machine transitions to approved.
//  3. The catalog entry is created/merged (deriving the model key first if
//     the submission lacks one).
//  4. The target set is resolved and the distribution engine fans out.
//  5. The push outcome (including any partial-failure error) is persisted on
//     the submission and mirrored onto the upload tracker.
//
// A partial fan-out does not roll back the approval or the catalog publish;
// the result carries the assignment error so the operator can retry.
func (s *DistributionService) ApproveAndPush(ctx context.Context, sess identity.Session, submissionID string, silent bool) (*PushResult, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}

	sub, err := repo.GetSubmission(ctx, s.DB, submissionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if sub.Status == domain.StatusRejected {
		return nil, ErrRejectedTerminal
	}

	if sub.Status != domain.StatusApproved {
		if sub, err = s.Submissions.Approve(ctx, sess, submissionID); err != nil {
			return nil, err
		}
	}

	key, err := s.Catalog.Publish(ctx, sub)
	if err != nil {
		return nil, err
	}

	targets, err := s.ResolveTargets(ctx, sub)
	if err != nil {
		return nil, err
	}

	assigned, dispatchErr := s.Dispatch(ctx, key, targets)

	now := time.Now().UTC().UnixMilli()
	fields := map[string]any{
		"status":        domain.StatusApproved,
		"pushed_to_app": true,
		"pushed_at":     now,
		"pushed_count":  assigned,
		"model_key":     key,
		"decision_by":   sess.UID,
	}
	var assignmentError string
	if dispatchErr != nil {
		assignmentError = dispatchErr.Error()
		fields["assignment_error"] = assignmentError
	} else {
		fields["assignment_error"] = nil
	}
	if err := repo.UpdateSubmissionFields(ctx, s.DB, submissionID, fields); err != nil {
		return nil, err
	}

	sub, err = repo.GetSubmission(ctx, s.DB, submissionID)
	if err != nil {
		return nil, err
	}
	if err := ProjectTracker(ctx, s.DB, sub); err != nil {
		return nil, err
	}

	res := &PushResult{
		ModelKey:        key,
		Assigned:        assigned,
		AssignmentError: assignmentError,
	}
	res.Summary = summarize(res)
	if !silent {
		evt := log.Info()
		if res.Partial() {
			evt = log.Warn().Str("assignment_error", assignmentError)
		}
		evt.Str("submission_id", submissionID).
			Str("model_key", key).
			Int("assigned", assigned).
			Msg("model pushed to app")
	}
	return res, nil
}

// Redispatch fans an existing catalog entry out to the given users without
// touching submission state. Admin-only; targets are filtered to accounts
// that exist.
func (s *DistributionService) Redispatch(ctx context.Context, sess identity.Session, modelKey string, targetIDs []string) (*PushResult, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.redispatch(ctx, modelKey, compactIDs(targetIDs), true)
}

// RedispatchToSubscribers fans an existing catalog entry out to the caller's
// subscriber audience. Partners use this to push to their own subscribers;
// admins may run it for any partner via the registry.
func (s *DistributionService) RedispatchToSubscribers(ctx context.Context, sess identity.Session, modelKey string) (*PushResult, error) {
	if sess.Role != domain.RolePartner && !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	subscribers, err := repo.ListSubscriberIDs(ctx, s.DB, sess.Business())
	if err != nil {
		return nil, err
	}
	// The registry is built by an admin over end-user accounts, so no
	// further role filtering is needed here.
	return s.redispatch(ctx, modelKey, subscribers, false)
}

func (s *DistributionService) redispatch(ctx context.Context, modelKey string, targetIDs []string, filter bool) (*PushResult, error) {
	if _, err := repo.GetModel(ctx, s.DB, modelKey); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	if filter {
		var err error
		if targetIDs, err = repo.FilterExistingUIDs(ctx, s.DB, targetIDs); err != nil {
			return nil, err
		}
	}

	assigned, dispatchErr := s.Dispatch(ctx, modelKey, targetIDs)
	res := &PushResult{ModelKey: modelKey, Assigned: assigned}
	if dispatchErr != nil {
		res.AssignmentError = dispatchErr.Error()
	}
	res.Summary = summarize(res)
	return res, nil
}

// summaryPrinter formats operator-facing counts with English digit grouping
// so large fan-outs render as "12,345" in the admin UI.
var summaryPrinter = message.NewPrinter(language.English)

func summarize(r *PushResult) string {
	if r.Partial() {
		return summaryPrinter.Sprintf("Assigned to %d users before a failure; retry to finish: %s", r.Assigned, r.AssignmentError)
	}
	return summaryPrinter.Sprintf("Model pushed to app data. Assigned to %d users.", r.Assigned)
}
