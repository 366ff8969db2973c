// Package services – SubmissionService
//
// This file implements the SubmissionService, which owns the submission
// lifecycle: creating a submission from a validated upload and driving the
// status state machine (pending -> approved | rejected). Decision
// transitions are admin-only and rejected is terminal: once a submission is
// rejected no further transition (and therefore no push) is possible. The
// upload tracker projection is rebuilt after every mutation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/modelkey"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/storage"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/sysutil"
)

// DefaultQuestion is the prompt shown to end-users when a submission does
// not carry one.
const DefaultQuestion = "Would you like this product?"

// UploadInput is the validated payload of one upload request.
type UploadInput struct {
	FileName       string
	Data           []byte
	DisplayName    string
	Question       string
	BusinessName   string
	TargetMode     domain.TargetMode
	TargetUserIDs  []string
	IdempotencyKey string
}

// UploadResult reports the outcome of CreateFromUpload.
type UploadResult struct {
	Submission *domain.Submission
	// Replayed is true when the Idempotency-Key matched a previous upload
	// and the original submission was returned instead of creating a new
	// one.
	Replayed bool
}

// SubmissionService manages submission creation and status transitions.
type SubmissionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Blobs is the storage collaborator uploads go through.
	Blobs storage.BlobStore
	// MaxFileBytes caps uploads; zero means no cap.
	MaxFileBytes int64
	// IdempotencyTTL is how long an upload Idempotency-Key stays valid.
	IdempotencyTTL time.Duration
	// OnProgress, when set, receives upload transfer snapshots.
	OnProgress func(storage.Progress)
}

// CreateFromUpload validates in, uploads the blob, and records the
// submission. Validation failures are returned before any mutation; a blob
// transport failure leaves no record; a record-write failure after a
// successful upload is reported as ErrUploadedNotRecorded so an operator
// knows the blob may need manual reconciliation.
//
// Partners with a subscriber audience who upload in all_users mode have the
// submission narrowed to their subscriber set at creation; distribution
// itself stays unchanged.
func (s *SubmissionService) CreateFromUpload(ctx context.Context, sess identity.Session, in UploadInput) (*UploadResult, error) {
	if len(in.Data) == 0 {
		return nil, ErrMissingFile
	}
	if !strings.HasSuffix(strings.ToLower(in.FileName), ".glb") {
		return nil, ErrWrongExtension
	}
	if s.MaxFileBytes > 0 && int64(len(in.Data)) > s.MaxFileBytes {
		return nil, ErrFileTooLarge
	}
	if !in.TargetMode.Valid() {
		return nil, ErrInvalidTargetMode
	}

	businessID := sess.Business()
	businessName := strings.TrimSpace(sysutil.FirstNonEmpty(in.BusinessName, sess.BusinessName))
	if businessName == "" {
		return nil, ErrMissingBusinessName
	}

	targetMode := in.TargetMode
	targetIDs := compactIDs(in.TargetUserIDs)
	if targetMode == domain.TargetSpecificUsers && len(targetIDs) == 0 {
		return nil, ErrNoTargets
	}

	// Idempotent replay: an interrupted upload retried with the same key
	// returns the original submission.
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, sess.UID, businessID, key, time.Now().UTC())
		if err == nil {
			sub, err := repo.GetSubmission(ctx, s.DB, rec.SubmissionID)
			if err == nil {
				return &UploadResult{Submission: sub, Replayed: true}, nil
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
	}

	// A partner's default audience is their subscriber list when one has
	// been curated; all_users is only a true broadcast for admins.
	if sess.Role == domain.RolePartner && targetMode == domain.TargetAllUsers {
		subs, err := repo.ListSubscriberIDs(ctx, s.DB, businessID)
		if err != nil {
			return nil, err
		}
		if len(subs) > 0 {
			targetMode = domain.TargetSpecificUsers
			targetIDs = subs
		}
	}

	submissionID := uuid.NewString()
	createdAt := time.Now().UTC().UnixMilli()
	baseName := modelkey.StripExtension(in.FileName)
	key := modelkey.Derive(in.FileName, createdAt)
	storagePath := fmt.Sprintf("partner_uploads/%s/%s/%s", businessID, submissionID, in.FileName)

	// Upload precedes record creation, so a transport failure is a clean
	// no-op as far as the store is concerned.
	up := s.Blobs.BeginUpload(ctx, storagePath, in.Data, "model/gltf-binary")
	storedPath, err := storage.Await(ctx, up, s.OnProgress)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = baseName
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		question = DefaultQuestion
	}

	sub := &domain.Submission{
		ID:           submissionID,
		ModelKey:     key,
		BusinessID:   businessID,
		BusinessName: businessName,
		UploaderUID:  sess.UID,
		UploaderRole: string(sess.Role),
		FileName:     in.FileName,
		DisplayName:  displayName,
		Question:     question,
		PicPath:      modelkey.Sanitize(baseName),
		StoragePath:  storedPath,
		TargetMode:   targetMode,
		Status:       domain.StatusPending,
		CreatedAt:    createdAt,
	}
	sub.SetTargetIDs(targetIDs)

	if err := repo.CreateSubmission(ctx, s.DB, sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadedNotRecorded, err)
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		ttl := s.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		// Best effort: losing the race to a concurrent retry is fine, the
		// other writer recorded its own submission.
		_, _ = repo.CreateIdempotency(ctx, s.DB, sess.UID, businessID, key, submissionID, 201, ttl)
	}

	if err := ProjectTracker(ctx, s.DB, sub); err != nil {
		return nil, err
	}
	return &UploadResult{Submission: sub}, nil
}

// Approve transitions a submission to approved. Only admins may decide;
// rejected submissions cannot be revived; re-approving an approved
// submission is permitted (and refreshes the decision record), which is how
// missing catalog entries get self-healed.
func (s *SubmissionService) Approve(ctx context.Context, sess identity.Session, submissionID string) (*domain.Submission, error) {
	return s.decide(ctx, sess, submissionID, domain.StatusApproved)
}

// Reject transitions a submission to rejected, its terminal state.
func (s *SubmissionService) Reject(ctx context.Context, sess identity.Session, submissionID string) (*domain.Submission, error) {
	return s.decide(ctx, sess, submissionID, domain.StatusRejected)
}

func (s *SubmissionService) decide(ctx context.Context, sess identity.Session, submissionID string, next domain.Status) (*domain.Submission, error) {
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

	now := time.Now().UTC().UnixMilli()
	fields := map[string]any{
		"status":      next,
		"decision_by": sess.UID,
	}
	switch next {
	case domain.StatusApproved:
		fields["approved_at"] = now
		fields["rejected_at"] = nil
	case domain.StatusRejected:
		fields["rejected_at"] = now
		fields["approved_at"] = nil
	default:
		return nil, fmt.Errorf("illegal transition to %q", next)
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
	return sub, nil
}

// ListMine returns the submissions visible to the session: everything for
// admins, the caller's business for everyone else. Newest first.
func (s *SubmissionService) ListMine(ctx context.Context, sess identity.Session) ([]domain.Submission, error) {
	if sess.IsAdmin() {
		return repo.ListSubmissions(ctx, s.DB)
	}
	return repo.ListSubmissionsByBusiness(ctx, s.DB, sess.Business())
}

// Queue returns the full admin review queue, newest first.
func (s *SubmissionService) Queue(ctx context.Context, sess identity.Session) ([]domain.Submission, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	return repo.ListSubmissions(ctx, s.DB)
}

// compactIDs trims and drops empty entries while preserving order.
func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
