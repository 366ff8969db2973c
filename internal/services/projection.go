// Package services – upload tracker projection
//
// The upload tracker is a model-key-keyed read model consumed by catalog and
// administration views. It is derived from the owning submission and rebuilt
// in full after every mutating submission operation, so the two can never
// drift apart the way hand-maintained shadow records do.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

// ProjectTracker rebuilds and upserts the tracker row for sub. Submissions
// without a model key (legacy rows predating key derivation at creation)
// have nothing to project and are skipped.
func ProjectTracker(ctx context.Context, db *gorm.DB, sub *domain.Submission) error {
	if sub.ModelKey == "" {
		return nil
	}
	t := &domain.UploadTracker{
		ModelKey:      sub.ModelKey,
		SubmissionID:  sub.ID,
		BusinessID:    sub.BusinessID,
		FileName:      sub.FileName,
		Status:        sub.Status,
		PushedToApp:   sub.PushedToApp,
		PushedAt:      sub.PushedAt,
		PushedCount:   sub.PushedCount,
		AssignmentErr: sub.AssignmentErr,
		UpdatedAt:     time.Now().UTC(),
	}
	return repo.SaveTracker(ctx, db, t)
}
