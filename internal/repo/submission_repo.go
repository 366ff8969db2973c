// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Submission
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. State-machine rules (who may approve,
// which transitions are legal) live in the service layer.
//
// Error semantics:
//   - When a submission is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateSubmission inserts a fully populated Submission row. The caller is
// responsible for generating the ID and derived fields (model key, storage
// path) before insertion.
func CreateSubmission(ctx context.Context, db *gorm.DB, sub *domain.Submission) error {
	return db.WithContext(ctx).Create(sub).Error
}

// GetSubmission fetches a single submission by ID, or ErrNotFound.
func GetSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.Submission, error) {
	var sub domain.Submission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns every submission ordered by creation time
// descending (most recent first). Used by the admin approval queue.
func ListSubmissions(ctx context.Context, db *gorm.DB) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// ListSubmissionsByBusiness returns the submissions owned by businessID,
// ordered by creation time descending.
func ListSubmissionsByBusiness(ctx context.Context, db *gorm.DB, businessID string) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateSubmissionFields applies a partial column update to a submission.
// If no rows are affected (submission missing), it returns ErrNotFound.
//
// The fields map uses column names. Callers must include every column whose
// value changes; untouched columns keep their stored values.
func UpdateSubmissionFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SubmissionStats returns the total and approved submission counts for a
// business, used by the partner dashboard tiles. An empty businessID scopes
// the counts to the whole table (admin view).
func SubmissionStats(ctx context.Context, db *gorm.DB, businessID string) (total, approved int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Submission{})
	if businessID != "" {
		q = q.Where("business_id = ?", businessID)
	}
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	q = db.WithContext(ctx).Model(&domain.Submission{}).Where("status = ?", domain.StatusApproved)
	if businessID != "" {
		q = q.Where("business_id = ?", businessID)
	}
	err = q.Count(&approved).Error
	return total, approved, err
}
