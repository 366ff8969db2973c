// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the assignment primitives used by the
// distribution engine.
//
// The central primitive is CreateAssignment: an atomic conditional create at
// (user, model) granularity. Distribution as a whole is deliberately not a
// transaction, so two dispatches racing on overlapping target sets can both
// observe a pair as absent; the unique index arbitrates, and the loser's
// duplicate error is reported as ErrDuplicate so callers treat it as an
// idempotent no-op.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// ErrDuplicate indicates that a row already exists for a unique key tuple.
var ErrDuplicate = errors.New("duplicate")

// CreateAssignment inserts the assignment record for (userID, modelKey) with
// the default user-owned values. If the pair is already assigned it returns
// ErrDuplicate and writes nothing, leaving any user-modified fields intact.
func CreateAssignment(ctx context.Context, db *gorm.DB, userID, modelKey string) (*domain.Assignment, error) {
	a := &domain.Assignment{
		ID:        uuid.NewString(),
		UserID:    userID,
		ModelKey:  modelKey,
		Saved:     false,
		Rating:    "0.0",
		Answer:    domain.AnswerPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return a, nil
}

// GetAssignment fetches the assignment for (userID, modelKey), or ErrNotFound.
func GetAssignment(ctx context.Context, db *gorm.DB, userID, modelKey string) (*domain.Assignment, error) {
	var a domain.Assignment
	err := db.WithContext(ctx).
		Where("user_id = ? AND model_key = ?", userID, modelKey).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssignmentsForModel returns every assignment of a model, ordered by
// creation time.
func ListAssignmentsForModel(ctx context.Context, db *gorm.DB, modelKey string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := db.WithContext(ctx).
		Where("model_key = ?", modelKey).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountAssignmentsForModel returns how many users currently hold a model.
func CountAssignmentsForModel(ctx context.Context, db *gorm.DB, modelKey string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("model_key = ?", modelKey).
		Count(&n).Error
	return n, err
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations,
// so the message is inspected in addition to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
