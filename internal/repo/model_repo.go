// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the catalog
// Model, including the optimistic-concurrency write used by the publish
// merge.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// ErrVersionConflict indicates that a catalog entry changed between the read
// and the conditional write of a publish merge. The caller should re-read and
// retry the merge.
var ErrVersionConflict = errors.New("catalog version conflict")

// GetModel fetches a catalog entry by model key, or ErrNotFound.
func GetModel(ctx context.Context, db *gorm.DB, modelKey string) (*domain.Model, error) {
	var m domain.Model
	if err := db.WithContext(ctx).Where("model_key = ?", modelKey).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateModel inserts a brand-new catalog entry at version 0. A concurrent
// first publish of the same key surfaces as a duplicate-key error, which is
// mapped to ErrVersionConflict so the caller re-reads and merges.
func CreateModel(ctx context.Context, db *gorm.DB, m *domain.Model) error {
	m.Version = 0
	err := db.WithContext(ctx).Create(m).Error
	if err != nil && isUniqueViolation(err) {
		return ErrVersionConflict
	}
	return err
}

// SaveModelVersioned overwrites an existing catalog entry, guarded by the
// version the caller read. The row is only written when the stored version
// still matches; otherwise ErrVersionConflict is returned and no change is
// made. On success the stored version is advanced by one.
func SaveModelVersioned(ctx context.Context, db *gorm.DB, m *domain.Model, readVersion int64) error {
	m.Version = readVersion + 1
	res := db.WithContext(ctx).
		Model(&domain.Model{}).
		Where("model_key = ? AND version = ?", m.ModelKey, readVersion).
		Select("*").Omit("model_key").
		Updates(m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ListModels returns every catalog entry ordered by key. Used by the
// administration catalog view.
func ListModels(ctx context.Context, db *gorm.DB) ([]domain.Model, error) {
	var out []domain.Model
	err := db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "model_key"}}).
		Find(&out).Error
	return out, err
}
