// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists the upload tracker projection.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// SaveTracker upserts the tracker row for t.ModelKey, replacing every column.
// A full overwrite is correct here: the tracker is a projection rebuilt from
// its submission, never an accumulation.
func SaveTracker(ctx context.Context, db *gorm.DB, t *domain.UploadTracker) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_key"}},
			UpdateAll: true,
		}).
		Create(t).Error
}

// GetTracker fetches the tracker row for modelKey, or ErrNotFound.
func GetTracker(ctx context.Context, db *gorm.DB, modelKey string) (*domain.UploadTracker, error) {
	var t domain.UploadTracker
	if err := db.WithContext(ctx).Where("model_key = ?", modelKey).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrackers returns every tracker row ordered by most recent update.
func ListTrackers(ctx context.Context, db *gorm.DB) ([]domain.UploadTracker, error) {
	var out []domain.UploadTracker
	err := db.WithContext(ctx).Order("updated_at desc").Find(&out).Error
	return out, err
}
