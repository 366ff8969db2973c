// Package services – CatalogService
//
// This file implements the catalog projector: merging an approved submission
// into the durable published-model catalog. Display fields come from the
// submission when present, falling back to the existing entry; engagement
// counters always come from the existing entry, because they accumulate in
// the consumer app and must survive re-publishes. The merge is guarded by an
// optimistic version so two concurrent publishes of the same key cannot lose
// each other's counters.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/modelkey"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

// publishRetries bounds the re-read loop under version conflicts.
const publishRetries = 3

// CatalogService merges approved submissions into catalog entries.
type CatalogService struct {
	DB *gorm.DB
}

// Publish creates or merges the catalog entry for sub and returns its model
// key. Submissions missing a key get one derived and persisted back first
// (idempotent backfill for legacy rows).
func (s *CatalogService) Publish(ctx context.Context, sub *domain.Submission) (string, error) {
	key := sub.ModelKey
	if key == "" {
		fileName := sub.FileName
		if fileName == "" {
			fileName = "model_" + sub.ID
		}
		key = modelkey.Derive(fileName, sub.CreatedAt)
		if err := repo.UpdateSubmissionFields(ctx, s.DB, sub.ID, map[string]any{"model_key": key}); err != nil {
			return "", err
		}
		sub.ModelKey = key
	}

	var lastErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		existing, err := repo.GetModel(ctx, s.DB, key)
		switch {
		case err == nil:
			merged := mergeModel(sub, existing)
			if err := repo.SaveModelVersioned(ctx, s.DB, merged, existing.Version); err != nil {
				if errors.Is(err, repo.ErrVersionConflict) {
					lastErr = err
					continue
				}
				return "", err
			}
			return key, nil

		case errors.Is(err, repo.ErrNotFound):
			fresh := mergeModel(sub, nil)
			if err := repo.CreateModel(ctx, s.DB, fresh); err != nil {
				if errors.Is(err, repo.ErrVersionConflict) {
					// Lost the first-publish race; re-read and merge.
					lastErr = err
					continue
				}
				return "", err
			}
			return key, nil

		default:
			return "", err
		}
	}
	return "", lastErr
}

// Get returns the catalog entry for modelKey.
func (s *CatalogService) Get(ctx context.Context, key string) (*domain.Model, error) {
	m, err := repo.GetModel(ctx, s.DB, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrModelNotFound
	}
	return m, err
}

// List returns the whole catalog.
func (s *CatalogService) List(ctx context.Context) ([]domain.Model, error) {
	return repo.ListModels(ctx, s.DB)
}

// mergeModel builds the catalog entry for sub on top of existing (nil for a
// first publish). Counters never come from the submission.
func mergeModel(sub *domain.Submission, existing *domain.Model) *domain.Model {
	m := &domain.Model{
		ModelKey:    sub.ModelKey,
		StoragePath: sub.StoragePath,
		Data: domain.ModelCounters{
			Rating: "0.0",
		},
	}

	m.Name = sub.DisplayName
	if m.Name == "" {
		if sub.FileName != "" {
			m.Name = modelkey.StripExtension(sub.FileName)
		} else {
			m.Name = sub.ModelKey
		}
	}

	m.PicPath = sub.PicPath
	m.Question = sub.Question
	if existing != nil {
		if m.PicPath == "" {
			m.PicPath = existing.PicPath
		}
		if m.Question == "" {
			m.Question = existing.Question
		}
		m.Data = existing.Data
		if m.Data.Rating == "" {
			m.Data.Rating = "0.0"
		}
	}
	if m.PicPath == "" {
		m.PicPath = sub.ModelKey
	}
	if m.Question == "" {
		m.Question = DefaultQuestion
	}
	return m
}
