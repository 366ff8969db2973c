// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file records and aggregates engagement events.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// CreateEvent appends one engagement event to the log.
func CreateEvent(ctx context.Context, db *gorm.DB, businessID, userID, eventType string) (*domain.Event, error) {
	e := &domain.Event{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		UserID:     userID,
		EventType:  eventType,
		CreatedAt:  time.Now().UTC().UnixMilli(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// CountEventsByType returns how many events of eventType were recorded for
// businessID. An empty or missing log counts as zero.
func CountEventsByType(ctx context.Context, db *gorm.DB, businessID, eventType string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Event{}).
		Where("business_id = ? AND event_type = ?", businessID, eventType).
		Count(&n).Error
	return n, err
}
