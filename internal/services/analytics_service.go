// Package services – AnalyticsService
//
// Read-side engagement counting scoped to a business, plus the submission
// totals behind the portal dashboard tiles. Pure reads, tolerant of an
// empty log.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

// EngagementCounts aggregates open/save events for one business.
type EngagementCounts struct {
	Opens int64 `json:"opens"`
	Saves int64 `json:"saves"`
}

// DashboardStats carries the submission totals for the dashboard tiles.
type DashboardStats struct {
	TotalUploads    int64 `json:"totalUploads"`
	ApprovedUploads int64 `json:"approvedUploads"`
}

// AnalyticsService aggregates engagement events and submission totals.
type AnalyticsService struct {
	DB *gorm.DB
}

// CountEvents counts open and save events for businessID. An empty or
// missing log yields zeros, not an error.
func (s *AnalyticsService) CountEvents(ctx context.Context, businessID string) (EngagementCounts, error) {
	opens, err := repo.CountEventsByType(ctx, s.DB, businessID, "open")
	if err != nil {
		return EngagementCounts{}, err
	}
	saves, err := repo.CountEventsByType(ctx, s.DB, businessID, "save")
	if err != nil {
		return EngagementCounts{}, err
	}
	return EngagementCounts{Opens: opens, Saves: saves}, nil
}

// RecordEvent appends one engagement event. Only open and save are known
// event types.
func (s *AnalyticsService) RecordEvent(ctx context.Context, sess identity.Session, businessID, eventType string) (*domain.Event, error) {
	if eventType != "open" && eventType != "save" {
		return nil, ErrInvalidEventType
	}
	return repo.CreateEvent(ctx, s.DB, businessID, sess.UID, eventType)
}

// Stats returns the submission totals visible to the session: the whole
// table for admins, the caller's business otherwise.
func (s *AnalyticsService) Stats(ctx context.Context, sess identity.Session) (DashboardStats, error) {
	businessID := sess.Business()
	if sess.IsAdmin() {
		businessID = ""
	}
	total, approved, err := repo.SubmissionStats(ctx, s.DB, businessID)
	if err != nil {
		return DashboardStats{}, err
	}
	return DashboardStats{TotalUploads: total, ApprovedUploads: approved}, nil
}
