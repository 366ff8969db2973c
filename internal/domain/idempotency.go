// Package domain defines the core persistence models for the application.
// This file declares the upload replay guard used to make submission
// creation safe to retry.
package domain

import "time"

// Idempotency records the outcome of a previously processed upload request,
// keyed by (uploader_uid, business_id, key). When a partner retries an
// interrupted upload with the same Idempotency-Key, the originally created
// submission is returned instead of creating (and dispatching) a duplicate.
type Idempotency struct {
	ID           string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UploaderUID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_uploader_business_key,priority:1"`
	BusinessID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_uploader_business_key,priority:2"`
	Key          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_uploader_business_key,priority:3"`
	SubmissionID string    `gorm:"type:TEXT NOT NULL"`
	Status       int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt    time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
