// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the partner
// subscription registry.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// ReplaceSubscribers overwrites partnerID's audience with exactly userIDs.
// The swap runs in one transaction: existing rows are deleted and the new
// set inserted, so readers never observe a partial mix of old and new.
func ReplaceSubscribers(ctx context.Context, db *gorm.DB, partnerID string, userIDs []string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("partner_id = ?", partnerID).
			Delete(&domain.Subscription{}).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}
		now := time.Now().UTC()
		rows := make([]domain.Subscription, 0, len(userIDs))
		seen := make(map[string]struct{}, len(userIDs))
		for _, uid := range userIDs {
			if _, dup := seen[uid]; dup {
				continue
			}
			seen[uid] = struct{}{}
			rows = append(rows, domain.Subscription{
				ID:        uuid.NewString(),
				PartnerID: partnerID,
				UserID:    uid,
				CreatedAt: now,
			})
		}
		return tx.Create(&rows).Error
	})
}

// ListSubscriberIDs returns the user IDs subscribed to partnerID, in
// insertion order. An unknown partner yields an empty slice.
func ListSubscriberIDs(ctx context.Context, db *gorm.DB, partnerID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("partner_id = ?", partnerID).
		Order("created_at asc").
		Pluck("user_id", &ids).Error
	return ids, err
}
