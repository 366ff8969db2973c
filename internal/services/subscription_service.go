// Package services – SubscriptionService
//
// The subscription registry is the admin-curated mapping of end-users to a
// partner's default audience. Saves are wholesale: the stored set is
// replaced with exactly what the admin submitted, no merge or diff
// semantics. Partners read the registry (their own entry only) and never
// mutate it.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
)

// SubscriptionService maintains partner subscriber audiences.
type SubscriptionService struct {
	DB *gorm.DB
}

// SetSubscribers replaces partnerID's audience with userIDs. Admin-only.
// UIDs that do not exist, and accounts that are not end-users, are dropped
// rather than rejected, matching how the admin UI builds the set from the
// end-user checkbox list.
func (s *SubscriptionService) SetSubscribers(ctx context.Context, sess identity.Session, partnerID string, userIDs []string) ([]string, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}

	existing, err := repo.FilterExistingUIDs(ctx, s.DB, compactIDs(userIDs))
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(existing))
	for _, uid := range existing {
		acc, err := repo.GetAccount(ctx, s.DB, uid)
		if err != nil {
			return nil, err
		}
		if domain.ParseRole(acc.Role).IsEndUser() {
			kept = append(kept, uid)
		}
	}

	if err := repo.ReplaceSubscribers(ctx, s.DB, partnerID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// GetSubscribers returns a partner's audience. Partners may only read their
// own entry; admins may read any.
func (s *SubscriptionService) GetSubscribers(ctx context.Context, sess identity.Session, partnerID string) ([]string, error) {
	if !sess.IsAdmin() && sess.Business() != partnerID {
		return nil, ErrForbidden
	}
	return repo.ListSubscriberIDs(ctx, s.DB, partnerID)
}
