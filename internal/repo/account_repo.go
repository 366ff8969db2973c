// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read-only access to the account
// reference table owned by the identity collaborator.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/domain"
)

// GetAccount fetches an account profile by UID, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, uid string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("uid = ?", uid).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns every known account.
func ListAccounts(ctx context.Context, db *gorm.DB) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// FilterExistingUIDs returns the subset of uids that exist in the account
// table, preserving the input order. Unknown UIDs are silently dropped; the
// distribution policy treats them as invalid targets, not errors.
func FilterExistingUIDs(ctx context.Context, db *gorm.DB, uids []string) ([]string, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	var found []string
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("uid IN ?", uids).
		Pluck("uid", &found).Error
	if err != nil {
		return nil, err
	}
	exists := make(map[string]struct{}, len(found))
	for _, uid := range found {
		exists[uid] = struct{}{}
	}
	out := make([]string, 0, len(found))
	for _, uid := range uids {
		if _, ok := exists[uid]; ok {
			out = append(out, uid)
		}
	}
	return out, nil
}
