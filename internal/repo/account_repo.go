// Repository functions for the Account model. All functions are
// context-aware and accept a *gorm.DB handle, making them safe for use
// within transactions. They follow the thin-repository approach: no
// business logic, only CRUD persistence and query composition.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// CreateAccount inserts a new account row. The upstream user id is unique;
// a duplicate insert surfaces the constraint error unchanged so callers can
// map it to a conflict response.
func CreateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	return db.WithContext(ctx).Create(a).Error
}

// GetAccount fetches an account by local id, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id uint) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByUpstreamID fetches an account by its upstream numeric user id.
func GetAccountByUpstreamID(ctx context.Context, db *gorm.DB, niderijiUserID int64) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).First(&a, "nideriji_userid = ?", niderijiUserID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns all accounts, optionally restricted to active ones,
// ordered by local id.
func ListAccounts(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Account, error) {
	q := db.WithContext(ctx).Order("id asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []domain.Account
	err := q.Find(&out).Error
	return out, err
}

// UpdateAccountToken persists a refreshed auth token.
func UpdateAccountToken(ctx context.Context, db *gorm.DB, id uint, token string) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("auth_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccountCredentials stores (or clears) the login email/password used
// for automatic re-login.
func UpdateAccountCredentials(ctx context.Context, db *gorm.DB, id uint, email, password string) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{"email": email, "login_password": password})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAccountActive flips the active flag.
func SetAccountActive(ctx context.Context, db *gorm.DB, id uint, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
