package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// GetUserByUpstreamID fetches a user row by upstream user id, or ErrNotFound.
func GetUserByUpstreamID(ctx context.Context, db *gorm.DB, niderijiUserID int64) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "nideriji_userid = ?", niderijiUserID).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user row by local id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser creates or overwrites the cached profile keyed by upstream user
// id. Profile fields always take the latest upstream payload; the local id
// and created_at of an existing row are preserved.
func UpsertUser(ctx context.Context, db *gorm.DB, u *domain.User) (*domain.User, error) {
	var existing domain.User
	err := db.WithContext(ctx).First(&existing, "nideriji_userid = ?", u.NiderijiUserID).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"name":            u.Name,
			"description":     u.Description,
			"role":            u.Role,
			"avatar":          u.Avatar,
			"diary_count":     u.DiaryCount,
			"word_count":      u.WordCount,
			"image_count":     u.ImageCount,
			"last_login_time": u.LastLoginTime,
		}
		if err := db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.WithContext(ctx).Create(u).Error; err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, err
	}
}

// ListUsers returns all cached user profiles ordered by local id.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}
