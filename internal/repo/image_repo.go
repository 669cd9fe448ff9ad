package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// GetCachedImage returns the cached blob for (upstream user, image id), or
// nil when the image was never fetched.
func GetCachedImage(ctx context.Context, db *gorm.DB, niderijiUserID, imageID int64) (*domain.CachedImage, error) {
	var img domain.CachedImage
	err := db.WithContext(ctx).
		First(&img, "nideriji_userid = ? AND image_id = ?", niderijiUserID, imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// UpsertCachedImage creates or replaces the cache row keyed by
// (nideriji_userid, image_id).
func UpsertCachedImage(ctx context.Context, db *gorm.DB, img *domain.CachedImage) error {
	var existing domain.CachedImage
	err := db.WithContext(ctx).
		First(&existing, "nideriji_userid = ? AND image_id = ?", img.NiderijiUserID, img.ImageID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.WithContext(ctx).Create(img).Error
	case err != nil:
		return err
	}
	img.ID = existing.ID
	img.CreatedAt = existing.CreatedAt
	return db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"content_type":  img.ContentType,
		"data":          img.Data,
		"size_bytes":    img.SizeBytes,
		"sha256":        img.SHA256,
		"fetch_status":  img.FetchStatus,
		"error_message": img.ErrorMessage,
		"fetched_at":    img.FetchedAt,
	}).Error
}
