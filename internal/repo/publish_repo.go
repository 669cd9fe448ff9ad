// Repository functions for the publish workspace: drafts, runs, per-account
// run items, and the Idempotency-Key replay records for the publish endpoint.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// UpsertPublishDraft creates or replaces the draft for one date.
func UpsertPublishDraft(ctx context.Context, db *gorm.DB, date, content string) (*domain.PublishDraft, error) {
	var d domain.PublishDraft
	err := db.WithContext(ctx).First(&d, "date = ?", date).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		d = domain.PublishDraft{Date: date, Content: content}
		if err := db.WithContext(ctx).Create(&d).Error; err != nil {
			return nil, err
		}
		return &d, nil
	case err != nil:
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&d).Update("content", content).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetPublishDraft fetches the draft for one date, or ErrNotFound.
func GetPublishDraft(ctx context.Context, db *gorm.DB, date string) (*domain.PublishDraft, error) {
	var d domain.PublishDraft
	if err := db.WithContext(ctx).First(&d, "date = ?", date).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// CreatePublishRun inserts the whole-run audit row.
func CreatePublishRun(ctx context.Context, db *gorm.DB, r *domain.PublishRun) error {
	return db.WithContext(ctx).Create(r).Error
}

// AddPublishRunItem appends one per-account outcome to a run.
func AddPublishRunItem(ctx context.Context, db *gorm.DB, item *domain.PublishRunItem) error {
	return db.WithContext(ctx).Create(item).Error
}

// GetPublishRun fetches one run with its items.
func GetPublishRun(ctx context.Context, db *gorm.DB, id uint) (*domain.PublishRun, []domain.PublishRunItem, error) {
	var r domain.PublishRun
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, nil, err
	}
	var items []domain.PublishRunItem
	if err := db.WithContext(ctx).Where("run_id = ?", r.ID).Order("id asc").Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &r, items, nil
}

// ListPublishRuns returns publish history, newest first.
func ListPublishRuns(ctx context.Context, db *gorm.DB, limit int) ([]domain.PublishRun, error) {
	q := db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.PublishRun
	err := q.Find(&out).Error
	return out, err
}

// GetPublishIdempotency looks up an unexpired replay record for key.
// Returns nil when the key is unknown or expired.
func GetPublishIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.PublishIdempotency, error) {
	var rec domain.PublishIdempotency
	err := db.WithContext(ctx).
		First(&rec, "key = ? AND expires_at > ?", key, now).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutPublishIdempotency stores the run produced under an Idempotency-Key.
func PutPublishIdempotency(ctx context.Context, db *gorm.DB, key string, runID uint, now time.Time, ttl time.Duration) error {
	rec := domain.PublishIdempotency{
		Key:       key,
		RunID:     runID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return db.WithContext(ctx).Create(&rec).Error
}
