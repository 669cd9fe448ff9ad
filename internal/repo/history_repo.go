package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// AddDiaryHistory appends one pre-overwrite snapshot. History rows are
// append-only; there is no update or delete path.
func AddDiaryHistory(ctx context.Context, db *gorm.DB, h *domain.DiaryHistory) error {
	return db.WithContext(ctx).Create(h).Error
}

// ListDiaryHistory returns the snapshots for one diary, newest first.
func ListDiaryHistory(ctx context.Context, db *gorm.DB, diaryID uint, limit int) ([]domain.DiaryHistory, error) {
	q := db.WithContext(ctx).
		Where("diary_id = ?", diaryID).
		Order("recorded_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.DiaryHistory
	err := q.Find(&out).Error
	return out, err
}
