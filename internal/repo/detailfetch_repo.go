package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// GetDetailFetchState returns the bookkeeping row for one diary, or nil
// when no detail fetch was ever attempted.
func GetDetailFetchState(ctx context.Context, db *gorm.DB, diaryID uint) (*domain.DiaryDetailFetchState, error) {
	var s domain.DiaryDetailFetchState
	err := db.WithContext(ctx).First(&s, "diary_id = ?", diaryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordDetailAttempt upserts the per-diary detail-fetch bookkeeping:
// last_* fields always reflect the latest attempt and the attempt counter
// increments by one. isShort is false whenever the attempt failed.
func RecordDetailAttempt(ctx context.Context, db *gorm.DB, diaryID uint, niderijiDiaryID int64, success, isShort bool, contentLen int, errMsg string, now time.Time) error {
	if !success {
		isShort = false
	}

	var s domain.DiaryDetailFetchState
	err := db.WithContext(ctx).First(&s, "diary_id = ?", diaryID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s = domain.DiaryDetailFetchState{
			DiaryID:         diaryID,
			NiderijiDiaryID: niderijiDiaryID,
		}
		if err := db.WithContext(ctx).Create(&s).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	}

	return db.WithContext(ctx).Model(&s).Updates(map[string]any{
		"last_detail_at":          now,
		"last_detail_success":     success,
		"last_detail_is_short":    isShort,
		"last_detail_content_len": contentLen,
		"last_detail_error":       errMsg,
		"attempts":                gorm.Expr("attempts + 1"),
	}).Error
}
