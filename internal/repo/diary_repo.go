// Repository functions for the Diary model, including the conditional
// message-count update that backs the delta ledger.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// GetDiary fetches a diary by local id, or ErrNotFound.
func GetDiary(ctx context.Context, db *gorm.DB, id uint) (*domain.Diary, error) {
	var d domain.Diary
	if err := db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDiaryByUpstreamID fetches a diary by its upstream diary id.
func GetDiaryByUpstreamID(ctx context.Context, db *gorm.DB, niderijiDiaryID int64) (*domain.Diary, error) {
	var d domain.Diary
	if err := db.WithContext(ctx).First(&d, "nideriji_diary_id = ?", niderijiDiaryID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDiary inserts a new diary row.
func CreateDiary(ctx context.Context, db *gorm.DB, d *domain.Diary) error {
	return db.WithContext(ctx).Create(d).Error
}

// UpdateDiaryFields applies a partial update to one diary row.
func UpdateDiaryFields(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	res := db.WithContext(ctx).Model(&domain.Diary{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DiaryFilter narrows ListDiaries.
type DiaryFilter struct {
	AccountID uint
	UserID    uint
	Limit     int
	Offset    int
}

// ListDiaries returns diaries ordered by created_date descending.
func ListDiaries(ctx context.Context, db *gorm.DB, f DiaryFilter) ([]domain.Diary, error) {
	q := db.WithContext(ctx).Order("created_date desc").Order("id desc")
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []domain.Diary
	err := q.Find(&out).Error
	return out, err
}

// CountDiariesByOwnership counts stored diaries for an account split by
// whether the author is the account's own user. Totals are recounted from
// storage after every sync; batch-insert counters would under-report on
// repeated syncs.
func CountDiariesByOwnership(ctx context.Context, db *gorm.DB, accountID, ownerUserID uint) (own, paired int64, err error) {
	if err = db.WithContext(ctx).
		Model(&domain.Diary{}).
		Where("account_id = ? AND user_id = ?", accountID, ownerUserID).
		Count(&own).Error; err != nil {
		return 0, 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Diary{}).
		Where("account_id = ? AND user_id <> ?", accountID, ownerUserID).
		Count(&paired).Error
	return own, paired, err
}

// UpdateMsgCountCAS performs the compare-and-swap message-count update:
// the row is only written when its current msg_count still matches oldCount
// (with NULL and 0 treated as equal, tolerating legacy rows). Returns true
// when exactly one row was updated; false means a concurrent writer got
// there first, which is not an error.
func UpdateMsgCountCAS(ctx context.Context, db *gorm.DB, diaryID, accountID uint, oldCount, newCount int) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Diary{}).
		Where("id = ? AND account_id = ? AND COALESCE(msg_count, 0) = ?", diaryID, accountID, oldCount).
		Update("msg_count", newCount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetBookmark sets or clears the bookmark marker. Setting only touches rows
// that are not yet bookmarked so the original bookmark time is kept;
// clearing only touches bookmarked rows. Returns whether a row changed.
func SetBookmark(ctx context.Context, db *gorm.DB, diaryID uint, bookmarked bool, now time.Time) (bool, error) {
	var res *gorm.DB
	if bookmarked {
		res = db.WithContext(ctx).
			Model(&domain.Diary{}).
			Where("id = ? AND bookmarked_at IS NULL", diaryID).
			Update("bookmarked_at", now.UnixMilli())
	} else {
		res = db.WithContext(ctx).
			Model(&domain.Diary{}).
			Where("id = ? AND bookmarked_at IS NOT NULL", diaryID).
			Update("bookmarked_at", nil)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetBookmarksBatch applies SetBookmark semantics to many ids at once and
// returns the number of rows actually changed.
func SetBookmarksBatch(ctx context.Context, db *gorm.DB, diaryIDs []uint, bookmarked bool, now time.Time) (int64, error) {
	if len(diaryIDs) == 0 {
		return 0, nil
	}
	var res *gorm.DB
	if bookmarked {
		res = db.WithContext(ctx).
			Model(&domain.Diary{}).
			Where("id IN ? AND bookmarked_at IS NULL", diaryIDs).
			Update("bookmarked_at", now.UnixMilli())
	} else {
		res = db.WithContext(ctx).
			Model(&domain.Diary{}).
			Where("id IN ? AND bookmarked_at IS NOT NULL", diaryIDs).
			Update("bookmarked_at", nil)
	}
	return res.RowsAffected, res.Error
}
