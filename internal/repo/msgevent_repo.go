package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// InsertMsgCountEvent appends one ledger row. Events are only ever inserted.
func InsertMsgCountEvent(ctx context.Context, db *gorm.DB, e *domain.DiaryMsgCountEvent) error {
	return db.WithContext(ctx).Create(e).Error
}

// ListMsgCountEvents returns ledger rows for an account (all accounts when
// accountID is 0), newest first.
func ListMsgCountEvents(ctx context.Context, db *gorm.DB, accountID uint, limit int) ([]domain.DiaryMsgCountEvent, error) {
	q := db.WithContext(ctx).Order("recorded_at desc").Order("id desc")
	if accountID != 0 {
		q = q.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.DiaryMsgCountEvent
	err := q.Find(&out).Error
	return out, err
}

// SumMsgCountDeltas answers "how many new messages arrived in [from, to)"
// for one account (or all accounts when accountID is 0).
func SumMsgCountDeltas(ctx context.Context, db *gorm.DB, accountID uint, from, to time.Time) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.DiaryMsgCountEvent{}).
		Where("recorded_at >= ? AND recorded_at < ?", from, to)
	if accountID != 0 {
		q = q.Where("account_id = ?", accountID)
	}
	var total *int64
	if err := q.Select("SUM(delta)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
