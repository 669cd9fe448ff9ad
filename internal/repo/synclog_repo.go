package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// CreateSyncLog inserts a sync-log row. The orchestrator commits it in
// "running" state before any network I/O so in-flight syncs are observable.
func CreateSyncLog(ctx context.Context, db *gorm.DB, l *domain.SyncLog) error {
	return db.WithContext(ctx).Create(l).Error
}

// FinalizeSyncLog records the terminal state of a sync attempt.
func FinalizeSyncLog(ctx context.Context, db *gorm.DB, id uint, status string, diaries, pairedDiaries int, errMsg string) error {
	res := db.WithContext(ctx).
		Model(&domain.SyncLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":               status,
			"diaries_count":        diaries,
			"paired_diaries_count": pairedDiaries,
			"error_message":        errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSyncLogs returns sync history, newest first, optionally filtered by
// account.
func ListSyncLogs(ctx context.Context, db *gorm.DB, accountID uint, limit int) ([]domain.SyncLog, error) {
	q := db.WithContext(ctx).Order("sync_time desc").Order("id desc")
	if accountID != 0 {
		q = q.Where("account_id = ?", accountID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.SyncLog
	err := q.Find(&out).Error
	return out, err
}

// LatestSyncLogs returns the most recent log row per account, used by the
// frontend sync indicator to avoid polling the full history. limit bounds
// how many accounts are reported.
func LatestSyncLogs(ctx context.Context, db *gorm.DB, accountID uint, limit int) ([]domain.SyncLog, error) {
	sub := db.Model(&domain.SyncLog{}).
		Select("MAX(id)").
		Group("account_id")
	if accountID != 0 {
		sub = sub.Where("account_id = ?", accountID)
	}

	q := db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("sync_time desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.SyncLog
	err := q.Find(&out).Error
	return out, err
}
