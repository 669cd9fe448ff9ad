// Aggregation queries backing the dashboard overview. Pure reporting: no
// invariants live here.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
)

// AccountOverview is one row of the dashboard overview.
type AccountOverview struct {
	AccountID      uint   `json:"account_id"`
	NiderijiUserID int64  `json:"nideriji_userid"`
	IsActive       bool   `json:"is_active"`
	DiaryCount     int64  `json:"diary_count"`
	LastSyncStatus string `json:"last_sync_status"`
}

// Overview aggregates per-account totals plus the message delta for the
// trailing window.
type Overview struct {
	Accounts       []AccountOverview `json:"accounts"`
	TotalDiaries   int64             `json:"total_diaries"`
	TotalUsers     int64             `json:"total_users"`
	NewMsgsInWindow int64            `json:"new_msgs_in_window"`
	WindowHours    int               `json:"window_hours"`
}

// GetOverview computes the dashboard overview. windowHours bounds the
// message-delta lookback (default 24 when <= 0).
func GetOverview(ctx context.Context, db *gorm.DB, windowHours int) (*Overview, error) {
	if windowHours <= 0 {
		windowHours = 24
	}

	accounts, err := ListAccounts(ctx, db, false)
	if err != nil {
		return nil, err
	}

	out := &Overview{WindowHours: windowHours}
	for _, a := range accounts {
		var diaryCount int64
		if err := db.WithContext(ctx).
			Model(&domain.Diary{}).
			Where("account_id = ?", a.ID).
			Count(&diaryCount).Error; err != nil {
			return nil, err
		}

		status := ""
		if logs, err := LatestSyncLogs(ctx, db, a.ID, 1); err == nil && len(logs) > 0 {
			status = logs[0].Status
		}

		out.Accounts = append(out.Accounts, AccountOverview{
			AccountID:      a.ID,
			NiderijiUserID: a.NiderijiUserID,
			IsActive:       a.IsActive,
			DiaryCount:     diaryCount,
			LastSyncStatus: status,
		})
		out.TotalDiaries += diaryCount
	}

	if err := db.WithContext(ctx).Model(&domain.User{}).Count(&out.TotalUsers).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	delta, err := SumMsgCountDeltas(ctx, db, 0, now.Add(-time.Duration(windowHours)*time.Hour), now)
	if err != nil {
		return nil, err
	}
	out.NewMsgsInWindow = delta
	return out, nil
}
