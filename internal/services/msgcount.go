package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
)

// Ledger event sources.
const (
	MsgSourceSync    = "sync"
	MsgSourceRefresh = "refresh"
)

// normalizeMsgCount maps the upstream msg_count to the canonical local value:
// absent and negative both become zero.
func normalizeMsgCount(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// ApplyMsgCountDelta moves a diary's msg_count to the incoming value through
// a compare-and-swap and, for increases only, appends one ledger event.
//
// The CAS makes the transition exactly-once under concurrent delivery: if
// another writer already moved the count, the swap touches zero rows and no
// event is written. Decreases are persisted silently so the ledger stays a
// record of message arrivals, never corrections.
func ApplyMsgCountDelta(ctx context.Context, db *gorm.DB, diary *domain.Diary, incoming *int, source string, syncLogID *uint) (bool, error) {
	oldCount := normalizeMsgCount(diary.MsgCount)
	newCount := normalizeMsgCount(incoming)
	if newCount == oldCount {
		return false, nil
	}

	swapped, err := repo.UpdateMsgCountCAS(ctx, db, diary.ID, diary.AccountID, oldCount, newCount)
	if err != nil {
		return false, err
	}
	if !swapped {
		return false, nil
	}
	diary.MsgCount = &newCount

	if newCount > oldCount {
		event := &domain.DiaryMsgCountEvent{
			AccountID:   diary.AccountID,
			DiaryID:     diary.ID,
			SyncLogID:   syncLogID,
			OldMsgCount: oldCount,
			NewMsgCount: newCount,
			Delta:       newCount - oldCount,
			Source:      source,
		}
		if err := repo.InsertMsgCountEvent(ctx, db, event); err != nil {
			return true, err
		}
	}
	return true, nil
}
