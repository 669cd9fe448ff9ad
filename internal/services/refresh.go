package services

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/upstream"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// reasonNotReturned explains a refresh that found the diary in neither the
// sync payload nor the detail endpoint. Kept verbatim from the operator UI
// so existing dashboards keep matching on it.
const reasonNotReturned = "sync 未找到且详情接口也未返回该日记"

// RefreshTrace is the step-by-step outcome of one single-diary refresh,
// returned to the caller so operators can see exactly what the upstream
// reported and what was written.
type RefreshTrace struct {
	DiaryID         uint     `json:"diary_id"`
	NiderijiDiaryID int64    `json:"nideriji_diary_id"`
	FoundInSync     bool     `json:"found_in_sync"`
	DetailAttempted bool     `json:"detail_attempted"`
	DetailReturned  bool     `json:"detail_returned"`
	ContentUpdated  bool     `json:"content_updated"`
	ContentGuarded  bool     `json:"content_guarded"`
	HistorySaved    bool     `json:"history_saved"`
	MsgCountChanged bool     `json:"msg_count_changed"`
	SkippedReason   string   `json:"skipped_reason,omitempty"`
	Steps           []string `json:"steps"`
}

func (t *RefreshTrace) step(format string, args ...any) {
	t.Steps = append(t.Steps, fmt.Sprintf(format, args...))
}

// RefreshDiary re-pulls one diary from the upstream: a full sync payload is
// fetched and searched for the entry, the detail endpoint is queried when the
// record is still incomplete or missing from the payload, and whatever came
// back is reconciled under the usual content guard. The msg-count
// compare-and-swap runs even when the content write is guarded, so message
// activity is never lost to the guard.
func (s *SyncService) RefreshDiary(ctx context.Context, diaryID uint) (*RefreshTrace, error) {
	diary, err := repo.GetDiary(ctx, s.DB, diaryID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDiaryNotFound
		}
		return nil, err
	}
	acc, err := repo.GetAccount(ctx, s.DB, diary.AccountID)
	if err != nil {
		return nil, errors.Wrap(err, "load account for refresh")
	}
	author, err := repo.GetUser(ctx, s.DB, diary.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load author for refresh")
	}

	if !s.Locks.TryAcquire(acc.ID) {
		return nil, ErrSyncInProgress
	}
	defer s.Locks.Release(acc.ID)

	trace := &RefreshTrace{DiaryID: diary.ID, NiderijiDiaryID: diary.NiderijiDiaryID}

	var payload *upstream.SyncPayload
	err = withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
		p, serr := s.Upstream.SyncAll(ctx, token)
		if serr == nil {
			payload = p
		}
		return serr
	})
	if err != nil {
		return nil, errors.Wrap(err, "refresh sync pull")
	}

	var fromSync *upstream.Record
	for _, set := range [][]upstream.Record{payload.Diaries, payload.DiariesPaired} {
		for i := range set {
			if set[i].ID == diary.NiderijiDiaryID {
				fromSync = &set[i]
				break
			}
		}
		if fromSync != nil {
			break
		}
	}
	trace.FoundInSync = fromSync != nil
	trace.step("sync payload: %d own, %d paired, target found=%v",
		len(payload.Diaries), len(payload.DiariesPaired), trace.FoundInSync)

	// Detail is only worth a request when the sync record is still incomplete
	// or the sync did not return the diary at all. A complete sync record
	// refreshes in place without touching the detail endpoint or its
	// bookkeeping row.
	var detail *upstream.Record
	var detailErr error
	if fromSync == nil || s.needsDetailForRefresh(ctx, diary, *fromSync) {
		trace.DetailAttempted = true
		detailErr = withAutoRelogin(ctx, s.DB, s.Upstream, acc, func(token string) error {
			m, ferr := s.Upstream.FetchDetails(ctx, token, author.NiderijiUserID, []int64{diary.NiderijiDiaryID})
			if ferr != nil {
				return ferr
			}
			if d, ok := m[diary.NiderijiDiaryID]; ok {
				detail = &d
			}
			return nil
		})
		if detailErr != nil {
			trace.step("detail fetch failed: %s", utils.ErrorSummary(detailErr, s.Cfg.ErrorSummaryLimit))
		}
		trace.DetailReturned = detail != nil

		contentLen := 0
		if detail != nil && detail.Content != nil {
			contentLen = ContentLength(*detail.Content)
		}
		recErr := repo.RecordDetailAttempt(ctx, s.DB, diary.ID, diary.NiderijiDiaryID,
			detailErr == nil, detailErr == nil && contentLen < s.Cfg.ContentThreshold,
			contentLen, detailErrMsg(detailErr, s.Cfg.ErrorSummaryLimit), s.now())
		if recErr != nil {
			return nil, errors.Wrap(recErr, "record detail attempt")
		}
	} else {
		trace.step("sync record complete, detail fetch skipped")
	}

	if fromSync == nil && detail == nil {
		trace.SkippedReason = reasonNotReturned
		trace.step("nothing to reconcile")
		return trace, nil
	}

	var merged upstream.Record
	if fromSync != nil {
		merged = MergeDetail(*fromSync, detail)
	} else {
		merged = *detail
	}
	if merged.CreatedDate == "" {
		merged.CreatedDate = diary.CreatedDate.Format(createdDateLayout)
	}

	result, err := Reconcile(diary, merged, s.Cfg.ContentThreshold)
	if err != nil {
		return nil, errors.Wrapf(err, "reconcile diary %d", diary.NiderijiDiaryID)
	}
	trace.ContentGuarded = result.ContentGuarded
	_, trace.ContentUpdated = result.Updates["content"]

	if result.History != nil {
		if err := repo.AddDiaryHistory(ctx, s.DB, result.History); err != nil {
			return nil, errors.Wrap(err, "snapshot before refresh overwrite")
		}
		trace.HistorySaved = true
	}
	if len(result.Updates) > 0 {
		if err := repo.UpdateDiaryFields(ctx, s.DB, diary.ID, result.Updates); err != nil {
			return nil, errors.Wrap(err, "apply refresh updates")
		}
		trace.step("updated %d fields", len(result.Updates))
	} else {
		trace.step("no field changes")
	}
	if trace.ContentGuarded {
		trace.step("content guard held: incoming below threshold, local content kept")
	}

	changed, err := ApplyMsgCountDelta(ctx, s.DB, diary, merged.MsgCount, MsgSourceRefresh, nil)
	if err != nil {
		return nil, errors.Wrap(err, "refresh msg count")
	}
	trace.MsgCountChanged = changed
	return trace, nil
}

// needsDetailForRefresh applies the batch-sync detail rule to the refresh
// target. A missing or unreadable bookkeeping row counts as "never attempted".
func (s *SyncService) needsDetailForRefresh(ctx context.Context, diary *domain.Diary, rec upstream.Record) bool {
	state, err := repo.GetDetailFetchState(ctx, s.DB, diary.ID)
	if err != nil {
		state = nil
	}
	return NeedsDetail(diary, rec, state, s.Cfg.ContentThreshold)
}

func detailErrMsg(err error, limit int) string {
	if err == nil {
		return ""
	}
	return utils.ErrorSummary(err, limit)
}
