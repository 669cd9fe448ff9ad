package services

import (
	"context"
	"testing"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/upstream"
)

func TestRefreshDiary_NotReturnedAnywhere(t *testing.T) {
	db := newServiceDB(t)
	acc := seedAccount(t, db, 100, false)
	u := seedUser(t, db, 100)
	d := seedDiary(t, db, acc.ID, u.ID, 42, nil)

	fake := &fakeUpstream{payload: basePayload(100), details: map[int64]upstream.Record{}}
	svc := newSyncService(db, fake)

	trace, err := svc.RefreshDiary(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("RefreshDiary: %v", err)
	}
	if trace.FoundInSync || trace.DetailReturned {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	if !trace.DetailAttempted {
		t.Fatalf("detail endpoint must be tried even when sync misses")
	}
	if trace.SkippedReason != "sync 未找到且详情接口也未返回该日记" {
		t.Fatalf("skipped reason = %q", trace.SkippedReason)
	}
	if len(fake.detailRequested) != 1 || fake.detailRequested[0][0] != 42 {
		t.Fatalf("detail request = %v", fake.detailRequested)
	}
}

func TestRefreshDiary_GuardHoldsButMsgCountMoves(t *testing.T) {
	db := newServiceDB(t)
	acc := seedAccount(t, db, 100, false)
	u := seedUser(t, db, 100)

	full := longContent(150)
	d := &domain.Diary{
		NiderijiDiaryID: 42,
		AccountID:       acc.ID,
		UserID:          u.ID,
		Content:         full,
		CreatedDate:     mustDate(t, "2024-05-01"),
		MsgCount:        intPtr(2),
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed diary: %v", err)
	}

	fake := &fakeUpstream{
		payload: basePayload(100, upstream.Record{
			ID: 42, Content: strPtr("truncated"), CreatedDate: "2024-05-01", MsgCount: intPtr(5),
		}),
		details: map[int64]upstream.Record{},
	}
	svc := newSyncService(db, fake)

	trace, err := svc.RefreshDiary(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("RefreshDiary: %v", err)
	}
	if !trace.FoundInSync {
		t.Fatalf("record should be found in sync payload")
	}
	if !trace.ContentGuarded || trace.ContentUpdated {
		t.Fatalf("guard must hold: %+v", trace)
	}
	if !trace.MsgCountChanged {
		t.Fatalf("msg count must move independently of the guard")
	}

	var stored domain.Diary
	if err := db.First(&stored, d.ID).Error; err != nil {
		t.Fatalf("reload diary: %v", err)
	}
	if stored.Content != full {
		t.Fatalf("content regressed")
	}
	if stored.MsgCount == nil || *stored.MsgCount != 5 {
		t.Fatalf("msg_count = %v, want 5", stored.MsgCount)
	}

	var events []domain.DiaryMsgCountEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].Source != MsgSourceRefresh || events[0].SyncLogID != nil {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestRefreshDiary_DetailOnlyCompletesContent(t *testing.T) {
	db := newServiceDB(t)
	acc := seedAccount(t, db, 100, false)
	u := seedUser(t, db, 100)
	d := seedDiary(t, db, acc.ID, u.ID, 42, nil)

	full := longContent(180)
	fake := &fakeUpstream{
		payload: basePayload(100), // sync payload no longer carries the entry
		details: map[int64]upstream.Record{42: {ID: 42, Content: strPtr(full)}},
	}
	svc := newSyncService(db, fake)

	trace, err := svc.RefreshDiary(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("RefreshDiary: %v", err)
	}
	if trace.FoundInSync || !trace.DetailReturned {
		t.Fatalf("unexpected trace: %+v", trace)
	}
	if !trace.ContentUpdated || !trace.HistorySaved {
		t.Fatalf("detail content must land with a snapshot: %+v", trace)
	}
	if trace.SkippedReason != "" {
		t.Fatalf("skipped reason must be empty, got %q", trace.SkippedReason)
	}

	var stored domain.Diary
	if err := db.First(&stored, d.ID).Error; err != nil {
		t.Fatalf("reload diary: %v", err)
	}
	if stored.Content != full {
		t.Fatalf("content not updated")
	}

	var hist []domain.DiaryHistory
	if err := db.Find(&hist).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(hist) != 1 || hist[0].Content != "seed" {
		t.Fatalf("unexpected history: %+v", hist)
	}
}

func TestRefreshDiary_CompleteSyncRecordSkipsDetail(t *testing.T) {
	db := newServiceDB(t)
	acc := seedAccount(t, db, 100, false)
	u := seedUser(t, db, 100)
	d := seedDiary(t, db, acc.ID, u.ID, 42, nil)

	full := longContent(150)
	fake := &fakeUpstream{
		payload: basePayload(100, upstream.Record{ID: 42, Content: strPtr(full), CreatedDate: "2024-05-01"}),
		details: map[int64]upstream.Record{},
	}
	svc := newSyncService(db, fake)

	trace, err := svc.RefreshDiary(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("RefreshDiary: %v", err)
	}
	if !trace.FoundInSync || !trace.ContentUpdated {
		t.Fatalf("complete sync record must land: %+v", trace)
	}
	if trace.DetailAttempted || fake.detailCalls != 0 {
		t.Fatalf("complete sync record must not trigger a detail fetch: attempted=%v calls=%d",
			trace.DetailAttempted, fake.detailCalls)
	}

	var states []domain.DiaryDetailFetchState
	if err := db.Find(&states).Error; err != nil {
		t.Fatalf("load detail states: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("no bookkeeping row expected, got %+v", states)
	}
}

func TestRefreshDiary_UnknownDiary(t *testing.T) {
	db := newServiceDB(t)
	svc := newSyncService(db, &fakeUpstream{payload: basePayload(100)})

	if _, err := svc.RefreshDiary(context.Background(), 999); err != ErrDiaryNotFound {
		t.Fatalf("err = %v, want ErrDiaryNotFound", err)
	}
}
