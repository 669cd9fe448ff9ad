package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yournote/go-diary-backend/internal/domain"
)

func TestPublishDraftUpsert(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	d, err := UpsertPublishDraft(ctx, db, "2024-05-01", "first version")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 || d.Content != "first version" {
		t.Fatalf("draft: %+v", d)
	}

	d2, err := UpsertPublishDraft(ctx, db, "2024-05-01", "second version")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if d2.ID != d.ID {
		t.Fatalf("upsert must keep the row, got id %d want %d", d2.ID, d.ID)
	}

	got, err := GetPublishDraft(ctx, db, "2024-05-01")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "second version" {
		t.Fatalf("content = %q", got.Content)
	}

	if _, err := GetPublishDraft(ctx, db, "2024-05-02"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing draft: %v", err)
	}
}

func TestPublishRunsAndItems(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	run := &domain.PublishRun{Date: "2024-05-01", Content: "hello", TargetAccountIDs: "[1,2]"}
	if err := CreatePublishRun(ctx, db, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := AddPublishRunItem(ctx, db, &domain.PublishRunItem{RunID: run.ID, AccountID: 1, Status: domain.PublishStatusSuccess}); err != nil {
		t.Fatalf("item 1: %v", err)
	}
	if err := AddPublishRunItem(ctx, db, &domain.PublishRunItem{RunID: run.ID, AccountID: 2, Status: domain.PublishStatusFailed, ErrorMessage: "login rejected"}); err != nil {
		t.Fatalf("item 2: %v", err)
	}

	got, items, err := GetPublishRun(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.Date != "2024-05-01" || len(items) != 2 {
		t.Fatalf("run=%+v items=%v", got, items)
	}
	if items[0].AccountID != 1 || items[1].Status != domain.PublishStatusFailed {
		t.Fatalf("items out of order: %v", items)
	}

	if _, _, err := GetPublishRun(ctx, db, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing run: %v", err)
	}
}

func TestListPublishRuns_NewestFirst(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-03"} {
		if err := CreatePublishRun(ctx, db, &domain.PublishRun{Date: date, Content: "c"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	runs, err := ListPublishRuns(ctx, db, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].Date != "2024-05-03" || runs[1].Date != "2024-05-02" {
		t.Fatalf("runs: %v", runs)
	}
}

func TestPublishIdempotency(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if rec, err := GetPublishIdempotency(ctx, db, "unknown", now); err != nil || rec != nil {
		t.Fatalf("unknown key: rec=%v err=%v", rec, err)
	}

	if err := PutPublishIdempotency(ctx, db, "k1", 7, now, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	rec, err := GetPublishIdempotency(ctx, db, "k1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil || rec.RunID != 7 {
		t.Fatalf("rec: %+v", rec)
	}

	// Lookups after the TTL see nothing.
	if rec, err := GetPublishIdempotency(ctx, db, "k1", now.Add(2*time.Hour)); err != nil || rec != nil {
		t.Fatalf("expired key: rec=%v err=%v", rec, err)
	}
}
