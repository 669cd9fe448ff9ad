package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yournote/go-diary-backend/internal/config"
	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/upstream"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.User{},
		&domain.Diary{},
		&domain.DiaryHistory{},
		&domain.DiaryDetailFetchState{},
		&domain.DiaryMsgCountEvent{},
		&domain.PairedRelationship{},
		&domain.SyncLog{},
		&domain.CachedImage{},
		&domain.PublishDraft{},
		&domain.PublishRun{},
		&domain.PublishRunItem{},
		&domain.PublishIdempotency{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		Interval:          20 * time.Minute,
		ContentThreshold:  100,
		MaxImagesPerSync:  0, // no background prefetch in tests
		MaxImageBytes:     1 << 20,
		ErrorSummaryLimit: 200,
	}
}

func seedAccount(t *testing.T, db *gorm.DB, niderijiUserID int64, withCreds bool) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		NiderijiUserID: niderijiUserID,
		AuthToken:      "token old",
		IsActive:       true,
	}
	if withCreds {
		acc.Email = "a@example.com"
		acc.LoginPassword = "secret"
	}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func seedUser(t *testing.T, db *gorm.DB, niderijiUserID int64) *domain.User {
	t.Helper()
	u := &domain.User{NiderijiUserID: niderijiUserID, Name: fmt.Sprintf("user-%d", niderijiUserID)}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }
func i64Ptr(v int64) *int64   { return &v }

// fakeUpstream is an in-memory UpstreamAPI. Error queues are consumed one
// call at a time; once a queue is empty the call succeeds with the configured
// payload.
type fakeUpstream struct {
	mu sync.Mutex

	payload      *upstream.SyncPayload
	syncErrQueue []error
	syncCalls    int
	syncTokens   []string

	loginToken string
	loginErr   error
	loginCalls int

	details         map[int64]upstream.Record
	detailErrQueue  []error
	detailCalls     int
	detailRequested [][]int64

	writeResp     map[string]any
	writeErrQueue []error
	writeCalls    int

	imageData map[int64][]byte
	imageErr  error
}

func (f *fakeUpstream) SyncAll(ctx context.Context, token string) (*upstream.SyncPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	f.syncTokens = append(f.syncTokens, token)
	if len(f.syncErrQueue) > 0 {
		err := f.syncErrQueue[0]
		f.syncErrQueue = f.syncErrQueue[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.payload, nil
}

func (f *fakeUpstream) FetchDetails(ctx context.Context, token string, ownerUserID int64, diaryIDs []int64) (map[int64]upstream.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	f.detailRequested = append(f.detailRequested, append([]int64(nil), diaryIDs...))
	if len(f.detailErrQueue) > 0 {
		err := f.detailErrQueue[0]
		f.detailErrQueue = f.detailErrQueue[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make(map[int64]upstream.Record, len(diaryIDs))
	for _, id := range diaryIDs {
		if rec, ok := f.details[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (f *fakeUpstream) Login(ctx context.Context, email, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return f.loginToken, nil
}

func (f *fakeUpstream) WriteDiary(ctx context.Context, token, date, content string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCalls++
	if len(f.writeErrQueue) > 0 {
		err := f.writeErrQueue[0]
		f.writeErrQueue = f.writeErrQueue[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.writeResp, nil
}

func (f *fakeUpstream) FetchImage(ctx context.Context, token string, niderijiUserID, imageID, maxBytes int64) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return nil, "", f.imageErr
	}
	data, ok := f.imageData[imageID]
	if !ok {
		return nil, "", &upstream.StatusError{Status: 404}
	}
	return data, "image/jpeg", nil
}

// longContent builds content whose stripped length is exactly n.
func longContent(n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = 'x'
	}
	return string(out)
}
