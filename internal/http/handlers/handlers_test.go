package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
)

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fakeSyncService returns canned results so handler translation logic can be
// tested without touching the network.
type fakeSyncService struct {
	syncLog     *domain.SyncLog
	syncErr     error
	results     []services.AccountSyncResult
	sweepErr    error
	trace       *services.RefreshTrace
	refreshErr  error
	account     *domain.Account
	registerErr error
}

func (f *fakeSyncService) SyncAccount(ctx context.Context, accountID uint) (*domain.SyncLog, error) {
	return f.syncLog, f.syncErr
}

func (f *fakeSyncService) SyncAllAccounts(ctx context.Context) ([]services.AccountSyncResult, error) {
	return f.results, f.sweepErr
}

func (f *fakeSyncService) RefreshDiary(ctx context.Context, diaryID uint) (*services.RefreshTrace, error) {
	return f.trace, f.refreshErr
}

func (f *fakeSyncService) RegisterAccount(ctx context.Context, token, email, password string) (*domain.Account, error) {
	return f.account, f.registerErr
}

type fakePublishService struct {
	draft    *domain.PublishDraft
	draftErr error
	run      *domain.PublishRun
	items    []domain.PublishRunItem
	replayed bool
	pubErr   error
	runs     []domain.PublishRun
	runErr   error

	lastDate    string
	lastContent string
	lastTargets []uint
	lastKey     string
}

func (f *fakePublishService) SaveDraft(ctx context.Context, date, content string) (*domain.PublishDraft, error) {
	return f.draft, f.draftErr
}

func (f *fakePublishService) GetDraft(ctx context.Context, date string) (*domain.PublishDraft, error) {
	return f.draft, f.draftErr
}

func (f *fakePublishService) Publish(ctx context.Context, date, content string, accountIDs []uint, idemKey string) (*domain.PublishRun, []domain.PublishRunItem, bool, error) {
	f.lastDate, f.lastContent, f.lastTargets, f.lastKey = date, content, accountIDs, idemKey
	return f.run, f.items, f.replayed, f.pubErr
}

func (f *fakePublishService) ListRuns(ctx context.Context, limit int) ([]domain.PublishRun, error) {
	return f.runs, f.runErr
}

func (f *fakePublishService) GetRun(ctx context.Context, id uint) (*domain.PublishRun, []domain.PublishRunItem, error) {
	if f.run == nil {
		return nil, nil, services.ErrRunNotFound
	}
	return f.run, f.items, f.runErr
}

type fakeImageService struct {
	img *domain.CachedImage
	err error
}

func (f *fakeImageService) EnsureCached(ctx context.Context, acc *domain.Account, ownerNiderijiUserID, imageID int64) (*domain.CachedImage, error) {
	return f.img, f.err
}

type testDeps struct {
	db   *gorm.DB
	sync *fakeSyncService
	pub  *fakePublishService
	img  *fakeImageService
}

// newTestRouter mounts the API routes without middleware so tests exercise
// handler logic in isolation.
func newTestRouter(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	deps := &testDeps{
		db:   newHandlerDB(t),
		sync: &fakeSyncService{},
		pub:  &fakePublishService{},
		img:  &fakeImageService{},
	}
	h := New(deps.db, deps.sync, deps.pub, deps.img)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/sync/trigger/:account_id", h.TriggerSync)
	api.POST("/sync/trigger", h.TriggerSyncAll)
	api.GET("/sync/logs", h.ListSyncLogs)
	api.GET("/sync/logs/latest", h.LatestSyncLogs)
	api.GET("/diaries", h.ListDiaries)
	api.GET("/diaries/query", h.QueryDiaries)
	api.GET("/diaries/:id", h.GetDiary)
	api.POST("/diaries/:id/refresh", h.RefreshDiary)
	api.PUT("/diaries/:id/bookmark", h.SetBookmark)
	api.PUT("/diaries/bookmarks/batch", h.SetBookmarksBatch)
	api.GET("/diaries/:id/history", h.DiaryHistory)
	api.GET("/diaries/:id/images/:image_id", h.DiaryImage)
	api.GET("/accounts", h.ListAccounts)
	api.POST("/accounts", h.RegisterAccount)
	api.PUT("/accounts/:id/active", h.SetAccountActive)
	api.PUT("/accounts/:id/credentials", h.UpdateAccountCredentials)
	api.GET("/accounts/:id/token-status", h.AccountTokenStatus)
	api.PUT("/publish/draft", h.SaveDraft)
	api.GET("/publish/draft", h.GetDraft)
	api.POST("/publish", h.Publish)
	api.GET("/publish/runs", h.ListPublishRuns)
	api.GET("/publish/runs/:id", h.GetPublishRun)
	api.GET("/stats/overview", h.StatsOverview)
	return r, deps
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedTestAccount(t *testing.T, db *gorm.DB, niderijiUserID int64) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		NiderijiUserID: niderijiUserID,
		AuthToken:      "token",
		Email:          "a@example.com",
		IsActive:       true,
	}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func seedTestUser(t *testing.T, db *gorm.DB, niderijiUserID int64) *domain.User {
	t.Helper()
	u := &domain.User{NiderijiUserID: niderijiUserID, Name: "writer"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedTestDiary(t *testing.T, db *gorm.DB, accountID, userID uint, niderijiID int64, content string) *domain.Diary {
	t.Helper()
	d := &domain.Diary{
		NiderijiDiaryID: niderijiID,
		AccountID:       accountID,
		UserID:          userID,
		Title:           "day",
		Content:         content,
		CreatedDate:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		TS:              1714500000,
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed diary: %v", err)
	}
	return d
}
