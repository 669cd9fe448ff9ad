package httpapi

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

	"github.com/yournote/go-diary-backend/internal/config"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/upstream"
)

// noopUpstream satisfies services.UpstreamAPI for routing tests that never
// reach the network.
type noopUpstream struct{}

func (noopUpstream) Login(ctx context.Context, email, password string) (string, error) {
	return "", fmt.Errorf("not wired in routing tests")
}

func (noopUpstream) SyncAll(ctx context.Context, token string) (*upstream.SyncPayload, error) {
	return nil, fmt.Errorf("not wired in routing tests")
}

func (noopUpstream) FetchDetails(ctx context.Context, token string, ownerUserID int64, diaryIDs []int64) (map[int64]upstream.Record, error) {
	return nil, fmt.Errorf("not wired in routing tests")
}

func (noopUpstream) WriteDiary(ctx context.Context, token, date, content string) (map[string]any, error) {
	return nil, fmt.Errorf("not wired in routing tests")
}

func (noopUpstream) FetchImage(ctx context.Context, token string, niderijiUserID, imageID, maxBytes int64) ([]byte, string, error) {
	return nil, "", fmt.Errorf("not wired in routing tests")
}

func newRouterDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
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

func newTestRouter(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newRouterDB(t)
	cfg := config.Config{
		APIBasePath: "/api",
		RateRPS:     1000,
		RateBurst:   1000,
		Sync: config.SyncConfig{
			ContentThreshold:  100,
			ErrorSummaryLimit: 200,
		},
		IdempotencyTTL: time.Hour,
	}
	cfg.OTEL.ServiceName = "router-test"
	if mutate != nil {
		mutate(&cfg)
	}

	up := noopUpstream{}
	syncSvc := services.NewSyncService(db, up, services.NewSyncLockRegistry(), cfg.Sync)
	pubSvc := services.NewPublishService(db, up, cfg.IdempotencyTTL, cfg.Sync.ErrorSummaryLimit)
	imgSvc := services.NewImageService(db, up, 10<<20, cfg.Sync.ErrorSummaryLimit)

	r := gin.New()
	RegisterRoutes(r, db, syncSvc, pubSvc, imgSvc, cfg)
	return r
}

func TestRouter_HealthAndBaselineHeaders(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body: %s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected permissive CORS default")
	}
}

func TestRouter_NoRouteAndNoMethodEnvelopes(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("expected error envelope, got %s", w.Body.String())
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodDelete, "/health", nil))
	if w2.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w2.Code)
	}
	if !strings.Contains(w2.Body.String(), "method_not_allowed") {
		t.Fatalf("expected error envelope, got %s", w2.Body.String())
	}
}

func TestRouter_DiariesEndpointWired(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/diaries", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from empty diary list, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"diaries":[]`) {
		t.Fatalf("expected empty diary page, got %s", w.Body.String())
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	r := newTestRouter(t, nil)

	// One API hit so the scrape has something to show.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/diaries", nil))

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w2.Code)
	}
	if !strings.Contains(w2.Body.String(), "http_requests_total") {
		t.Fatalf("expected request counter in scrape output")
	}
}

func TestRouter_BadIdempotencyKeyRejected(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/publish",
		strings.NewReader(`{"date":"2024-05-01","content":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "bad key with spaces")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed key, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bad_idempotency_key") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouter_CORSAllowlistEchoesOrigin(t *testing.T) {
	r := newTestRouter(t, func(cfg *config.Config) {
		cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected allowlisted origin echoed, got %q", got)
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w2, req2)
	if got := w2.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("unlisted origin must not be echoed")
	}
}

func TestRouter_SwaggerMountIsOptIn(t *testing.T) {
	r := newTestRouter(t, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger must be off by default, got %d", w.Code)
	}

	r2 := newTestRouter(t, func(cfg *config.Config) { cfg.SwaggerEnabled = true })
	w2 := httptest.NewRecorder()
	r2.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	if w2.Code == http.StatusNotFound {
		t.Fatalf("swagger route missing when enabled")
	}
}
