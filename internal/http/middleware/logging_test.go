package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogs swaps the global zerolog writer for the duration of fn and
// returns everything written.
func captureLogs(fn func()) string {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()
	fn()
	return buf.String()
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		rid, _ := c.Get(requestIDKey)
		c.String(http.StatusOK, asString(rid))
	})

	// No incoming header: a fresh ID is generated and echoed.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated X-Request-ID header")
	}
	if w.Body.String() != w.Header().Get(requestIDHeader) {
		t.Fatalf("context and header request id differ")
	}

	// Incoming header is reused.
	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "rid-fixed")
	r.ServeHTTP(w2, req)
	if got := w2.Header().Get(requestIDHeader); got != "rid-fixed" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

func TestLogger_LevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/missing", func(c *gin.Context) { c.String(http.StatusNotFound, "no") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	cases := []struct {
		path  string
		level string
	}{
		{"/ok", `"level":"info"`},
		{"/missing", `"level":"warn"`},
		{"/boom", `"level":"error"`},
	}
	for _, tc := range cases {
		out := captureLogs(func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		})
		if !strings.Contains(out, tc.level) {
			t.Fatalf("%s: expected %s in log output, got %s", tc.path, tc.level, out)
		}
		if !strings.Contains(out, `"path":"`+tc.path+`"`) {
			t.Fatalf("%s: path missing from log output: %s", tc.path, out)
		}
	}
}

func TestLoggerFrom_FallbackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if lg := LoggerFrom(c); lg == nil {
		t.Fatalf("expected fallback logger, got nil")
	}
}

func TestRecovery_PanicsBecomeJSON500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	var w *httptest.ResponseRecorder
	out := captureLogs(func() {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("expected JSON error body, got %s", w.Body.String())
	}
	if !strings.Contains(out, "panic recovered") || !strings.Contains(out, "kaboom") {
		t.Fatalf("expected panic log with value, got %s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
	if got := truncate("hello", 0); got != "hello" {
		t.Fatalf("max<=0 disables truncation, got %q", got)
	}
	got := truncate("hello world", 5)
	if !strings.HasPrefix(got, "hello") || len(got) <= 5 {
		t.Fatalf("expected truncated string with ellipsis, got %q", got)
	}
}
