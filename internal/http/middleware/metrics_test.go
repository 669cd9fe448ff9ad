package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetrics_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/diaries/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/diaries/7", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// Scrape and confirm the route label is present with the Gin template,
	// not the raw URL.
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w2.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Fatalf("expected request counter in scrape output")
	}
	if !strings.Contains(body, `path="/api/diaries/:id"`) {
		t.Fatalf("expected templated route label, got:\n%s", body[:min(len(body), 2000)])
	}
	if strings.Contains(body, `path="/api/diaries/7"`) {
		t.Fatalf("raw URL must not become a label value")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
