// Handler wiring.
//
// Handlers are transport-thin: they validate input, call application services
// or repository reads, and translate results into HTTP responses. Service
// dependencies are abstract interfaces so tests can substitute fakes.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// SyncService defines the sync operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SyncService interface {
	// SyncAccount runs one full sync for the account.
	SyncAccount(ctx context.Context, accountID uint) (*domain.SyncLog, error)
	// SyncAllAccounts sweeps every active account.
	SyncAllAccounts(ctx context.Context) ([]services.AccountSyncResult, error)
	// RefreshDiary re-pulls one diary and returns the step trace.
	RefreshDiary(ctx context.Context, diaryID uint) (*services.RefreshTrace, error)
	// RegisterAccount adds or refreshes an upstream credential set.
	RegisterAccount(ctx context.Context, token, email, password string) (*domain.Account, error)
}

// PublishService defines the publish-path operations consumed by handlers.
type PublishService interface {
	SaveDraft(ctx context.Context, date, content string) (*domain.PublishDraft, error)
	GetDraft(ctx context.Context, date string) (*domain.PublishDraft, error)
	Publish(ctx context.Context, date, content string, accountIDs []uint, idemKey string) (*domain.PublishRun, []domain.PublishRunItem, bool, error)
	ListRuns(ctx context.Context, limit int) ([]domain.PublishRun, error)
	GetRun(ctx context.Context, id uint) (*domain.PublishRun, []domain.PublishRunItem, error)
}

// ImageService defines the image cache operation consumed by handlers.
type ImageService interface {
	EnsureCached(ctx context.Context, acc *domain.Account, ownerNiderijiUserID, imageID int64) (*domain.CachedImage, error)
}

// Handlers groups the HTTP endpoints of the diary API. Read-only endpoints
// query the repo layer directly; mutations go through the services.
type Handlers struct {
	db      *gorm.DB
	syncSvc SyncService
	pubSvc  PublishService
	imgSvc  ImageService
}

// New constructs a Handlers instance bound to the given dependencies.
func New(db *gorm.DB, syncSvc SyncService, pubSvc PublishService, imgSvc ImageService) *Handlers {
	return &Handlers{db: db, syncSvc: syncSvc, pubSvc: pubSvc, imgSvc: imgSvc}
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiInRange(c.Query("page"), defaultPage, 1, 1<<30)
	pageSize = utils.AtoiInRange(c.Query("page_size"), defaultPageSize, 1, maxPageSize)
	return
}

// paginate computes the metadata block for one result page.
func paginate(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// uintParam parses a positive integer path parameter.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v := utils.AtoiDefault(c.Param(name), -1)
	if v <= 0 {
		return 0, false
	}
	return uint(v), true
}

// boolQuery parses an optional tri-state boolean query parameter; nil means
// the filter is absent.
func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}
