// Diary HTTP handlers.
//
//   - GET  /diaries                      (list, filters + paging)
//   - GET  /diaries/query                (smart search)
//   - GET  /diaries/:id                  (single diary)
//   - POST /diaries/:id/refresh          (re-pull one diary, returns trace)
//   - PUT  /diaries/:id/bookmark         (set/clear bookmark)
//   - PUT  /diaries/bookmarks/batch      (bookmark many, max 200 ids)
//   - GET  /diaries/:id/history          (overwrite snapshots)
//   - GET  /diaries/:id/images/:image_id (cache-or-fetch blob, ETag/304)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// queryLimits bound the smart-search input.
const (
	maxQueryTerms    = 10
	maxQueryExcludes = 10
	maxBatchIDs      = 200
	snippetLen       = 160
	historyLimit     = 50
)

// ListDiariesResponse wraps a page of diaries and pagination information.
type ListDiariesResponse struct {
	Diaries    []domain.Diary `json:"diaries"`
	Pagination Pagination     `json:"pagination"`
}

// ListDiaries godoc
// @ID          listDiaries
// @Summary     List diaries
// @Description Returns diaries ordered by created date descending, optionally filtered by account or author.
// @Tags        Diaries
// @Produce     json
//
// @Param       account_id  query  int  false  "Filter by account"
// @Param       user_id     query  int  false  "Filter by author"
// @Param       page        query  int  false  "Page number"    minimum(1) default(1)
// @Param       page_size   query  int  false  "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListDiariesResponse
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /diaries [get]
func (h *Handlers) ListDiaries(c *gin.Context) {
	page, pageSize := clampPagination(c)

	q := repo.DiaryQuery{
		AccountID: uint(utils.AtoiDefault(c.Query("account_id"), 0)),
		UserID:    uint(utils.AtoiDefault(c.Query("user_id"), 0)),
		OrderBy:   "created_date",
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	items, total, err := repo.QueryDiaries(c.Request.Context(), h.db, q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Diary{}
	}
	ok(c, http.StatusOK, ListDiariesResponse{Diaries: items, Pagination: paginate(page, pageSize, total)})
}

// QueryDiaryItem is one smart-search hit with its match preview.
type QueryDiaryItem struct {
	domain.Diary
	Preview string `json:"preview"`
}

// QueryDiariesResponse is the smart-search result envelope.
type QueryDiariesResponse struct {
	Diaries    []QueryDiaryItem `json:"diaries"`
	Pagination Pagination       `json:"pagination"`
	TookMS     int64            `json:"took_ms"`
}

// QueryDiaries godoc
// @ID          queryDiaries
// @Summary     Search diaries
// @Description Smart search over title and content: space-separated terms, "quoted phrases", -excluded tokens. mode=or switches positives from AND to OR. Supports date range, bookmark and message filters, and ordering.
// @Tags        Diaries
// @Produce     json
//
// @Param       q                query  string  false  "Search input"
// @Param       mode             query  string  false  "and (default) | or"
// @Param       account_id       query  int     false  "Filter by account"
// @Param       user_id          query  int     false  "Filter by author"
// @Param       date_from        query  string  false  "YYYY-MM-DD inclusive"
// @Param       date_to          query  string  false  "YYYY-MM-DD inclusive"
// @Param       bookmarked       query  bool    false  "Only (un)bookmarked"
// @Param       has_msg          query  bool    false  "Only diaries with messages"
// @Param       matched_only     query  bool    false  "Only active paired partners' diaries"
// @Param       include_inactive query  bool    false  "Include diaries of deactivated accounts"
// @Param       order_by         query  string  false  "ts | created_date | created_at | bookmarked_at | msg_count"
// @Param       order            query  string  false  "desc (default) | asc"
// @Param       page             query  int     false  "Page number"    minimum(1) default(1)
// @Param       page_size        query  int     false  "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.QueryDiariesResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /diaries/query [get]
func (h *Handlers) QueryDiaries(c *gin.Context) {
	started := time.Now()
	page, pageSize := clampPagination(c)

	smart := utils.ParseSmartQuery(c.Query("q"), maxQueryTerms, maxQueryExcludes)

	dateFrom, okFrom := parseDateQuery(c, "date_from")
	dateTo, okTo := parseDateQuery(c, "date_to")
	if !okFrom || !okTo {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date_from/date_to must be YYYY-MM-DD")
		return
	}

	q := repo.DiaryQuery{
		Positive:        smart.Positive(),
		Excludes:        smart.Excludes,
		ModeOr:          strings.EqualFold(c.Query("mode"), "or"),
		AccountID:       uint(utils.AtoiDefault(c.Query("account_id"), 0)),
		UserID:          uint(utils.AtoiDefault(c.Query("user_id"), 0)),
		DateFrom:        dateFrom,
		DateTo:          dateTo,
		Bookmarked:      boolQuery(c, "bookmarked"),
		HasMsg:          boolQuery(c, "has_msg"),
		MatchedOnly:     c.Query("matched_only") == "true",
		IncludeInactive: c.Query("include_inactive") == "true",
		OrderBy:         c.DefaultQuery("order_by", "ts"),
		Asc:             strings.EqualFold(c.Query("order"), "asc"),
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	}

	items, total, err := repo.QueryDiaries(c.Request.Context(), h.db, q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeQueryFailed, err.Error())
		return
	}

	hits := make([]QueryDiaryItem, 0, len(items))
	for _, d := range items {
		hits = append(hits, QueryDiaryItem{
			Diary:   d,
			Preview: utils.BuildMatchSnippet(d.Content, snippetLen, q.Positive),
		})
	}

	ok(c, http.StatusOK, QueryDiariesResponse{
		Diaries:    hits,
		Pagination: paginate(page, pageSize, total),
		TookMS:     time.Since(started).Milliseconds(),
	})
}

// GetDiary godoc
// @ID          getDiary
// @Summary     Get one diary
// @Tags        Diaries
// @Produce     json
//
// @Param       id  path  int  true  "Diary ID"
//
// @Success     200  {object}  domain.Diary
// @Failure     404  {object}  handlers.ErrorResponse "Diary not found"
// @Router      /diaries/{id} [get]
func (h *Handlers) GetDiary(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "diary id must be a positive integer")
		return
	}
	d, err := repo.GetDiary(c.Request.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "diary not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, d)
}

// RefreshDiary godoc
// @ID          refreshDiary
// @Summary     Refresh one diary from the upstream
// @Description Re-pulls the diary via sync payload and detail endpoint and returns the step-by-step trace of what was found and written.
// @Tags        Diaries
// @Produce     json
//
// @Param       id  path  int  true  "Diary ID"
//
// @Success     200  {object}  services.RefreshTrace
// @Failure     404  {object}  handlers.ErrorResponse "Diary not found"
// @Failure     409  {object}  handlers.ErrorResponse "Sync already running"
// @Failure     502  {object}  handlers.ErrorResponse "Refresh failed"
// @Router      /diaries/{id}/refresh [post]
func (h *Handlers) RefreshDiary(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "diary id must be a positive integer")
		return
	}

	trace, err := h.syncSvc.RefreshDiary(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrDiaryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "diary not found")
	case errors.Is(err, services.ErrSyncInProgress):
		fail(c, http.StatusConflict, ErrCodeSyncInProgress, "a sync for this account is in progress")
	case err != nil:
		fail(c, http.StatusBadGateway, ErrCodeRefreshFailed, utils.ErrorSummary(err, 200))
	default:
		ok(c, http.StatusOK, trace)
	}
}

// BookmarkRequest is the JSON payload for setting or clearing a bookmark.
type BookmarkRequest struct {
	Bookmarked bool `json:"bookmarked"`
}

// SetBookmark godoc
// @ID          setBookmark
// @Summary     Bookmark or unbookmark a diary
// @Tags        Diaries
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                       true  "Diary ID"
// @Param       body  body  handlers.BookmarkRequest  true  "Bookmark state"
//
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  handlers.ErrorResponse "Diary not found"
// @Router      /diaries/{id}/bookmark [put]
func (h *Handlers) SetBookmark(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "diary id must be a positive integer")
		return
	}
	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if _, err := repo.GetDiary(c.Request.Context(), h.db, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "diary not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	changed, err := repo.SetBookmark(c.Request.Context(), h.db, id, req.Bookmarked, time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"diary_id": id, "bookmarked": req.Bookmarked, "changed": changed})
}

// BatchBookmarkRequest is the JSON payload for bookmarking many diaries.
type BatchBookmarkRequest struct {
	DiaryIDs   []uint `json:"diary_ids" binding:"required"`
	Bookmarked bool   `json:"bookmarked"`
}

// SetBookmarksBatch godoc
// @ID          setBookmarksBatch
// @Summary     Bookmark or unbookmark many diaries
// @Tags        Diaries
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.BatchBookmarkRequest  true  "Diary ids (max 200) and bookmark state"
//
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /diaries/bookmarks/batch [put]
func (h *Handlers) SetBookmarksBatch(c *gin.Context) {
	var req BatchBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.DiaryIDs) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "diary_ids required")
		return
	}
	if len(req.DiaryIDs) > maxBatchIDs {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at most 200 diary_ids per request")
		return
	}

	changed, err := repo.SetBookmarksBatch(c.Request.Context(), h.db, req.DiaryIDs, req.Bookmarked, time.Now())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"requested": len(req.DiaryIDs), "changed": changed, "bookmarked": req.Bookmarked})
}

// DiaryHistory godoc
// @ID          diaryHistory
// @Summary     List overwrite snapshots of a diary
// @Tags        Diaries
// @Produce     json
//
// @Param       id  path  int  true  "Diary ID"
//
// @Success     200  {array}   domain.DiaryHistory
// @Failure     404  {object}  handlers.ErrorResponse "Diary not found"
// @Router      /diaries/{id}/history [get]
func (h *Handlers) DiaryHistory(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "diary id must be a positive integer")
		return
	}
	if _, err := repo.GetDiary(c.Request.Context(), h.db, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "diary not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	hist, err := repo.ListDiaryHistory(c.Request.Context(), h.db, id, historyLimit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if hist == nil {
		hist = []domain.DiaryHistory{}
	}
	ok(c, http.StatusOK, gin.H{"history": hist})
}

// DiaryImage godoc
// @ID          diaryImage
// @Summary     Serve one referenced image
// @Description Returns the cached blob for an image referenced by the diary's content, fetching it from the upstream on first access. Supports ETag/If-None-Match.
// @Tags        Diaries
// @Produce     image/jpeg
//
// @Param       id        path  int  true  "Diary ID"
// @Param       image_id  path  int  true  "Upstream image ID"
//
// @Success     200  {string}  binary  "Image bytes"
// @Success     304  {string}  string  "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse "Upstream denies access"
// @Failure     404  {object}  handlers.ErrorResponse "Not found"
// @Failure     502  {object}  handlers.ErrorResponse "Upstream fetch failed"
// @Router      /diaries/{id}/images/{image_id} [get]
func (h *Handlers) DiaryImage(c *gin.Context) {
	id, okID := uintParam(c, "id")
	imageID := int64(utils.AtoiDefault(c.Param("image_id"), 0))
	if !okID || imageID <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be positive integers")
		return
	}
	ctx := c.Request.Context()

	d, err := repo.GetDiary(ctx, h.db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "diary not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	acc, err := repo.GetAccount(ctx, h.db, d.AccountID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	author, err := repo.GetUser(ctx, h.db, d.UserID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	img, err := h.imgSvc.EnsureCached(ctx, acc, author.NiderijiUserID, imageID)
	if img == nil && err != nil {
		fail(c, http.StatusBadGateway, ErrCodeImageUnavailable, utils.ErrorSummary(err, 200))
		return
	}
	switch img.FetchStatus {
	case domain.ImageFetchOK:
	case domain.ImageFetchForbidden:
		fail(c, http.StatusForbidden, ErrCodeForbidden, "upstream denies access to this image")
		return
	case domain.ImageFetchNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "image not found upstream")
		return
	default:
		fail(c, http.StatusBadGateway, ErrCodeImageUnavailable, "image fetch failed")
		return
	}

	etag := `"` + img.SHA256 + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, max-age=86400")
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, img.Data)
}
