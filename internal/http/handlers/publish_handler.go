// Publish HTTP handlers.
//
//   - PUT  /publish/draft       (upsert the draft for a date)
//   - GET  /publish/draft       (load the draft for a date)
//   - POST /publish             (write to all active or selected accounts)
//   - GET  /publish/runs        (run history)
//   - GET  /publish/runs/:id    (one run with per-account items)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/http/middleware"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// DraftRequest is the JSON payload for saving a publish draft.
type DraftRequest struct {
	Date    string `json:"date" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// SaveDraft godoc
// @ID          savePublishDraft
// @Summary     Save the publish draft for a date
// @Tags        Publish
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.DraftRequest  true  "Date (YYYY-MM-DD) and content"
//
// @Success     200  {object}  domain.PublishDraft
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /publish/draft [put]
func (h *Handlers) SaveDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date and content required")
		return
	}

	draft, err := h.pubSvc.SaveDraft(c.Request.Context(), req.Date, req.Content)
	switch {
	case errors.Is(err, services.ErrBadDate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
	case errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is empty")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, draft)
	}
}

// GetDraft godoc
// @ID          getPublishDraft
// @Summary     Load the publish draft for a date
// @Tags        Publish
// @Produce     json
//
// @Param       date  query  string  true  "YYYY-MM-DD"
//
// @Success     200  {object}  domain.PublishDraft
// @Failure     404  {object}  handlers.ErrorResponse "No draft for this date"
// @Router      /publish/draft [get]
func (h *Handlers) GetDraft(c *gin.Context) {
	draft, err := h.pubSvc.GetDraft(c.Request.Context(), c.Query("date"))
	switch {
	case errors.Is(err, services.ErrBadDate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
	case errors.Is(err, services.ErrDraftNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no draft for this date")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, draft)
	}
}

// PublishRequest is the JSON payload for publishing. When AccountIDs is
// empty the content goes to every active account. When Content is empty the
// stored draft for the date is published.
type PublishRequest struct {
	Date       string `json:"date" binding:"required"`
	Content    string `json:"content"`
	AccountIDs []uint `json:"account_ids"`
}

// PublishResponse wraps the recorded run, its per-account items, and whether
// the request was an idempotent replay.
type PublishResponse struct {
	Run      *domain.PublishRun      `json:"run"`
	Items    []domain.PublishRunItem `json:"items"`
	Replayed bool                    `json:"replayed"`
}

// Publish godoc
// @ID          publish
// @Summary     Publish content to upstream accounts
// @Description Writes the content (or the stored draft) for the date to the selected accounts, or to every active account when none are named. An Idempotency-Key header makes retries return the recorded run instead of writing again.
// @Tags        Publish
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                   false  "Replay-protection key (max 200 chars)"
// @Param       body             body    handlers.PublishRequest  true   "Publish payload"
//
// @Success     200  {object}  handlers.PublishResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /publish [post]
func (h *Handlers) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date required")
		return
	}
	idemKey, _ := middleware.GetIdempotencyKey(c)
	ctx := c.Request.Context()

	content := req.Content
	if content == "" {
		draft, err := h.pubSvc.GetDraft(ctx, req.Date)
		if err != nil {
			if errors.Is(err, services.ErrDraftNotFound) {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no content given and no draft for this date")
				return
			}
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, utils.ErrorSummary(err, 200))
			return
		}
		content = draft.Content
	}

	accountIDs := req.AccountIDs
	if len(accountIDs) == 0 {
		accounts, err := repo.ListAccounts(ctx, h.db, true)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		for _, a := range accounts {
			accountIDs = append(accountIDs, a.ID)
		}
	}

	run, items, replayed, err := h.pubSvc.Publish(ctx, req.Date, content, accountIDs, idemKey)
	switch {
	case errors.Is(err, services.ErrBadDate):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
	case errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is empty")
	case errors.Is(err, services.ErrNoTargets):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no active accounts to publish to")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodePublishFailed, err.Error())
	default:
		if items == nil {
			items = []domain.PublishRunItem{}
		}
		ok(c, http.StatusOK, PublishResponse{Run: run, Items: items, Replayed: replayed})
	}
}

// ListPublishRuns godoc
// @ID          listPublishRuns
// @Summary     List publish runs
// @Tags        Publish
// @Produce     json
//
// @Param       limit  query  int  false  "Max rows"  default(50)
//
// @Success     200  {array}   domain.PublishRun
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /publish/runs [get]
func (h *Handlers) ListPublishRuns(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	runs, err := h.pubSvc.ListRuns(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if runs == nil {
		runs = []domain.PublishRun{}
	}
	ok(c, http.StatusOK, gin.H{"runs": runs})
}

// GetPublishRun godoc
// @ID          getPublishRun
// @Summary     Get one publish run with its items
// @Tags        Publish
// @Produce     json
//
// @Param       id  path  int  true  "Run ID"
//
// @Success     200  {object}  handlers.PublishResponse
// @Failure     404  {object}  handlers.ErrorResponse "Run not found"
// @Router      /publish/runs/{id} [get]
func (h *Handlers) GetPublishRun(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "run id must be a positive integer")
		return
	}
	run, items, err := h.pubSvc.GetRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "publish run not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if items == nil {
		items = []domain.PublishRunItem{}
	}
	ok(c, http.StatusOK, PublishResponse{Run: run, Items: items})
}
