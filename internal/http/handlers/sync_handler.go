// Sync HTTP handlers.
//
//   - POST /sync/trigger/:account_id  (run one account sync now)
//   - POST /sync/trigger              (sweep all active accounts)
//   - GET  /sync/logs                 (history, optionally per account)
//   - GET  /sync/logs/latest          (latest log per account)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// TriggerSync godoc
// @ID          triggerSync
// @Summary     Sync one account now
// @Description Runs a full sync for the account and returns the finalized sync log.
// @Tags        Sync
// @Produce     json
//
// @Param       account_id  path  int  true  "Account ID"
//
// @Success     200  {object}  domain.SyncLog
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Failure     409  {object}  handlers.ErrorResponse "Sync already running"
// @Failure     502  {object}  handlers.ErrorResponse "Sync failed"
// @Router      /sync/trigger/{account_id} [post]
func (h *Handlers) TriggerSync(c *gin.Context) {
	accountID, okID := uintParam(c, "account_id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id must be a positive integer")
		return
	}

	slog, err := h.syncSvc.SyncAccount(c.Request.Context(), accountID)
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	case errors.Is(err, services.ErrSyncInProgress):
		fail(c, http.StatusConflict, ErrCodeSyncInProgress, "sync already in progress for this account")
	case err != nil:
		// The finalized log row (with the failure summary) is still returned
		// in the message for operator visibility.
		fail(c, http.StatusBadGateway, ErrCodeSyncFailed, utils.ErrorSummary(err, 200))
	default:
		ok(c, http.StatusOK, slog)
	}
}

// TriggerSyncAll godoc
// @ID          triggerSyncAll
// @Summary     Sync all active accounts now
// @Tags        Sync
// @Produce     json
//
// @Success     200  {array}   services.AccountSyncResult
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /sync/trigger [post]
func (h *Handlers) TriggerSyncAll(c *gin.Context) {
	results, err := h.syncSvc.SyncAllAccounts(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSyncFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"results": results})
}

// ListSyncLogs godoc
// @ID          listSyncLogs
// @Summary     List sync logs
// @Description Returns recent sync logs, newest first, optionally for one account.
// @Tags        Sync
// @Produce     json
//
// @Param       account_id  query  int  false  "Filter by account"
// @Param       limit       query  int  false  "Max rows"  default(50)
//
// @Success     200  {array}   domain.SyncLog
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /sync/logs [get]
func (h *Handlers) ListSyncLogs(c *gin.Context) {
	accountID := uint(utils.AtoiDefault(c.Query("account_id"), 0))
	limit := utils.AtoiDefault(c.Query("limit"), 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := repo.ListSyncLogs(c.Request.Context(), h.db, accountID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if logs == nil {
		logs = []domain.SyncLog{}
	}
	ok(c, http.StatusOK, gin.H{"logs": logs})
}

// LatestSyncLogs godoc
// @ID          latestSyncLogs
// @Summary     Latest sync log per account
// @Tags        Sync
// @Produce     json
//
// @Success     200  {array}   domain.SyncLog
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /sync/logs/latest [get]
func (h *Handlers) LatestSyncLogs(c *gin.Context) {
	logs, err := repo.LatestSyncLogs(c.Request.Context(), h.db, 0, 200)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if logs == nil {
		logs = []domain.SyncLog{}
	}
	ok(c, http.StatusOK, gin.H{"logs": logs})
}
