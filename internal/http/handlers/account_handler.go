// Account HTTP handlers.
//
//   - GET   /accounts                      (list)
//   - POST  /accounts                      (register with token or credentials)
//   - PUT   /accounts/:id/active           (activate/deactivate)
//   - PUT   /accounts/:id/credentials      (store email/password for re-login)
//   - GET   /accounts/:id/token-status     (local JWT exp inspection)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/services"
	"github.com/yournote/go-diary-backend/internal/upstream"
	"github.com/yournote/go-diary-backend/internal/utils"
)

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts
// @Tags        Accounts
// @Produce     json
//
// @Param       active_only  query  bool  false  "Only active accounts"
//
// @Success     200  {array}   domain.Account
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	accounts, err := repo.ListAccounts(c.Request.Context(), h.db, c.Query("active_only") == "true")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	ok(c, http.StatusOK, gin.H{"accounts": accounts})
}

// RegisterAccountRequest is the JSON payload for adding an account. Either a
// ready token or an email/password pair must be supplied.
type RegisterAccountRequest struct {
	AuthToken string `json:"auth_token"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegisterAccount godoc
// @ID          registerAccount
// @Summary     Register an account
// @Description Adds an upstream credential set. With email/password the upstream login runs first; the token is then validated with one sync call. Re-registering an existing upstream user updates it in place.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterAccountRequest  true  "Token or credentials"
//
// @Success     201  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse "Upstream rejected the credentials"
// @Router      /accounts [post]
func (h *Handlers) RegisterAccount(c *gin.Context) {
	var req RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.AuthToken) == "" && (req.Email == "" || req.Password == "") {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "auth_token or email+password required")
		return
	}

	acc, err := h.syncSvc.RegisterAccount(c.Request.Context(), req.AuthToken, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrNoCredentials) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "auth_token or email+password required")
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeUnauthorized, utils.ErrorSummary(err, 200))
		return
	}
	ok(c, http.StatusCreated, acc)
}

// SetAccountActiveRequest is the JSON payload for toggling an account.
type SetAccountActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetAccountActive godoc
// @ID          setAccountActive
// @Summary     Activate or deactivate an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                                true  "Account ID"
// @Param       body  body  handlers.SetAccountActiveRequest   true  "Active state"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{id}/active [put]
func (h *Handlers) SetAccountActive(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a positive integer")
		return
	}
	var req SetAccountActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "active (boolean) required")
		return
	}

	if err := repo.SetAccountActive(c.Request.Context(), h.db, id, *req.Active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// UpdateCredentialsRequest is the JSON payload for storing login credentials.
type UpdateCredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateAccountCredentials godoc
// @ID          updateAccountCredentials
// @Summary     Store re-login credentials for an account
// @Description Saves the email/password pair used for automatic re-login when the stored token expires.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       id    path  int                                  true  "Account ID"
// @Param       body  body  handlers.UpdateCredentialsRequest    true  "Credentials"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{id}/credentials [put]
func (h *Handlers) UpdateAccountCredentials(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a positive integer")
		return
	}
	var req UpdateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}

	if err := repo.UpdateAccountCredentials(c.Request.Context(), h.db, id, req.Email, req.Password); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// AccountTokenStatus godoc
// @ID          accountTokenStatus
// @Summary     Inspect the stored token
// @Description Decodes the stored JWT payload locally (no signature check) and reports its expiry state.
// @Tags        Accounts
// @Produce     json
//
// @Param       id  path  int  true  "Account ID"
//
// @Success     200  {object}  upstream.TokenStatus
// @Failure     404  {object}  handlers.ErrorResponse "Account not found"
// @Router      /accounts/{id}/token-status [get]
func (h *Handlers) AccountTokenStatus(c *gin.Context) {
	id, okID := uintParam(c, "id")
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a positive integer")
		return
	}
	acc, err := repo.GetAccount(c.Request.Context(), h.db, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, upstream.GetTokenStatus(acc.AuthToken))
}
