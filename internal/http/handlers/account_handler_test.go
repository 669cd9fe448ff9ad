package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/services"
)

func TestListAccounts_ActiveOnlyFilter(t *testing.T) {
	r, deps := newTestRouter(t)
	seedTestAccount(t, deps.db, 100)
	inactive := seedTestAccount(t, deps.db, 200)
	if err := deps.db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/accounts?active_only=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"nideriji_userid":100`) || strings.Contains(body, `"nideriji_userid":200`) {
		t.Fatalf("expected only active account, got %s", body)
	}
}

func TestRegisterAccount_RequiresTokenOrCredentials(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/accounts", `{"email":"a@example.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without password, got %d", w.Code)
	}

	w2 := doJSON(t, r, http.MethodPost, "/api/accounts", `{}`)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w2.Code)
	}
}

func TestRegisterAccount_CreatedAndUpstreamFailure(t *testing.T) {
	r, deps := newTestRouter(t)
	deps.sync.account = &domain.Account{ID: 4, NiderijiUserID: 100, IsActive: true}

	w := doJSON(t, r, http.MethodPost, "/api/accounts", `{"auth_token":"tok"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"nideriji_userid":100`) {
		t.Fatalf("expected account body, got %s", w.Body.String())
	}

	deps.sync.account = nil
	deps.sync.registerErr = fmt.Errorf("login rejected")
	w2 := doJSON(t, r, http.MethodPost, "/api/accounts", `{"auth_token":"tok"}`)
	if w2.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for upstream rejection, got %d", w2.Code)
	}

	deps.sync.registerErr = services.ErrNoCredentials
	w3 := doJSON(t, r, http.MethodPost, "/api/accounts", `{"auth_token":"tok"}`)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credentials, got %d", w3.Code)
	}
}

func TestSetAccountActive_TogglesRow(t *testing.T) {
	r, deps := newTestRouter(t)
	acc := seedTestAccount(t, deps.db, 100)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/accounts/%d/active", acc.ID), `{"active":false}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	var got domain.Account
	if err := deps.db.First(&got, acc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.IsActive {
		t.Fatalf("account should be inactive")
	}

	w2 := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/accounts/%d/active", acc.ID), `{}`)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when active missing, got %d", w2.Code)
	}

	w3 := doJSON(t, r, http.MethodPut, "/api/accounts/9999/active", `{"active":true}`)
	if w3.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", w3.Code)
	}
}

func TestUpdateAccountCredentials_Persists(t *testing.T) {
	r, deps := newTestRouter(t)
	acc := seedTestAccount(t, deps.db, 100)

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/accounts/%d/credentials", acc.ID),
		`{"email":"new@example.com","password":"pw"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	var got domain.Account
	if err := deps.db.First(&got, acc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Email != "new@example.com" || got.LoginPassword != "pw" {
		t.Fatalf("credentials not stored: %+v", got)
	}

	w2 := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/accounts/%d/credentials", acc.ID), `{"email":"x"}`)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without password, got %d", w2.Code)
	}
}

func TestAccountTokenStatus_ReportsExpiredToken(t *testing.T) {
	r, deps := newTestRouter(t)
	acc := seedTestAccount(t, deps.db, 100)

	// JWT whose exp claim (1000000000 = 2001-09-09) is long past.
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"exp":1000000000}`))
	expired := "token h." + payload + ".s"
	if err := deps.db.Model(acc).Update("auth_token", expired).Error; err != nil {
		t.Fatalf("update token: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/accounts/%d/token-status", acc.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"is_valid":false`) || !strings.Contains(w.Body.String(), `"expired":true`) {
		t.Fatalf("expected expired token report, got %s", w.Body.String())
	}

	w2 := doJSON(t, r, http.MethodGet, "/api/accounts/9999/token-status", "")
	if w2.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w2.Code)
	}
}
