package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
)

// RegisterAccount adds or refreshes an upstream credential set. Callers pass
// either a ready token or an email/password pair (which is logged in first).
// The token is validated with one sync call, which also yields the upstream
// user id the account is keyed by; re-registering an existing upstream user
// updates its token and credentials and reactivates the row.
func (s *SyncService) RegisterAccount(ctx context.Context, token, email, password string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		if email == "" || password == "" {
			return nil, ErrNoCredentials
		}
		t, err := s.Upstream.Login(ctx, email, password)
		if err != nil {
			return nil, errors.Wrap(err, "login with provided credentials")
		}
		token = t
	}

	payload, err := s.Upstream.SyncAll(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "validate token against upstream")
	}
	upstreamID := payload.UserConfig.UserID

	existing, err := repo.GetAccountByUpstreamID(ctx, s.DB, upstreamID)
	switch {
	case err == nil:
		updates := map[string]any{"auth_token": token, "is_active": true}
		if email != "" {
			updates["email"] = email
		}
		if password != "" {
			updates["login_password"] = password
		}
		if uerr := s.DB.WithContext(ctx).Model(&domain.Account{}).
			Where("id = ?", existing.ID).Updates(updates).Error; uerr != nil {
			return nil, uerr
		}
		return repo.GetAccount(ctx, s.DB, existing.ID)
	case errors.Is(err, repo.ErrNotFound):
		acc := &domain.Account{
			NiderijiUserID: upstreamID,
			AuthToken:      token,
			Email:          email,
			LoginPassword:  password,
			IsActive:       true,
		}
		if cerr := repo.CreateAccount(ctx, s.DB, acc); cerr != nil {
			return nil, cerr
		}
		return acc, nil
	default:
		return nil, err
	}
}
