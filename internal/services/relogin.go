package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yournote/go-diary-backend/internal/domain"
	"github.com/yournote/go-diary-backend/internal/repo"
	"github.com/yournote/go-diary-backend/internal/upstream"
)

// Authenticator is the slice of the upstream client that the token lifecycle
// needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// withAutoRelogin runs fn with the account's current token and, when the
// upstream rejects it with 401/403 and the account stores credentials,
// performs exactly one re-login, persists the fresh token, and retries fn
// exactly once. Every other error passes through unchanged.
func withAutoRelogin(ctx context.Context, db *gorm.DB, auth Authenticator, acc *domain.Account, fn func(token string) error) error {
	err := fn(acc.AuthToken)
	if !upstream.IsUnauthorized(err) {
		return err
	}
	if acc.Email == "" || acc.LoginPassword == "" {
		return ErrNoCredentials
	}

	log.Info().
		Uint("account_id", acc.ID).
		Int64("nideriji_userid", acc.NiderijiUserID).
		Msg("token rejected, re-logging in")

	token, lerr := auth.Login(ctx, acc.Email, acc.LoginPassword)
	if lerr != nil {
		return lerr
	}
	if uerr := repo.UpdateAccountToken(ctx, db, acc.ID, token); uerr != nil {
		return uerr
	}
	acc.AuthToken = token
	return fn(token)
}
