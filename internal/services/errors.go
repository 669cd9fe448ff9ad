// Package services implements the business logic of the diary aggregator:
// sync orchestration, reconciliation, the msg-count ledger, pairing, single
// diary refresh, publishing, and image caching. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrAccountNotFound indicates that the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDiaryNotFound indicates that the requested diary does not exist.
	ErrDiaryNotFound = errors.New("diary not found")

	// ErrSyncInProgress is returned when a sync is requested for an account
	// that already has one running in this process.
	ErrSyncInProgress = errors.New("sync already in progress for this account")

	// ErrNoCredentials is returned when a token has expired and the account
	// has no stored email/password pair to re-login with.
	ErrNoCredentials = errors.New("token rejected and no stored credentials to re-login")

	// ErrBadDate is returned when a date string is not strict YYYY-MM-DD.
	ErrBadDate = errors.New("date must be YYYY-MM-DD")

	// ErrEmptyContent is returned when a publish or draft request carries
	// no content.
	ErrEmptyContent = errors.New("content is empty")

	// ErrDraftNotFound indicates that no draft exists for the requested date.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrNoTargets is returned when a publish request names no accounts.
	ErrNoTargets = errors.New("no target accounts")

	// ErrRunNotFound indicates that the requested publish run does not exist.
	ErrRunNotFound = errors.New("publish run not found")
)
