package handlers

// Stable error codes returned in the ErrorResponse envelope. The first group
// mirrors plain HTTP semantics; the second group names domain outcomes a
// status code alone cannot distinguish, such as an upstream sync failing
// versus one already running.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeSyncFailed       = "sync_failed"
	ErrCodeSyncInProgress   = "sync_in_progress"
	ErrCodeRefreshFailed    = "refresh_failed"
	ErrCodePublishFailed    = "publish_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeQueryFailed      = "query_failed"
	ErrCodeImageUnavailable = "image_unavailable"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
