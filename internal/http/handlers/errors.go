package handlers

// Stable, machine-readable error codes carried in ErrorResponse.Code.
// Clients branch on these; messages are for humans.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeStatsFailed = "stats_failed"
)
