// Error codes carried in ErrorResponse.Code.
//
// Generic codes mirror the HTTP status. The *_failed codes name the
// operation that hit an unexpected server error, so clients can tell a
// failed send from a failed list without parsing the message.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"   // written by the rate limiter
	ErrCodeInternal         = "internal_error" // written by Recovery

	// Per operation (5xx):
	ErrCodeCreateFailed = "create_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeSendFailed   = "send_failed"
	ErrCodeReadFailed   = "read_failed"
	ErrCodeUpdateFailed = "update_failed"
)
