// Response helpers shared by the REST handlers.
//
// Every failure leaves the API as an ErrorResponse carrying a stable code
// and the request id, whether it comes from binding, a service error or
// the router fallbacks. Successful calls write the resource itself, with
// no envelope, so a REST send returns the same new-message shape a
// websocket client receives.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "conversation not found"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/services"
)

// ErrorResponse is the error envelope for every REST failure and for a
// rejected websocket handshake.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged with the
// caller's user id.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("user_id", middleware.UserID(c)).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// failService maps a service error onto the envelope. Known service errors
// keep their public text: missing or foreign conversations become 404,
// an idempotency key reused for other content 409, and validation failures
// 400. Anything else is logged with its cause and
// answered with 500, code and the generic fallback text.
func failService(c *gin.Context, err error, code, fallback string) {
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, services.PublicMessage(err, fallback))
	case errors.Is(err, services.ErrTempIDReused):
		fail(c, http.StatusConflict, ErrCodeConflict, services.PublicMessage(err, fallback))
	case errors.Is(err, services.ErrMissingConversation),
		errors.Is(err, services.ErrTooFewParticipants),
		errors.Is(err, services.ErrInvalidParticipant),
		errors.Is(err, services.ErrEmptyContent),
		errors.Is(err, services.ErrContentTooLong),
		errors.Is(err, services.ErrInvalidTempID),
		errors.Is(err, services.ErrEmptyDisplayName):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, services.PublicMessage(err, fallback))
	default:
		middleware.LoggerFrom(c).Error().Err(err).Str("code", code).Msg("service call failed")
		fail(c, http.StatusInternalServerError, code, fallback)
	}
}

// Fail lets the router fallbacks answer with the same envelope.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent answers 204, e.g. a mark-read that found nothing unread.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
