// Message HTTP handlers.
//
// This file exposes REST endpoints for conversation messages:
//   - POST /conversations/{id}/messages   (send through the relay)
//   - GET  /conversations/{id}/messages   (paginated history)
//
// A REST send behaves like a websocket send-message without an originating
// connection: participants' live connections receive the new-message event
// and refreshed conversation lists, and the HTTP response plays the part of
// the acknowledgment.
//
// Idempotency:
// The Idempotency-Key header is used as the message tempId. A retried post
// with the same key and content is answered with the stored message, 200 and
// `Idempotency-Replayed: true`, and nothing is fanned out again. The same key
// with other content is a 409.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
)

// PostMessageRequest is the JSON payload for sending a message.
type PostMessageRequest struct {
	// Content is the message body. It must be non-empty after trimming.
	Content string `json:"content" binding:"required,min=1" example:"Is the organic rice still available?"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []realtime.NewMessage `json:"messages"`
	Pagination Pagination            `json:"pagination"`
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message
// @Description Persists a message and pushes it to every participant's live connections.
// @Description Supports idempotency via the Idempotency-Key header (same key and content → same message).
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false  "Idempotency key, used as the message tempId"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true   "Conversation ID"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message payload"
//
// @Success     201  {object}  realtime.NewMessage  "Stored message"
// @Success     200  {object}  realtime.NewMessage  "Replayed message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Idempotency key reused for other content"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	msg, err := h.relay.Send(c.Request.Context(), middleware.UserID(c), nil, realtime.SendMessage{
		ConversationID: c.Param("id"),
		Content:        req.Content,
		TempID:         key,
	})
	if err != nil {
		failService(c, err, ErrCodeSendFailed, "failed to send message")
		return
	}

	if middleware.IsReplay(c) {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, msg)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a page of the conversation history, oldest first. Only participants may read it.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id         path   string  true   "Conversation ID"  format(uuid)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListMessagesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	p := pageFromQuery(c)

	items, total, err := h.convSvc.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"), p.Number, p.Size)
	if err != nil {
		failService(c, err, ErrCodeListFailed, "failed to list messages")
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(p, total),
	})
}
