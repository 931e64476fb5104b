package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
)

// MarkReadResponse lists the messages this call marked read.
type MarkReadResponse struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

// MarkRead godoc
// @ID          markConversationRead
// @Summary     Mark a conversation read
// @Description Marks every message the caller neither sent nor already read. Each original sender receives one message-read event per message. Returns 204 when nothing was unread.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Conversation ID"  format(uuid)
//
// @Success     200  {object}  handlers.MarkReadResponse
// @Success     204  {string}  string  "Nothing to mark"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/read [post]
func (h *Handlers) MarkRead(c *gin.Context) {
	convID := c.Param("id")
	ids, err := h.reads.MarkRead(c.Request.Context(), middleware.UserID(c), nil, realtime.MarkRead{ConversationID: convID})
	if err != nil {
		failService(c, err, ErrCodeReadFailed, "failed to mark messages as read")
		return
	}
	if len(ids) == 0 {
		noContent(c)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{ConversationID: convID, MessageIDs: ids})
}
