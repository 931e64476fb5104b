// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST /conversations   (open a conversation)
//   - GET  /conversations   (ordered conversation list, ETag support)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
	"github.com/cbanluta2700/agrismart--sub002/internal/services"
)

// CreateConversationRequest is the JSON payload for opening a conversation.
// The caller is always added as a participant.
type CreateConversationRequest struct {
	// ParticipantIDs are the other members (at least one).
	ParticipantIDs []string `json:"participantIds" binding:"required,min=1" example:"seller-42"`
	// ProductID optionally ties the conversation to a listing.
	ProductID *string `json:"productId,omitempty" example:"prod-981"`
	// OrderID optionally ties the conversation to an order.
	OrderID *string `json:"orderId,omitempty" example:"order-77"`
}

// ListConversationsResponse is the caller's conversation list, newest
// activity first.
type ListConversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// CreateConversation godoc
// @ID          createConversation
// @Summary     Open a conversation
// @Description Opens a conversation between the caller and the given participants. Online members receive a refreshed conversation list.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateConversationRequest  true  "Participants and optional marketplace context"
//
// @Success     201  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [post]
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "participantIds required")
		return
	}

	conv, err := h.convSvc.Create(c.Request.Context(), middleware.UserID(c), req.ParticipantIDs, req.ProductID, req.OrderID)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed, "failed to create conversation")
		return
	}
	ok(c, http.StatusCreated, conv)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations
// @Description Returns every conversation of the caller with its last message, unread count and participant names, ordered by latest activity. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"conversations:u1:3:1700000000000000000:5\")
//
// @Success     200  {object}  handlers.ListConversationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)

	// ETag pre-check (best effort).
	if svc, isSync := h.listSvc.(*services.Synchronizer); isSync && svc.DB != nil {
		count, maxTS, reads, err := repo.ConversationsStats(ctx, svc.DB, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d:%d"`, uid, count, ts, reads)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	list, err := h.listSvc.Summaries(ctx, uid)
	if err != nil {
		failService(c, err, ErrCodeListFailed, "failed to list conversations")
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: list})
}
