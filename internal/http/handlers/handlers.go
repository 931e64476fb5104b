// Package handlers exposes the REST surface and the websocket endpoint of the
// chat relay.
//
// Handlers are transport-thin: they validate input, call application services
// and translate results into HTTP responses (including conditional responses).
// Every route expects middleware.RequireIdentity to have admitted the caller.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/utils"
)

//
// Service contracts (context-aware)
//

// ConversationService opens conversations and serves their history.
type ConversationService interface {
	// Create opens a conversation between creatorID and participantIDs.
	Create(ctx context.Context, creatorID string, participantIDs []string, productID, orderID *string) (*domain.Conversation, error)
	// ListMessages returns a page of history and the total count.
	ListMessages(ctx context.Context, userID, conversationID string, page, pageSize int) ([]realtime.NewMessage, int64, error)
}

// ListService builds a user's ordered conversation list.
type ListService interface {
	Summaries(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
}

// MessageRelay persists and fans out one message. origin is nil for REST.
type MessageRelay interface {
	Send(ctx context.Context, senderID string, origin realtime.Conn, in realtime.SendMessage) (realtime.NewMessage, error)
}

// ReadTracker marks a conversation read and notifies senders.
type ReadTracker interface {
	MarkRead(ctx context.Context, readerID string, origin realtime.Conn, in realtime.MarkRead) ([]string, error)
}

// UserService stores display names.
type UserService interface {
	SetDisplayName(ctx context.Context, userID, name string) (*domain.User, error)
}

// TokenIssuer mints bearer tokens for the development token endpoint.
type TokenIssuer interface {
	IssueToken(userID, name string, ttl time.Duration) (string, time.Time, error)
}

//
// Handler wiring
//

// Deps lists the services the REST handlers call. Tokens may be nil, in which
// case IssueToken answers 404.
type Deps struct {
	Conversations ConversationService
	Lists         ListService
	Relay         MessageRelay
	Reads         ReadTracker
	Users         UserService
	Tokens        TokenIssuer
	TokenTTL      time.Duration
}

// Handlers groups the REST endpoints for conversations, messages, read
// receipts and users.
type Handlers struct {
	convSvc  ConversationService
	listSvc  ListService
	relay    MessageRelay
	reads    ReadTracker
	userSvc  UserService
	tokens   TokenIssuer
	tokenTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handlers{
		convSvc:  d.Conversations,
		listSvc:  d.Lists,
		relay:    d.Relay,
		reads:    d.Reads,
		userSvc:  d.Users,
		tokens:   d.Tokens,
		tokenTTL: ttl,
	}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(p utils.Page, total int64) Pagination {
	totalPages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return Pagination{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Number < totalPages,
	}
}

// pageFromQuery reads page and page_size and bounds them.
func pageFromQuery(c *gin.Context) utils.Page {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"))
}
