// Package services – ConversationService
//
// ConversationService backs the REST surface: it opens conversations between
// marketplace users and serves paginated message history to participants.
// Service-level errors (ErrTooFewParticipants, ErrNotParticipant, ...) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
	"github.com/cbanluta2700/agrismart--sub002/internal/utils"
)

const (
	maxUserIDLen    = 64
	maxContextIDLen = 64
)

// ConversationService provides conversation-level operations.
type ConversationService struct {
	DB    *gorm.DB
	Authz *Authorizer
	Sync  *Synchronizer
}

// Create opens a conversation between creatorID and participantIDs. The
// creator is always a member and duplicate ids collapse. productID and
// orderID are optional marketplace context; blank values are dropped.
// Every member that is online receives a refreshed conversation list.
func (s *ConversationService) Create(ctx context.Context, creatorID string, participantIDs []string, productID, orderID *string) (*domain.Conversation, error) {
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", creatorID),
			attribute.Int("participants", len(participantIDs)),
		),
	)
	defer span.End()

	members := make([]string, 0, len(participantIDs)+1)
	for _, id := range append([]string{creatorID}, participantIDs...) {
		id = strings.TrimSpace(id)
		if id == "" || utf8.RuneCountInString(id) > maxUserIDLen {
			return nil, ErrInvalidParticipant
		}
		members = append(members, id)
	}
	members = lo.Uniq(members)
	if len(members) < 2 {
		return nil, ErrTooFewParticipants
	}

	var conv *domain.Conversation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.EnsureUsers(ctx, tx, members); err != nil {
			return err
		}
		c, err := repo.CreateConversation(ctx, tx, members, optionalID(productID), optionalID(orderID))
		if err != nil {
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	s.Sync.Refresh(ctx, members...)
	return conv, nil
}

// ListMessages returns a page of a conversation's history, oldest first, in
// the same shape as new-message events. page and pageSize fall back to 1 and
// 20 when invalid. Non-participants get ErrNotParticipant.
func (s *ConversationService) ListMessages(ctx context.Context, userID, conversationID string, page, pageSize int) ([]realtime.NewMessage, int64, error) {
	ctx, span := otel.Tracer("services/ConversationService").Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page = min(max(page, 1), utils.MaxPage)
	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	pageSize = min(pageSize, utils.MaxPageSize)
	offset := utils.Page{Number: page, Size: pageSize}.Offset()

	conv, err := s.Authz.Authorize(ctx, conversationID, userID)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.CountMessages(ctx, s.DB, conv.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []realtime.NewMessage{}, 0, nil
	}

	msgs, err := repo.ListMessagesPage(ctx, s.DB, conv.ID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	ids := lo.Map(msgs, func(m domain.Message, _ int) string { return m.ID })
	read, err := repo.ReadMessageIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, err
	}
	senders := lo.Uniq(lo.Map(msgs, func(m domain.Message, _ int) string { return m.SenderID }))
	names, err := repo.DisplayNames(ctx, s.DB, senders)
	if err != nil {
		return nil, 0, err
	}

	out := make([]realtime.NewMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, realtime.NewMessage{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			SenderName:     displayName(names, m.SenderID),
			Content:        m.Content,
			Timestamp:      m.CreatedAt,
			Read:           read[m.ID],
		})
	}
	return out, total, nil
}

// optionalID trims and clips an optional identifier; blank becomes nil.
func optionalID(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	if utf8.RuneCountInString(v) > maxContextIDLen {
		v = string([]rune(v)[:maxContextIDLen])
	}
	return &v
}
