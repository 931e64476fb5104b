// Package services – ReadService
//
// ReadService implements the read-receipt tracker. Marking a conversation
// read stores one marker per unread message and tells each original sender,
// message by message, who read it.
package services

import (
	"context"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

// ReadService tracks read receipts.
type ReadService struct {
	DB       *gorm.DB
	Registry *realtime.Registry
	Authz    *Authorizer
	Sync     *Synchronizer
}

// MarkRead marks every message of in.ConversationID that readerID neither
// sent nor already read. It returns the ids that were newly marked, oldest
// first.
//
// Nothing to mark is a silent no-op: no events and no list refresh. When two
// calls race, each message is reported by exactly one of them. Receipts go
// only to the original senders, never back to the reader.
//
// On failure origin (when non-nil) receives one error event.
func (s *ReadService) MarkRead(ctx context.Context, readerID string, origin realtime.Conn, in realtime.MarkRead) ([]string, error) {
	ctx, span := otel.Tracer("services/ReadService").Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("conversation.id", in.ConversationID),
			attribute.String("user.id", readerID),
		),
	)
	defer span.End()

	ids, err := s.markRead(ctx, readerID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if origin != nil {
			s.Registry.Deliver(origin, realtime.ErrorEvent{Message: PublicMessage(err, "failed to mark messages as read")})
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("marked", len(ids)))
	return ids, nil
}

func (s *ReadService) markRead(ctx context.Context, readerID string, in realtime.MarkRead) ([]string, error) {
	conv, err := s.Authz.Authorize(ctx, in.ConversationID, readerID)
	if err != nil {
		return nil, err
	}
	unread, err := repo.ListUnreadMessages(ctx, s.DB, conv.ID, readerID)
	if err != nil {
		return nil, err
	}
	if len(unread) == 0 {
		return nil, nil
	}

	ids := lo.Map(unread, func(m domain.Message, _ int) string { return m.ID })
	inserted, err := repo.CreateReadMarkers(ctx, s.DB, conv.ID, readerID, ids)
	if err != nil {
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, nil
	}

	fresh := lo.Filter(unread, func(m domain.Message, _ int) bool { return lo.Contains(inserted, m.ID) })
	for sender, msgs := range lo.GroupBy(fresh, func(m domain.Message) string { return m.SenderID }) {
		for _, m := range msgs {
			s.Registry.Push(sender, realtime.MessageRead{
				ConversationID: conv.ID,
				MessageID:      m.ID,
				ReadBy:         readerID,
			}, "")
		}
	}

	s.Sync.Refresh(ctx, participantIDs(conv)...)
	return inserted, nil
}
