package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

// Authorizer decides whether a user may act on a conversation. Every call
// hits the database; membership is never cached.
type Authorizer struct {
	DB *gorm.DB
}

// Authorize returns the conversation, with its participants loaded, when
// userID is one of them. A missing conversation and a foreign one both yield
// ErrNotParticipant.
func (a *Authorizer) Authorize(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	ctx, span := otel.Tracer("services/Authorizer").Start(ctx, "Authorize",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrMissingConversation
	}
	if userID == "" {
		return nil, ErrNotParticipant
	}
	conv, err := repo.GetConversationForParticipant(ctx, a.DB, conversationID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return conv, nil
}

func participantIDs(c *domain.Conversation) []string {
	out := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		out = append(out, p.UserID)
	}
	return out
}
