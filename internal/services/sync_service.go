// Package services – Synchronizer
//
// The Synchronizer owns the conversation list read model. After any change
// that can alter a user's list (a new message, a read, a new conversation)
// the acting service calls Refresh for every affected user; each online user
// receives the whole list again, newest activity first.
package services

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

// Synchronizer builds conversation summaries and pushes them to live
// connections.
type Synchronizer struct {
	DB       *gorm.DB
	Registry *realtime.Registry

	log zerolog.Logger
}

// NewSynchronizer wires a Synchronizer to the database and the registry.
func NewSynchronizer(db *gorm.DB, reg *realtime.Registry) *Synchronizer {
	return &Synchronizer{
		DB:       db,
		Registry: reg,
		log:      log.With().Str("component", "sync").Logger(),
	}
}

// Summaries returns every conversation userID participates in, annotated with
// its last message, the viewer's unread count and participant display names,
// ordered by UpdatedAt descending then ID ascending. A user without
// conversations gets an empty, non-nil slice.
func (s *Synchronizer) Summaries(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	ctx, span := otel.Tracer("services/Synchronizer").Start(ctx, "Summaries",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	convs, err := repo.ListConversationsForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return []domain.ConversationSummary{}, nil
	}

	ids := lo.Map(convs, func(c domain.Conversation, _ int) string { return c.ID })
	last, err := repo.LastMessages(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	unread, err := repo.UnreadCounts(ctx, s.DB, userID, ids)
	if err != nil {
		return nil, err
	}
	members := lo.Uniq(lo.FlatMap(convs, func(c domain.Conversation, _ int) []string {
		return participantIDs(&c)
	}))
	names, err := repo.DisplayNames(ctx, s.DB, members)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		sum := domain.ConversationSummary{
			ID:           c.ID,
			ProductID:    c.ProductID,
			OrderID:      c.OrderID,
			Participants: make([]domain.ParticipantInfo, 0, len(c.Participants)),
			UnreadCount:  unread[c.ID],
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
		}
		for _, p := range c.Participants {
			sum.Participants = append(sum.Participants, domain.ParticipantInfo{
				ID:          p.UserID,
				DisplayName: displayName(names, p.UserID),
			})
		}
		if m, ok := last[c.ID]; ok {
			sum.LastMessage = &domain.LastMessage{
				ID:        m.ID,
				SenderID:  m.SenderID,
				Content:   m.Content,
				Timestamp: m.CreatedAt,
			}
		}
		out = append(out, sum)
	}
	sortSummaries(out)
	span.SetAttributes(attribute.Int("conversations", len(out)))
	return out, nil
}

// Refresh pushes a fresh conversation-list-update to every connection of each
// listed user. Offline users are skipped, as are users whose list could not
// be built; the failure is logged and the remaining users still refresh.
// It returns the number of users that received a list.
func (s *Synchronizer) Refresh(ctx context.Context, userIDs ...string) int {
	ctx, span := otel.Tracer("services/Synchronizer").Start(ctx, "Refresh",
		trace.WithAttributes(attribute.Int("users", len(userIDs))),
	)
	defer span.End()

	pushed := 0
	for _, uid := range lo.Uniq(userIDs) {
		if !s.Registry.Online(uid) {
			continue
		}
		list, err := s.Summaries(ctx, uid)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", uid).Msg("conversation list refresh failed")
			continue
		}
		if s.Registry.Push(uid, realtime.ConversationListUpdate(list), "") > 0 {
			pushed++
		}
	}
	return pushed
}

func sortSummaries(list []domain.ConversationSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// displayName falls back to the raw id for users who never set a name.
func displayName(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}
