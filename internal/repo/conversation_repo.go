// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for conversations
// and their participant sets.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, or the acting user is not one of its
//     participants, functions return gorm.ErrRecordNotFound (exported here as
//     ErrNotFound).
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateConversation inserts a conversation and one participant row per
// entry of participantIDs in a single statement batch. Callers are expected
// to pass a de-duplicated, non-empty list.
func CreateConversation(ctx context.Context, db *gorm.DB, participantIDs []string, productID, orderID *string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		ProductID: productID,
		OrderID:   orderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range participantIDs {
		c.Participants = append(c.Participants, domain.Participant{UserID: id, JoinedAt: now})
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversationForParticipant loads conversation id only if userID is one
// of its participants. Both "missing" and "not a member" yield ErrNotFound so
// callers cannot probe for foreign conversation ids.
func GetConversationForParticipant(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN conversation_participants p ON p.conversation_id = conversations.id AND p.user_id = ?", userID).
		Where("conversations.id = ?", id).
		Preload("Participants").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListParticipantIDs returns the user ids of every member of a conversation.
func ListParticipantIDs(ctx context.Context, db *gorm.DB, conversationID string) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListConversationsForUser returns every conversation userID takes part in,
// with participants preloaded, ordered by updated_at descending and id
// ascending as a tiebreaker.
func ListConversationsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Joins("JOIN conversation_participants p ON p.conversation_id = conversations.id AND p.user_id = ?", userID).
		Preload("Participants", func(tx *gorm.DB) *gorm.DB { return tx.Order("user_id ASC") }).
		Order("conversations.updated_at DESC, conversations.id ASC").
		Find(&out).Error
	return out, err
}

// TouchConversation sets updated_at to at. Returns ErrNotFound when no row
// matched.
func TouchConversation(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
