// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the unread and last-message projections used by
// conversation summaries.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// CreateMessage inserts a new message row stamped with at.
func CreateMessage(ctx context.Context, db *gorm.DB, conversationID, senderID, content string, at time.Time) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	return m, db.WithContext(ctx).Omit("Conversation").Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListUnreadMessages returns the messages of conversationID that readerID
// has not read and did not send, oldest first.
func ListUnreadMessages(ctx context.Context, db *gorm.DB, conversationID, readerID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("messages.conversation_id = ?", conversationID).
		Where("messages.sender_id <> ?", readerID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = messages.id AND r.user_id = ?)", readerID).
		Order("messages.created_at ASC, messages.id ASC").
		Find(&out).Error
	return out, err
}

// UnreadCounts returns, per conversation id, how many messages readerID has
// not read. Conversations with nothing unread are absent from the map.
func UnreadCounts(ctx context.Context, db *gorm.DB, readerID string, conversationIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ConversationID string
		N              int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("messages.conversation_id AS conversation_id, COUNT(*) AS n").
		Where("messages.conversation_id IN ?", conversationIDs).
		Where("messages.sender_id <> ?", readerID).
		Where("NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = messages.id AND r.user_id = ?)", readerID).
		Group("messages.conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ConversationID] = r.N
	}
	return out, nil
}

// LastMessages returns the newest message of each listed conversation,
// keyed by conversation id. Ties on created_at resolve to the larger id.
func LastMessages(ctx context.Context, db *gorm.DB, conversationIDs []string) (map[string]domain.Message, error) {
	out := make(map[string]domain.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var rows []domain.Message
	err := db.WithContext(ctx).
		Where("messages.conversation_id IN ?", conversationIDs).
		Where(`NOT EXISTS (SELECT 1 FROM messages n WHERE n.conversation_id = messages.conversation_id
			AND (n.created_at > messages.created_at OR (n.created_at = messages.created_at AND n.id > messages.id)))`).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.ConversationID] = m
	}
	return out, nil
}

// ReadMessageIDs reports which of messageIDs carry at least one read marker.
func ReadMessageIDs(ctx context.Context, db *gorm.DB, messageIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.ReadMarker{}).
		Where("message_id IN ?", messageIDs).
		Distinct("message_id").
		Pluck("message_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
