// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// ConversationsStats summarizes the state behind a user's conversation list:
// how many conversations they belong to, the greatest UpdatedAt among them,
// and how many read markers they hold. The last value moves when unread
// counts drop without any conversation being touched.
//
// When the user has no conversations, count is 0 and maxUpdatedAt is nil.
func ConversationsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, reads int64, err error) {
	member := func() *gorm.DB {
		return db.WithContext(ctx).
			Model(&domain.Conversation{}).
			Joins("JOIN conversation_participants p ON p.conversation_id = conversations.id AND p.user_id = ?", userID)
	}

	if err = member().Count(&count).Error; err != nil {
		return 0, nil, 0, err
	}
	if count == 0 {
		return 0, nil, 0, nil
	}

	// Latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = member().Select("conversations.updated_at").Order("conversations.updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, 0, err
	}
	if err = db.WithContext(ctx).Model(&domain.ReadMarker{}).Where("user_id = ?", userID).Count(&reads).Error; err != nil {
		return 0, nil, 0, err
	}
	return count, &row.UpdatedAt, reads, nil
}
