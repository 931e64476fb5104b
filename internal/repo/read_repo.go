package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// CreateReadMarkers records that readerID has read each of messageIDs and
// returns the ids whose marker was newly inserted. Existing (message, user)
// pairs are skipped via ON CONFLICT DO NOTHING, so two concurrent callers
// marking the same messages each get back a disjoint subset.
//
// Rows are inserted one by one inside a single transaction because a batched
// DO NOTHING insert only reports a total row count.
func CreateReadMarkers(ctx context.Context, db *gorm.DB, conversationID, readerID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var inserted []string
	now := time.Now().UTC()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, mid := range messageIDs {
			rm := &domain.ReadMarker{
				ID:             uuid.NewString(),
				MessageID:      mid,
				UserID:         readerID,
				ConversationID: conversationID,
				CreatedAt:      now,
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Omit("Message").Create(rm)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				inserted = append(inserted, mid)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// CountReadMarkers returns how many markers readerID holds in a conversation.
func CountReadMarkers(ctx context.Context, db *gorm.DB, conversationID, readerID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ReadMarker{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, readerID).
		Count(&n).Error
	return n, err
}
