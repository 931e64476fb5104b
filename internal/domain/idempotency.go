package domain

import "time"

// Idempotency remembers the message produced for a client-supplied key,
// keyed by (user_id, conversation_id, key). The key is the websocket tempId
// or the REST Idempotency-Key header, so a retried send returns the original
// message instead of inserting a second one. ContentHash fingerprints the
// content that produced the message; a key reused for different content is
// not a retry.
type Idempotency struct {
	ID             string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_conv_key,priority:1"`
	ConversationID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_conv_key,priority:2"`
	Key            string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_conv_key,priority:3"`
	MessageID      string    `gorm:"type:TEXT NOT NULL"`
	ContentHash    string    `gorm:"type:TEXT NOT NULL;default:''"`
	Status         int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt      time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
