// Package domain defines the persistence models for marketplace
// conversations, their participants, messages and read markers. These types
// are mapped with GORM and shared across the repository, service and
// realtime layers.
package domain

import "time"

// User carries the display information shown next to a sender. Identity
// itself is owned by the external identity provider; a row exists only once
// a user has set a display name or taken part in a conversation.
//
// Fields:
//   - ID: opaque identity string supplied by the identity provider.
//   - DisplayName: human-readable name used as senderName in pushes.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID          string    `json:"id"           gorm:"type:varchar(64);primaryKey"`
	DisplayName string    `json:"display_name" gorm:"type:varchar(120);not null;default:''"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Conversation is a buyer/seller thread, optionally tied to a product listing
// or an order. UpdatedAt is touched whenever a message is added and drives
// the ordering of conversation lists.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ProductID / OrderID: optional marketplace context.
//   - CreatedAt / UpdatedAt: timestamps; UpdatedAt is indexed for ordering.
//   - Participants: members allowed to send and read.
type Conversation struct {
	ID        string    `json:"id"                   gorm:"type:char(36);primaryKey"`
	ProductID *string   `json:"product_id,omitempty" gorm:"type:varchar(64);index"`
	OrderID   *string   `json:"order_id,omitempty"   gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"           gorm:"index:idx_conversations_updated"`

	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Participant links a user identity to a conversation. The composite primary
// key makes membership a set.
type Participant struct {
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"         gorm:"type:varchar(64);primaryKey;index:idx_participant_user"`
	JoinedAt       time.Time `json:"joined_at"       gorm:"autoCreateTime"`
}

// TableName returns the database table name for Participant.
func (Participant) TableName() string { return "conversation_participants" }

// Message is a single chat line. Its sender was a participant of the
// conversation when it was created. Messages are never edited; only the
// read-marker set attached to them grows.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: owning conversation (indexed together with CreatedAt).
//   - SenderID: identity of the author.
//   - Content: normalized text body.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - Conversation: FK association, cascades on delete.
type Message struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string    `json:"sender_id"       gorm:"type:varchar(64);not null;index"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time `json:"updated_at"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// ReadMarker records that UserID has read MessageID. A (message, user) pair
// exists at most once, enforced by ux_read_message_user.
type ReadMarker struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	MessageID      string    `json:"message_id"      gorm:"type:char(36);not null;uniqueIndex:ux_read_message_user,priority:1"`
	UserID         string    `json:"user_id"         gorm:"type:varchar(64);not null;uniqueIndex:ux_read_message_user,priority:2;index:idx_read_conv_user,priority:2"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_read_conv_user,priority:1"`
	CreatedAt      time.Time `json:"created_at"`

	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReadMarker.
func (ReadMarker) TableName() string { return "message_reads" }
