package domain

import "time"

// ParticipantInfo is the display view of one conversation member.
type ParticipantInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// LastMessage is the newest message of a conversation as shown in a list.
type LastMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationSummary is the per-viewer read model pushed in
// conversation-list-update events and returned by GET /conversations.
// It is computed on demand and never stored.
type ConversationSummary struct {
	ID           string            `json:"id"`
	ProductID    *string           `json:"productId,omitempty"`
	OrderID      *string           `json:"orderId,omitempty"`
	Participants []ParticipantInfo `json:"participants"`
	LastMessage  *LastMessage      `json:"lastMessage,omitempty"`
	UnreadCount  int64             `json:"unreadCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
