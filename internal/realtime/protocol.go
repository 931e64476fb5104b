package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// Event type tags carried in the envelope "type" field.
const (
	TypeSendMessage            = "send-message"
	TypeMarkRead               = "mark-read"
	TypeNewMessage             = "new-message"
	TypeMessageRead            = "message-read"
	TypeConversationListUpdate = "conversation-list-update"
	TypeError                  = "error"
	TypeConnected              = "connected"
)

var (
	// ErrMalformedEvent is returned for frames that are not a JSON envelope.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownEvent is returned for an envelope with an unsupported type.
	ErrUnknownEvent = errors.New("unknown event type")
)

// Envelope is the JSON frame shared by both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is a client → server event. The set of implementations is closed:
// SendMessage and MarkRead.
type Inbound interface {
	inbound()
}

// SendMessage asks the relay to post content into a conversation.
type SendMessage struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	TempID         string `json:"tempId,omitempty"`
}

// MarkRead asks the tracker to mark every unread message of a conversation.
type MarkRead struct {
	ConversationID string `json:"conversationId"`
}

func (SendMessage) inbound() {}
func (MarkRead) inbound()    {}

// DecodeInbound parses one text frame into its typed event.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	switch env.Type {
	case TypeSendMessage:
		var ev SendMessage
		if err := decodeData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case TypeMarkRead:
		var ev MarkRead
		if err := decodeData(env.Data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// InboundType returns the wire tag of an inbound event.
func InboundType(in Inbound) string {
	switch in.(type) {
	case SendMessage:
		return TypeSendMessage
	case MarkRead:
		return TypeMarkRead
	default:
		return "unknown"
	}
}

// Outbound is a server → client event. The set of implementations is closed:
// NewMessage, MessageRead, ConversationListUpdate, ErrorEvent and Connected.
type Outbound interface {
	EventType() string
	outbound()
}

// NewMessage announces a persisted message. TempID is only set on the
// acknowledgment delivered to the connection that sent it.
type NewMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
	TempID         string    `json:"tempId,omitempty"`
}

// MessageRead tells a sender that ReadBy has read one of their messages.
type MessageRead struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	ReadBy         string `json:"readBy"`
}

// ConversationListUpdate is the full, ordered conversation list of a user.
type ConversationListUpdate []domain.ConversationSummary

// ErrorEvent reports a failed operation to the connection that issued it.
type ErrorEvent struct {
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}

// Connected greets a connection once the handshake has been admitted.
type Connected struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

func (NewMessage) EventType() string             { return TypeNewMessage }
func (MessageRead) EventType() string            { return TypeMessageRead }
func (ConversationListUpdate) EventType() string { return TypeConversationListUpdate }
func (ErrorEvent) EventType() string             { return TypeError }
func (Connected) EventType() string              { return TypeConnected }

func (NewMessage) outbound()             {}
func (MessageRead) outbound()            {}
func (ConversationListUpdate) outbound() {}
func (ErrorEvent) outbound()             {}
func (Connected) outbound()              {}

// Encode wraps ev in an envelope and marshals it.
func Encode(ev Outbound) ([]byte, error) {
	var payload any = ev
	if list, ok := ev.(ConversationListUpdate); ok && list == nil {
		payload = []domain.ConversationSummary{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: ev.EventType(), Data: data})
}
