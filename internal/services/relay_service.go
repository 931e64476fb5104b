// Package services – Relay
//
// This file implements the message relay. A send moves through
// Received → Validated → Persisted → Fanned-out → Acknowledged; a failure
// before persistence produces a single error event for the originating
// connection and nothing else.
//
// Retries are reconciled through the idempotency table: the client tempId is
// stored with the message it produced and a hash of its content. A repeated
// send with the same tempId and content re-acknowledges the stored message
// instead of inserting another; the same tempId with other content is
// rejected with an error event.
//
// Observability: Send is OpenTelemetry-instrumented with conversation and
// sender attributes.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	maxTempIDLen          = 128
)

// Relay persists chat messages and fans them out to conversation members.
type Relay struct {
	DB       *gorm.DB
	Registry *realtime.Registry
	Authz    *Authorizer
	Sync     *Synchronizer

	// MaxContentRunes caps message length; 0 disables the check.
	MaxContentRunes int
	// IdempotencyTTL is how long a tempId stays bound to its message.
	IdempotencyTTL time.Duration

	now func() time.Time
	log zerolog.Logger
}

// NewRelay constructs a Relay sharing the registry and synchronizer.
func NewRelay(db *gorm.DB, reg *realtime.Registry, authz *Authorizer, sync *Synchronizer, maxContentRunes int, ttl time.Duration) *Relay {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Relay{
		DB:              db,
		Registry:        reg,
		Authz:           authz,
		Sync:            sync,
		MaxContentRunes: maxContentRunes,
		IdempotencyTTL:  ttl,
		now:             func() time.Time { return time.Now().UTC() },
		log:             log.With().Str("component", "relay").Logger(),
	}
}

// Send validates, persists and distributes one message from senderID.
//
// origin is the connection that issued the event, or nil for REST callers.
// On success the origin receives the acknowledgment (a new-message carrying
// in.TempID), every other participant and the sender's other connections
// receive the message without a tempId, and all participants get a refreshed
// conversation list. The returned event is the acknowledgment.
//
// On failure the origin receives exactly one error event echoing in.TempID.
func (s *Relay) Send(ctx context.Context, senderID string, origin realtime.Conn, in realtime.SendMessage) (realtime.NewMessage, error) {
	ctx, span := otel.Tracer("services/Relay").Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("conversation.id", in.ConversationID),
			attribute.String("user.id", senderID),
			attribute.Bool("temp_id", in.TempID != ""),
		),
	)
	defer span.End()

	ack, err := s.send(ctx, senderID, origin, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if origin != nil {
			s.Registry.Deliver(origin, realtime.ErrorEvent{
				Message: PublicMessage(err, "failed to send message"),
				TempID:  in.TempID,
			})
		}
		return realtime.NewMessage{}, err
	}
	span.SetAttributes(attribute.String("message.id", ack.ID))
	return ack, nil
}

func (s *Relay) send(ctx context.Context, senderID string, origin realtime.Conn, in realtime.SendMessage) (realtime.NewMessage, error) {
	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" {
		return realtime.NewMessage{}, ErrMissingConversation
	}
	content := norm.NFC.String(strings.TrimSpace(in.Content))
	if content == "" {
		return realtime.NewMessage{}, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return realtime.NewMessage{}, ErrContentTooLong
	}
	tempID := strings.TrimSpace(in.TempID)
	if len(tempID) > maxTempIDLen || !utf8.ValidString(tempID) {
		return realtime.NewMessage{}, ErrInvalidTempID
	}
	conv, err := s.Authz.Authorize(ctx, convID, senderID)
	if err != nil {
		return realtime.NewMessage{}, err
	}

	hash := contentHash(content)
	now := s.now()
	if tempID != "" {
		rec, err := repo.GetIdempotency(ctx, s.DB, senderID, convID, tempID, now)
		switch {
		case err == nil:
			return s.retry(ctx, origin, rec, hash, in.TempID)
		case !errors.Is(err, repo.ErrNotFound):
			return realtime.NewMessage{}, err
		}
	}

	var msg *domain.Message
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, convID, senderID, content, now)
		if err != nil {
			return err
		}
		if err := repo.TouchConversation(ctx, tx, convID, now); err != nil {
			return err
		}
		if tempID != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, senderID, convID, tempID, hash, m.ID, http.StatusCreated, now, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		msg = m
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent retry with the same tempId committed first.
		rec, gerr := repo.GetIdempotency(ctx, s.DB, senderID, convID, tempID, now)
		if gerr != nil {
			return realtime.NewMessage{}, gerr
		}
		return s.retry(ctx, origin, rec, hash, in.TempID)
	}
	if err != nil {
		return realtime.NewMessage{}, err
	}

	ev := realtime.NewMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     s.senderName(ctx, senderID),
		Content:        msg.Content,
		Timestamp:      msg.CreatedAt,
	}

	skip := ""
	if origin != nil {
		skip = origin.ID()
	}
	for _, uid := range participantIDs(conv) {
		if uid == senderID {
			s.Registry.Push(uid, ev, skip)
			continue
		}
		s.Registry.Push(uid, ev, "")
	}

	ack := ev
	ack.TempID = in.TempID
	if origin != nil {
		s.Registry.Deliver(origin, ack)
	}

	s.Sync.Refresh(ctx, participantIDs(conv)...)
	return ack, nil
}

// retry replays rec when the resend carries the content it was stored for.
func (s *Relay) retry(ctx context.Context, origin realtime.Conn, rec *domain.Idempotency, hash, tempID string) (realtime.NewMessage, error) {
	if rec.ContentHash != hash {
		return realtime.NewMessage{}, ErrTempIDReused
	}
	return s.replay(ctx, origin, rec.MessageID, tempID)
}

// replay re-acknowledges a message that an earlier send with the same tempId
// already stored. Only the origin hears about it; there is no second fan-out.
func (s *Relay) replay(ctx context.Context, origin realtime.Conn, messageID, tempID string) (realtime.NewMessage, error) {
	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		return realtime.NewMessage{}, err
	}
	read, err := repo.ReadMessageIDs(ctx, s.DB, []string{m.ID})
	if err != nil {
		return realtime.NewMessage{}, err
	}
	ack := realtime.NewMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     s.senderName(ctx, m.SenderID),
		Content:        m.Content,
		Timestamp:      m.CreatedAt,
		Read:           read[m.ID],
		TempID:         tempID,
	}
	s.log.Debug().Str("message_id", m.ID).Str("temp_id", tempID).Msg("replayed acknowledgment")
	if origin != nil {
		s.Registry.Deliver(origin, ack)
	}
	return ack, nil
}

func (s *Relay) senderName(ctx context.Context, id string) string {
	names, err := repo.DisplayNames(ctx, s.DB, []string{id})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id).Msg("display name lookup failed")
		return id
	}
	return displayName(names, id)
}

// contentHash fingerprints normalized message content for retry matching.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
