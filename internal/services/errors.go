// Package services defines the business logic of the chat relay: the
// authorization check, the message relay, the read-receipt tracker and the
// conversation list synchronizer, plus the conversation and user use-cases
// behind the REST surface.
//
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages, HTTP status codes or websocket error events should
// be performed at the handler layer (see PublicMessage).
package services

import (
	"errors"
	"fmt"
)

// Conversation-related errors.
var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrNotParticipant is returned by the authorization check when the acting
	// user is not a member of the conversation. It wraps
	// ErrConversationNotFound so that callers cannot distinguish a foreign
	// conversation from a missing one.
	ErrNotParticipant = fmt.Errorf("%w or access denied", ErrConversationNotFound)

	// ErrMissingConversation is returned when an event names no conversation.
	ErrMissingConversation = errors.New("conversationId is required")

	// ErrTooFewParticipants is returned when a conversation would have fewer
	// than two distinct members.
	ErrTooFewParticipants = errors.New("a conversation needs at least two participants")

	// ErrInvalidParticipant is returned for blank or oversized participant ids.
	ErrInvalidParticipant = errors.New("invalid participant id")
)

// Message-related errors.
var (
	// ErrEmptyContent is returned when a message has no content after
	// trimming.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrContentTooLong is returned when a message exceeds the configured
	// maximum rune length.
	ErrContentTooLong = errors.New("message content too long")

	// ErrInvalidTempID is returned for a tempId longer than 128 bytes or one
	// that is not valid UTF-8.
	ErrInvalidTempID = errors.New("invalid tempId")

	// ErrTempIDReused is returned when a live tempId is sent again with
	// different content. Nothing is stored; the client must pick a fresh id.
	ErrTempIDReused = errors.New("tempId already used for a different message")
)

// User-related errors.
var (
	// ErrEmptyDisplayName is returned when a display name is blank.
	ErrEmptyDisplayName = errors.New("display name is empty")
)

var publicErrors = []error{
	ErrNotParticipant,
	ErrConversationNotFound,
	ErrMissingConversation,
	ErrTooFewParticipants,
	ErrInvalidParticipant,
	ErrEmptyContent,
	ErrContentTooLong,
	ErrInvalidTempID,
	ErrTempIDReused,
	ErrEmptyDisplayName,
}

// PublicMessage returns a message that is safe to show a client for err.
// Known service errors keep their text; anything else (database failures,
// timeouts) collapses to fallback.
func PublicMessage(err error, fallback string) string {
	for _, known := range publicErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}
