// Package repository defines domain models and data access interfaces for
// conversation history and answer feedback.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateFeedback is returned when feedback already exists for a message
var ErrDuplicateFeedback = errors.New("feedback already recorded for message")

// ChatMessage represents one question/answer exchange with its timings
type ChatMessage struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	UserMessage      string
	BotResponse      string
	UserMessageChars int
	BotResponseChars int
	PromptTokens     int
	CompletionTokens int
	Degraded         bool
	RetrievalMS      int64
	GenerationMS     int64
	TotalMS          int64
	CreatedAt        time.Time
}

// Feedback represents a user rating for a single answer. At most one
// feedback row may exist per message.
type Feedback struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	Rating    string // "like" or "dislike"
	Comment   string
	CreatedAt time.Time
}

// ValidRating reports whether s is an accepted feedback rating
func ValidRating(s string) bool {
	return s == "like" || s == "dislike"
}

// HistoryRepository defines operations for chat history persistence
type HistoryRepository interface {
	SaveMessage(ctx context.Context, msg *ChatMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChatMessage, error)
	// RecentHistory returns the latest messages for a session, oldest first.
	RecentHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*ChatMessage, error)
	SaveFeedback(ctx context.Context, fb *Feedback) error
}
