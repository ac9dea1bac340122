package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/editalbot/docqa/internal/repository"
)

// HistoryRepo implements repository.HistoryRepository
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

var _ repository.HistoryRepository = (*HistoryRepo)(nil)

// SaveMessage stores a completed exchange
func (r *HistoryRepo) SaveMessage(ctx context.Context, msg *repository.ChatMessage) error {
	query := `
		INSERT INTO chat_history (id, session_id, user_message, bot_response,
			user_message_chars, bot_response_chars, prompt_tokens, completion_tokens,
			degraded, retrieval_ms, generation_ms, total_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		msg.ID, msg.SessionID, msg.UserMessage, msg.BotResponse,
		msg.UserMessageChars, msg.BotResponseChars, msg.PromptTokens, msg.CompletionTokens,
		msg.Degraded, msg.RetrievalMS, msg.GenerationMS, msg.TotalMS, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetByID retrieves a message by ID
func (r *HistoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.ChatMessage, error) {
	query := `
		SELECT id, session_id, user_message, bot_response,
			user_message_chars, bot_response_chars, prompt_tokens, completion_tokens,
			degraded, retrieval_ms, generation_ms, total_ms, created_at
		FROM chat_history
		WHERE id = $1
	`
	var msg repository.ChatMessage
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.SessionID, &msg.UserMessage, &msg.BotResponse,
		&msg.UserMessageChars, &msg.BotResponseChars, &msg.PromptTokens, &msg.CompletionTokens,
		&msg.Degraded, &msg.RetrievalMS, &msg.GenerationMS, &msg.TotalMS, &msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

// RecentHistory returns the latest messages for a session, oldest first
func (r *HistoryRepo) RecentHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*repository.ChatMessage, error) {
	query := `
		SELECT id, session_id, user_message, bot_response,
			user_message_chars, bot_response_chars, prompt_tokens, completion_tokens,
			degraded, retrieval_ms, generation_ms, total_ms, created_at
		FROM chat_history
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var messages []*repository.ChatMessage
	for rows.Next() {
		var msg repository.ChatMessage
		if err := rows.Scan(
			&msg.ID, &msg.SessionID, &msg.UserMessage, &msg.BotResponse,
			&msg.UserMessageChars, &msg.BotResponseChars, &msg.PromptTokens, &msg.CompletionTokens,
			&msg.Degraded, &msg.RetrievalMS, &msg.GenerationMS, &msg.TotalMS, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	// Query returns newest first; reverse so callers see chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// SaveFeedback stores a rating for a message. The unique constraint on
// message_id rejects repeated feedback.
func (r *HistoryRepo) SaveFeedback(ctx context.Context, fb *repository.Feedback) error {
	query := `
		INSERT INTO feedback (id, message_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Pool.Exec(ctx, query, fb.ID, fb.MessageID, fb.Rating, fb.Comment, fb.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation
				return repository.ErrDuplicateFeedback
			case "23503": // foreign_key_violation
				return repository.ErrNotFound
			}
		}
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}
