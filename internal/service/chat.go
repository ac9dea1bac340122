// Package service orchestrates retrieval, generation, and history recording
// for the question answering API.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/editalbot/docqa/internal/llm"
	"github.com/editalbot/docqa/internal/repository"
	"github.com/editalbot/docqa/internal/retrieval"
)

const defaultSystemPrompt = `You are an assistant that answers questions about procurement documents.
Answer using ONLY the provided context documents. If the context does not
contain the answer, say you do not know. Be brief and direct.`

// historyTurns is the number of prior exchanges included in the prompt.
const historyTurns = 5

// Retriever is the slice of the retrieval pipeline the chat service needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*retrieval.Result, error)
}

// Answer is the outcome of one chat exchange
type Answer struct {
	MessageID uuid.UUID
	Text      string
	Passages  []retrieval.RankedPassage
	Degraded  bool

	PromptTokens     int
	CompletionTokens int
	RetrievalMS      int64
	GenerationMS     int64
	TotalMS          int64
}

// ChatOptions configures answer generation
type ChatOptions struct {
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// ChatService answers questions over the indexed documents and records
// every exchange.
type ChatService struct {
	retriever Retriever
	llmClient llm.LLM
	history   repository.HistoryRepository
	opts      ChatOptions
	logger    *slog.Logger
}

// NewChatService creates a new chat service
func NewChatService(retriever Retriever, llmClient llm.LLM, history repository.HistoryRepository, opts ChatOptions, logger *slog.Logger) *ChatService {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.3
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		retriever: retriever,
		llmClient: llmClient,
		history:   history,
		opts:      opts,
		logger:    logger,
	}
}

// Ask answers a question within a session: retrieve context, generate an
// answer grounded in it, and persist the exchange with its timings.
func (s *ChatService) Ask(ctx context.Context, sessionID uuid.UUID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}

	startTime := time.Now()

	history, err := s.history.RecentHistory(ctx, sessionID, historyTurns)
	if err != nil {
		// History is context, not correctness. Answer without it.
		s.logger.Warn("failed to load session history", "session_id", sessionID, "error", err)
		history = nil
	}

	retrievalStart := time.Now()
	result, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	retrievalTime := time.Since(retrievalStart)

	if result.Degraded() {
		s.logger.Warn("answering from degraded retrieval", "session_id", sessionID, "ranking", result.Ranking.String())
	}

	generationStart := time.Now()
	prompt := buildPrompt(result.Passages, question, history)
	generation, err := s.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:        s.opts.Model,
		SystemPrompt: s.opts.SystemPrompt,
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	generationTime := time.Since(generationStart)
	totalTime := time.Since(startTime)

	msg := &repository.ChatMessage{
		ID:               uuid.New(),
		SessionID:        sessionID,
		UserMessage:      question,
		BotResponse:      generation.Text,
		UserMessageChars: len([]rune(question)),
		BotResponseChars: len([]rune(generation.Text)),
		PromptTokens:     generation.Usage.PromptTokens,
		CompletionTokens: generation.Usage.CompletionTokens,
		Degraded:         result.Degraded(),
		RetrievalMS:      retrievalTime.Milliseconds(),
		GenerationMS:     generationTime.Milliseconds(),
		TotalMS:          totalTime.Milliseconds(),
		CreatedAt:        time.Now(),
	}
	if err := s.history.SaveMessage(ctx, msg); err != nil {
		// The user already has an answer; losing the record is a server
		// problem, not theirs.
		s.logger.Error("failed to save chat message", "session_id", sessionID, "error", err)
	}

	return &Answer{
		MessageID:        msg.ID,
		Text:             generation.Text,
		Passages:         result.Passages,
		Degraded:         result.Degraded(),
		PromptTokens:     generation.Usage.PromptTokens,
		CompletionTokens: generation.Usage.CompletionTokens,
		RetrievalMS:      msg.RetrievalMS,
		GenerationMS:     msg.GenerationMS,
		TotalMS:          msg.TotalMS,
	}, nil
}

// GetMessage returns a stored exchange by message ID. Used by operators to
// inspect an exchange when investigating a feedback report.
func (s *ChatService) GetMessage(ctx context.Context, messageID uuid.UUID) (*repository.ChatMessage, error) {
	return s.history.GetByID(ctx, messageID)
}

// RecordFeedback stores a like/dislike rating for a previous answer
func (s *ChatService) RecordFeedback(ctx context.Context, messageID uuid.UUID, rating, comment string) error {
	if !repository.ValidRating(rating) {
		return fmt.Errorf("invalid rating %q", rating)
	}
	return s.history.SaveFeedback(ctx, &repository.Feedback{
		ID:        uuid.New(),
		MessageID: messageID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	})
}

// buildPrompt assembles the generation prompt from retrieved passages,
// prior exchanges, and the current question.
func buildPrompt(passages []retrieval.RankedPassage, question string, history []*repository.ChatMessage) string {
	var sb strings.Builder

	if len(history) > 0 {
		sb.WriteString("## Conversation History\n\n")
		for _, msg := range history {
			sb.WriteString("User: ")
			sb.WriteString(msg.UserMessage)
			sb.WriteString("\nAssistant: ")
			sb.WriteString(msg.BotResponse)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("## Context Documents\n\n")
	if len(passages) == 0 {
		sb.WriteString("(no relevant documents found)\n\n")
	}
	for i, rp := range passages {
		sb.WriteString(fmt.Sprintf("[Doc %d]", i+1))
		if rp.Passage.Source != "" {
			sb.WriteString(fmt.Sprintf(" (Source: %s", rp.Passage.Source))
			if rp.Passage.Page != nil {
				sb.WriteString(fmt.Sprintf(", page %d", *rp.Passage.Page))
			}
			sb.WriteString(")")
		}
		sb.WriteString("\n")
		sb.WriteString(rp.Passage.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Question\n")
	sb.WriteString(question)
	sb.WriteString("\n\n## Answer (be brief and direct)\n")

	return sb.String()
}
