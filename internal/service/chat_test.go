package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/editalbot/docqa/internal/llm"
	"github.com/editalbot/docqa/internal/repository"
	"github.com/editalbot/docqa/internal/retrieval"
)

type fakeRetriever struct {
	result *retrieval.Result
	err    error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) (*retrieval.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLLM struct {
	text       string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (*llm.Generation, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Generation{
		Text:  f.text,
		Usage: llm.Usage{PromptTokens: 100, CompletionTokens: 20},
	}, nil
}

type fakeHistory struct {
	saved    []*repository.ChatMessage
	feedback []*repository.Feedback
	history  []*repository.ChatMessage

	saveErr     error
	feedbackErr error
	historyErr  error
}

func (f *fakeHistory) SaveMessage(ctx context.Context, msg *repository.ChatMessage) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, msg)
	return nil
}

func (f *fakeHistory) GetByID(ctx context.Context, id uuid.UUID) (*repository.ChatMessage, error) {
	for _, msg := range f.saved {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeHistory) RecentHistory(ctx context.Context, sessionID uuid.UUID, limit int) ([]*repository.ChatMessage, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeHistory) SaveFeedback(ctx context.Context, fb *repository.Feedback) error {
	if f.feedbackErr != nil {
		return f.feedbackErr
	}
	f.feedback = append(f.feedback, fb)
	return nil
}

func nominalResult() *retrieval.Result {
	page := 4
	return &retrieval.Result{
		Passages: []retrieval.RankedPassage{
			{
				Passage: retrieval.Passage{Content: "O prazo de entrega é 30 dias.", Source: "edital.pdf", Page: &page},
				Score:   0.92,
			},
		},
		Ranking: retrieval.RankedByRelevance,
	}
}

func newTestChat(retriever *fakeRetriever, llmClient *fakeLLM, history *fakeHistory) *ChatService {
	return NewChatService(retriever, llmClient, history, ChatOptions{Model: "llama3.2"}, slog.Default())
}

func TestChatService_Ask(t *testing.T) {
	retriever := &fakeRetriever{result: nominalResult()}
	llmClient := &fakeLLM{text: "O prazo é de 30 dias."}
	history := &fakeHistory{}
	svc := newTestChat(retriever, llmClient, history)

	sessionID := uuid.New()
	answer, err := svc.Ask(context.Background(), sessionID, "Qual o prazo de entrega?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.Text != "O prazo é de 30 dias." {
		t.Errorf("answer = %q", answer.Text)
	}
	if answer.Degraded {
		t.Error("expected non-degraded answer")
	}
	if len(answer.Passages) != 1 {
		t.Errorf("expected 1 source passage, got %d", len(answer.Passages))
	}
	if answer.PromptTokens != 100 || answer.CompletionTokens != 20 {
		t.Errorf("usage = %d/%d", answer.PromptTokens, answer.CompletionTokens)
	}

	// The prompt includes the retrieved passage and its provenance.
	if !strings.Contains(llmClient.lastPrompt, "O prazo de entrega é 30 dias.") {
		t.Error("prompt missing retrieved passage")
	}
	if !strings.Contains(llmClient.lastPrompt, "edital.pdf") {
		t.Error("prompt missing passage source")
	}

	// The exchange is recorded with timings and usage.
	if len(history.saved) != 1 {
		t.Fatalf("expected 1 saved message, got %d", len(history.saved))
	}
	saved := history.saved[0]
	if saved.SessionID != sessionID {
		t.Errorf("saved session = %s, want %s", saved.SessionID, sessionID)
	}
	if saved.ID != answer.MessageID {
		t.Errorf("saved message ID %s != answer message ID %s", saved.ID, answer.MessageID)
	}
	if saved.PromptTokens != 100 {
		t.Errorf("saved prompt tokens = %d", saved.PromptTokens)
	}
	if saved.UserMessageChars == 0 || saved.BotResponseChars == 0 {
		t.Error("expected char counts to be recorded")
	}
}

func TestChatService_Ask_EmptyQuestion(t *testing.T) {
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, &fakeLLM{text: "x"}, &fakeHistory{})

	if _, err := svc.Ask(context.Background(), uuid.New(), "   "); err == nil {
		t.Error("expected error for blank question")
	}
}

func TestChatService_Ask_RetrievalFailureIsFatal(t *testing.T) {
	svc := newTestChat(&fakeRetriever{err: errors.New("index down")}, &fakeLLM{text: "x"}, &fakeHistory{})

	if _, err := svc.Ask(context.Background(), uuid.New(), "question"); err == nil {
		t.Error("expected retrieval failure to propagate")
	}
}

func TestChatService_Ask_DegradedRetrievalStillAnswers(t *testing.T) {
	result := nominalResult()
	result.Ranking = retrieval.RankedByDistance
	history := &fakeHistory{}
	svc := newTestChat(&fakeRetriever{result: result}, &fakeLLM{text: "answer"}, history)

	answer, err := svc.Ask(context.Background(), uuid.New(), "question")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !answer.Degraded {
		t.Error("expected degraded flag on answer")
	}
	if len(history.saved) != 1 || !history.saved[0].Degraded {
		t.Error("expected degraded flag on saved message")
	}
}

func TestChatService_Ask_HistoryLoadFailureIsSoft(t *testing.T) {
	history := &fakeHistory{historyErr: errors.New("db down")}
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, &fakeLLM{text: "answer"}, history)

	if _, err := svc.Ask(context.Background(), uuid.New(), "question"); err != nil {
		t.Fatalf("history failure should not block the answer: %v", err)
	}
}

func TestChatService_Ask_IncludesHistoryInPrompt(t *testing.T) {
	history := &fakeHistory{
		history: []*repository.ChatMessage{
			{UserMessage: "primeira pergunta", BotResponse: "primeira resposta"},
		},
	}
	llmClient := &fakeLLM{text: "answer"}
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, llmClient, history)

	if _, err := svc.Ask(context.Background(), uuid.New(), "segunda pergunta"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(llmClient.lastPrompt, "primeira pergunta") {
		t.Error("prompt missing prior user message")
	}
	if !strings.Contains(llmClient.lastPrompt, "primeira resposta") {
		t.Error("prompt missing prior assistant message")
	}
}

func TestChatService_GetMessage(t *testing.T) {
	history := &fakeHistory{}
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, &fakeLLM{text: "30 dias"}, history)

	answer, err := svc.Ask(context.Background(), uuid.New(), "qual o prazo?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	msg, err := svc.GetMessage(context.Background(), answer.MessageID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if msg.UserMessage != "qual o prazo?" {
		t.Errorf("UserMessage = %q", msg.UserMessage)
	}
	if msg.BotResponse != "30 dias" {
		t.Errorf("BotResponse = %q", msg.BotResponse)
	}

	if _, err := svc.GetMessage(context.Background(), uuid.New()); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown message, got %v", err)
	}
}

func TestChatService_RecordFeedback(t *testing.T) {
	history := &fakeHistory{}
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, &fakeLLM{text: "x"}, history)

	messageID := uuid.New()
	if err := svc.RecordFeedback(context.Background(), messageID, "like", "útil"); err != nil {
		t.Fatalf("RecordFeedback: %v", err)
	}
	if len(history.feedback) != 1 {
		t.Fatalf("expected 1 feedback, got %d", len(history.feedback))
	}
	if history.feedback[0].MessageID != messageID {
		t.Errorf("feedback message ID = %s", history.feedback[0].MessageID)
	}

	if err := svc.RecordFeedback(context.Background(), messageID, "meh", ""); err == nil {
		t.Error("expected error for invalid rating")
	}
}

func TestChatService_RecordFeedback_Duplicate(t *testing.T) {
	history := &fakeHistory{feedbackErr: repository.ErrDuplicateFeedback}
	svc := newTestChat(&fakeRetriever{result: nominalResult()}, &fakeLLM{text: "x"}, history)

	err := svc.RecordFeedback(context.Background(), uuid.New(), "dislike", "")
	if !errors.Is(err, repository.ErrDuplicateFeedback) {
		t.Errorf("expected ErrDuplicateFeedback, got %v", err)
	}
}
