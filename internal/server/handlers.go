package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/editalbot/docqa/internal/auth"
	"github.com/editalbot/docqa/internal/repository"
	"github.com/editalbot/docqa/internal/retrieval"
	"github.com/editalbot/docqa/internal/service"
)

// Searcher is the slice of the retrieval pipeline the handlers expose
// directly.
type Searcher interface {
	Retrieve(ctx context.Context, query string) (*retrieval.Result, error)
	RetrieveRecallOnly(ctx context.Context, query string) ([]retrieval.Candidate, error)
	ListAllPassages(ctx context.Context) ([]retrieval.Passage, error)
}

// ReadinessChecker reports whether a backing dependency is reachable
type ReadinessChecker func(ctx context.Context) error

// Handlers implements the JSON API endpoints
type Handlers struct {
	chat       *service.ChatService
	searcher   Searcher
	jwtManager *auth.JWTManager
	readiness  map[string]ReadinessChecker
	logger     *slog.Logger
}

// NewHandlers creates the API handlers
func NewHandlers(chat *service.ChatService, searcher Searcher, jwtManager *auth.JWTManager, readiness map[string]ReadinessChecker, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		chat:       chat,
		searcher:   searcher,
		jwtManager: jwtManager,
		readiness:  readiness,
		logger:     logger,
	}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

// CreateSession mints a new session and its bearer token
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New()
	token, err := h.jwtManager.GenerateToken(sessionID)
	if err != nil {
		h.internalError(w, r, "failed to generate session token", err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: sessionID.String(),
		Token:     token,
	})
}

type chatRequest struct {
	Question string `json:"question"`
}

type passageResponse struct {
	Content string            `json:"content"`
	Source  string            `json:"source,omitempty"`
	Page    *int              `json:"page,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

type rankedPassageResponse struct {
	passageResponse
	Score float32 `json:"score"`
}

type chatResponse struct {
	MessageID string                  `json:"message_id"`
	Answer    string                  `json:"answer"`
	Sources   []rankedPassageResponse `json:"sources"`
	Degraded  bool                    `json:"degraded"`

	RetrievalMS  int64 `json:"retrieval_ms"`
	GenerationMS int64 `json:"generation_ms"`
	TotalMS      int64 `json:"total_ms"`
}

// Chat answers a question within the authenticated session
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing session")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeError(w, http.StatusBadRequest, "a question is required")
		return
	}

	answer, err := h.chat.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		h.internalError(w, r, "chat request failed", err)
		return
	}

	sources := make([]rankedPassageResponse, len(answer.Passages))
	for i, rp := range answer.Passages {
		sources[i] = rankedPassageResponse{
			passageResponse: toPassageResponse(rp.Passage),
			Score:           rp.Score,
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		MessageID:    answer.MessageID.String(),
		Answer:       answer.Text,
		Sources:      sources,
		Degraded:     answer.Degraded,
		RetrievalMS:  answer.RetrievalMS,
		GenerationMS: answer.GenerationMS,
		TotalMS:      answer.TotalMS,
	})
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type retrieveResponse struct {
	Passages []rankedPassageResponse `json:"passages"`
	Ranking  string                  `json:"ranking"`
}

// Retrieve runs the full two-stage retrieval without generation
func (h *Handlers) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "a query is required")
		return
	}

	result, err := h.searcher.Retrieve(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "a query is required")
			return
		}
		h.internalError(w, r, "retrieval failed", err)
		return
	}

	passages := make([]rankedPassageResponse, len(result.Passages))
	for i, rp := range result.Passages {
		passages[i] = rankedPassageResponse{
			passageResponse: toPassageResponse(rp.Passage),
			Score:           rp.Score,
		}
	}

	writeJSON(w, http.StatusOK, retrieveResponse{
		Passages: passages,
		Ranking:  result.Ranking.String(),
	})
}

type candidateResponse struct {
	passageResponse
	Distance float32 `json:"distance"`
}

type recallResponse struct {
	Candidates []candidateResponse `json:"candidates"`
}

// RetrieveRecallOnly queries the vector index directly, skipping the
// cross-encoder stage
func (h *Handlers) RetrieveRecallOnly(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "a query is required")
		return
	}

	candidates, err := h.searcher.RetrieveRecallOnly(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "a query is required")
			return
		}
		h.internalError(w, r, "recall retrieval failed", err)
		return
	}

	out := make([]candidateResponse, len(candidates))
	for i, c := range candidates {
		out[i] = candidateResponse{
			passageResponse: toPassageResponse(c.Passage),
			Distance:        c.Distance,
		}
	}

	writeJSON(w, http.StatusOK, recallResponse{Candidates: out})
}

type listPassagesResponse struct {
	Passages []passageResponse `json:"passages"`
	Total    int               `json:"total"`
}

// ListPassages dumps the whole index. Admin only.
func (h *Handlers) ListPassages(w http.ResponseWriter, r *http.Request) {
	passages, err := h.searcher.ListAllPassages(r.Context())
	if err != nil {
		h.internalError(w, r, "listing passages failed", err)
		return
	}

	out := make([]passageResponse, len(passages))
	for i, p := range passages {
		out[i] = toPassageResponse(p)
	}

	writeJSON(w, http.StatusOK, listPassagesResponse{Passages: out, Total: len(out)})
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment"`
}

type messageResponse struct {
	ID               string `json:"id"`
	SessionID        string `json:"session_id"`
	UserMessage      string `json:"user_message"`
	BotResponse      string `json:"bot_response"`
	Degraded         bool   `json:"degraded"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	RetrievalMS      int64  `json:"retrieval_ms"`
	GenerationMS     int64  `json:"generation_ms"`
	TotalMS          int64  `json:"total_ms"`
	CreatedAt        string `json:"created_at"`
}

// GetMessage returns a stored exchange by ID. Admin only.
func (h *Handlers) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	msg, err := h.chat.GetMessage(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	case err != nil:
		h.internalError(w, r, "loading message failed", err)
	default:
		writeJSON(w, http.StatusOK, messageResponse{
			ID:               msg.ID.String(),
			SessionID:        msg.SessionID.String(),
			UserMessage:      msg.UserMessage,
			BotResponse:      msg.BotResponse,
			Degraded:         msg.Degraded,
			PromptTokens:     msg.PromptTokens,
			CompletionTokens: msg.CompletionTokens,
			RetrievalMS:      msg.RetrievalMS,
			GenerationMS:     msg.GenerationMS,
			TotalMS:          msg.TotalMS,
			CreatedAt:        msg.CreatedAt.Format(time.RFC3339),
		})
	}
}

// Feedback records a like/dislike rating for an answer
func (h *Handlers) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message_id")
		return
	}
	if !repository.ValidRating(req.Rating) {
		writeError(w, http.StatusBadRequest, "rating must be like or dislike")
		return
	}

	err = h.chat.RecordFeedback(r.Context(), messageID, req.Rating, req.Comment)
	switch {
	case errors.Is(err, repository.ErrDuplicateFeedback):
		writeError(w, http.StatusConflict, "feedback already recorded for this message")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	case err != nil:
		h.internalError(w, r, "recording feedback failed", err)
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
	}
}

// Readiness checks backing dependencies
func (h *Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.readiness))
	for name, check := range h.readiness {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	writeJSON(w, status, checks)
}

// internalError logs the failure and returns a generic message. Internal
// details never reach the client.
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		"error", err,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, "could not process request")
}

func toPassageResponse(p retrieval.Passage) passageResponse {
	return passageResponse{
		Content: p.Content,
		Source:  p.Source,
		Page:    p.Page,
		Extra:   p.Extra,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
