package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/editalbot/docqa/internal/auth"
	"github.com/editalbot/docqa/internal/config"
	"github.com/editalbot/docqa/internal/embedder"
	"github.com/editalbot/docqa/internal/llm"
	"github.com/editalbot/docqa/internal/repository"
	"github.com/editalbot/docqa/internal/repository/postgres"
	"github.com/editalbot/docqa/internal/reranker"
	"github.com/editalbot/docqa/internal/retrieval"
	"github.com/editalbot/docqa/internal/server"
	"github.com/editalbot/docqa/internal/service"
	"github.com/editalbot/docqa/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting document QA service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	// PostgreSQL for chat history and feedback
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	slog.Info("connected to PostgreSQL")

	historyRepo := postgres.NewHistoryRepo(db)

	// Qdrant vector index
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	if err := vectorStore.EnsureCollection(ctx, cfg.EmbeddingDimension); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	slog.Info("connected to Qdrant", "collection", cfg.QdrantCollection)

	// Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})
	slog.Info("initialized embedder", "model", cfg.EmbeddingModel)

	// Ollama LLM
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.LLMModel),
	)
	slog.Info("initialized LLM", "model", cfg.LLMModel)

	// Cross-encoder backend
	var encoder reranker.CrossEncoder
	switch cfg.RerankerBackend {
	case "llm":
		encoder = reranker.NewLLMCrossEncoder(llmClient, reranker.WithModel(cfg.LLMModel))
	default:
		encoder = reranker.NewTEICrossEncoder(
			reranker.WithTEIBaseURL(cfg.RerankerURL),
			reranker.WithTEIModel(cfg.RerankerModel),
		)
	}
	slog.Info("initialized cross-encoder", "backend", cfg.RerankerBackend, "model", cfg.RerankerModel)

	pipeline, err := retrieval.New(embed, vectorStore, encoder, retrieval.Config{
		KRaw:   cfg.SearchKRaw,
		KFinal: cfg.SearchKFinal,
	}, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to build retrieval pipeline: %w", err)
	}

	chatSvc := service.NewChatService(pipeline, llmClient, historyRepo, service.ChatOptions{
		Model:        cfg.LLMModel,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
	}, slog.Default())

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
		Issuer: "docqa",
	})

	readiness := map[string]server.ReadinessChecker{
		"postgres": func(ctx context.Context) error {
			return db.Pool.Ping(ctx)
		},
		"qdrant": func(ctx context.Context) error {
			_, err := vectorStore.Count(ctx)
			return err
		},
	}

	handlers := server.NewHandlers(chatSvc, pipeline, jwtManager, readiness, slog.Default())
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
	}, handlers, jwtManager, cfg.AdminAPIKey)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.HistoryRepository = (*postgres.HistoryRepo)(nil)
	_ vectorstore.VectorStore      = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder            = (*embedder.OllamaEmbedder)(nil)
	_ llm.LLM                      = (*llm.OllamaClient)(nil)
	_ reranker.CrossEncoder        = (*reranker.TEICrossEncoder)(nil)
	_ reranker.CrossEncoder        = (*reranker.LLMCrossEncoder)(nil)
	_ server.Searcher              = (*retrieval.Pipeline)(nil)
	_ service.Retriever            = (*retrieval.Pipeline)(nil)
)
