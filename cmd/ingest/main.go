// Command ingest rebuilds the vector index from the PDF documents in the
// configured docs directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/editalbot/docqa/internal/config"
	"github.com/editalbot/docqa/internal/embedder"
	"github.com/editalbot/docqa/internal/ingestion"
	"github.com/editalbot/docqa/internal/vectorstore"
)

func main() {
	docsDir := flag.String("docs", "", "directory of PDF documents (overrides DOCS_DIR)")
	flag.Parse()

	if err := run(*docsDir); err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}
}

func run(docsDir string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if docsDir == "" {
		docsDir = cfg.DocsDir
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})

	cleaner, err := ingestion.NewCleaner(cfg.FooterPatterns)
	if err != nil {
		return err
	}

	pipeline, err := ingestion.NewPipeline(embed, vectorStore, cleaner, ingestion.PipelineConfig{
		DocsDir:     docsDir,
		Concurrency: cfg.IngestConcurrency,
		Chunker: ingestion.ChunkerConfig{
			Method:     cfg.ChunkMethod,
			TargetSize: cfg.ChunkTargetSize,
			MaxSize:    cfg.ChunkMaxSize,
			Overlap:    cfg.ChunkOverlap,
		},
	}, slog.Default())
	if err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("index rebuilt",
		"documents", stats.Documents,
		"pages", stats.Pages,
		"chunks", stats.Chunks,
	)
	return nil
}
