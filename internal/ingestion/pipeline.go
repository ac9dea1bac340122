package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/editalbot/docqa/internal/embedder"
	"github.com/editalbot/docqa/internal/vectorstore"
)

// PipelineConfig configures the ingestion pipeline
type PipelineConfig struct {
	DocsDir     string
	Concurrency int
	Chunker     ChunkerConfig
}

// Stats summarizes one ingestion run
type Stats struct {
	Documents int
	Pages     int
	Chunks    int
}

// Pipeline ingests PDF documents into the vector index
type Pipeline struct {
	embedder embedder.Embedder
	store    vectorstore.VectorStore
	cleaner  *Cleaner
	chunker  *Chunker
	config   PipelineConfig
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline
func NewPipeline(emb embedder.Embedder, store vectorstore.VectorStore, cleaner *Cleaner, config PipelineConfig, logger *slog.Logger) (*Pipeline, error) {
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if cleaner == nil {
		return nil, fmt.Errorf("cleaner is required")
	}
	if config.DocsDir == "" {
		return nil, fmt.Errorf("docs directory is required")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Cap chunk sizes at the embedding model's safe limit; the model
	// silently truncates anything longer.
	cc := config.Chunker
	if limit := embedder.GetModelConfig(emb.ModelName()).MaxChunkWords; limit > 0 {
		if cc.MaxSize > limit {
			logger.Warn("chunk max size exceeds embedding model limit, capping",
				"model", emb.ModelName(),
				"configured", cc.MaxSize,
				"limit", limit)
		}
		if cc.MaxSize <= 0 || cc.MaxSize > limit {
			cc.MaxSize = limit
		}
		if cc.TargetSize <= 0 || cc.TargetSize > cc.MaxSize {
			cc.TargetSize = cc.MaxSize
		}
	}

	return &Pipeline{
		embedder: emb,
		store:    store,
		cleaner:  cleaner,
		chunker:  NewChunker(cc),
		config:   config,
		logger:   logger,
	}, nil
}

// Run rebuilds the index from every PDF under the docs directory. The
// collection is recreated first, so a run always reflects the current
// contents of the directory.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	paths, err := p.findPDFs()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF documents found in %s", p.config.DocsDir)
	}

	if err := p.store.Recreate(ctx, p.embedder.Dimension()); err != nil {
		return nil, fmt.Errorf("failed to recreate collection: %w", err)
	}

	stats := &Stats{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for _, path := range paths {
		g.Go(func() error {
			pages, chunks, err := p.ingestDocument(gctx, path)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			mu.Lock()
			stats.Documents++
			stats.Pages += pages
			stats.Chunks += chunks
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.logger.Info("ingestion complete",
		"documents", stats.Documents,
		"pages", stats.Pages,
		"chunks", stats.Chunks)
	return stats, nil
}

// ingestDocument processes a single PDF and upserts its chunks
func (p *Pipeline) ingestDocument(ctx context.Context, path string) (pages, chunkCount int, err error) {
	source := p.relativeSource(path)
	p.logger.Info("ingesting document", "source", source)

	extracted, err := ExtractPDF(path)
	if err != nil {
		return 0, 0, err
	}

	var chunks []vectorstore.Chunk
	for _, page := range extracted {
		text := p.cleaner.Clean(page.Text)
		if text == "" {
			continue
		}
		for _, c := range p.chunker.Chunk(text) {
			metadata := map[string]string{
				"source":      source,
				"page":        strconv.Itoa(page.Number),
				"chunk_index": strconv.Itoa(c.Index),
			}
			for k, v := range c.Metadata {
				metadata[k] = v
			}
			chunks = append(chunks, vectorstore.Chunk{
				ID:       uuid.New().String(),
				Content:  c.Content,
				Metadata: metadata,
			})
		}
	}
	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks", "source", source)
		return len(extracted), 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	if err := p.store.Upsert(ctx, chunks); err != nil {
		return 0, 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	return len(extracted), len(chunks), nil
}

// findPDFs walks the docs directory collecting PDF paths
func (p *Pipeline) findPDFs() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(p.config.DocsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan docs directory: %w", err)
	}
	return paths, nil
}

// relativeSource reduces an absolute path to one relative to the docs
// directory so stored metadata does not leak local filesystem layout.
func (p *Pipeline) relativeSource(path string) string {
	rel, err := filepath.Rel(p.config.DocsDir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
