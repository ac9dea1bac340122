package config

import (
	"log/slog"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.SearchKRaw != 20 {
		t.Errorf("SearchKRaw = %d, want 20", cfg.SearchKRaw)
	}
	if cfg.SearchKFinal != 3 {
		t.Errorf("SearchKFinal = %d, want 3", cfg.SearchKFinal)
	}
	if cfg.RerankerBackend != "tei" {
		t.Errorf("RerankerBackend = %q, want tei", cfg.RerankerBackend)
	}
	if cfg.EmbeddingDimension != 384 {
		t.Errorf("EmbeddingDimension = %d, want 384", cfg.EmbeddingDimension)
	}
	if len(cfg.FooterPatterns) == 0 {
		t.Error("expected a default footer pattern")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SEARCH_K_RAW", "50")
	t.Setenv("SEARCH_K_FINAL", "5")
	t.Setenv("RERANKER_BACKEND", "llm")
	t.Setenv("FOOTER_PATTERNS", `foo\d+|bar\s+baz`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchKRaw != 50 {
		t.Errorf("SearchKRaw = %d, want 50", cfg.SearchKRaw)
	}
	if cfg.SearchKFinal != 5 {
		t.Errorf("SearchKFinal = %d, want 5", cfg.SearchKFinal)
	}
	if cfg.RerankerBackend != "llm" {
		t.Errorf("RerankerBackend = %q, want llm", cfg.RerankerBackend)
	}
	if len(cfg.FooterPatterns) != 2 {
		t.Errorf("FooterPatterns = %v, want 2 patterns", cfg.FooterPatterns)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero k_raw", "SEARCH_K_RAW", "0"},
		{"negative k_raw", "SEARCH_K_RAW", "-5"},
		{"zero k_final", "SEARCH_K_FINAL", "0"},
		{"zero dimension", "EMBEDDING_DIMENSION", "0"},
		{"unknown reranker backend", "RERANKER_BACKEND", "bm25"},
		{"empty collection", "QDRANT_COLLECTION", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected Load to fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}
