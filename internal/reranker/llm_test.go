package reranker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseScoreResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		numTexts int
		want     []float32
		wantErr  bool
	}{
		{
			name:     "plain JSON",
			response: `{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.3}]}`,
			numTexts: 2,
			want:     []float32{0.9, 0.3},
		},
		{
			name:     "markdown json block",
			response: "```json\n{\"scores\": [{\"doc_index\": 0, \"score\": 0.5}]}\n```",
			numTexts: 1,
			want:     []float32{0.5},
		},
		{
			name:     "bare code block",
			response: "```\n{\"scores\": [{\"doc_index\": 0, \"score\": 0.7}]}\n```",
			numTexts: 1,
			want:     []float32{0.7},
		},
		{
			name:     "out of order indices",
			response: `{"scores": [{"doc_index": 1, "score": 0.2}, {"doc_index": 0, "score": 0.8}]}`,
			numTexts: 2,
			want:     []float32{0.8, 0.2},
		},
		{
			name:     "clamps out of range scores",
			response: `{"scores": [{"doc_index": 0, "score": 1.5}, {"doc_index": 1, "score": -0.2}]}`,
			numTexts: 2,
			want:     []float32{1.0, 0.0},
		},
		{
			name:     "missing index",
			response: `{"scores": [{"doc_index": 0, "score": 0.9}]}`,
			numTexts: 2,
			wantErr:  true,
		},
		{
			name:     "duplicate index",
			response: `{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 0, "score": 0.1}]}`,
			numTexts: 2,
			wantErr:  true,
		},
		{
			name:     "index out of range",
			response: `{"scores": [{"doc_index": 5, "score": 0.9}]}`,
			numTexts: 1,
			wantErr:  true,
		},
		{
			name:     "not JSON",
			response: "I would rate document 0 highly.",
			numTexts: 1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores, err := parseScoreResponse(tt.response, tt.numTexts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseScoreResponse error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			for i := range tt.want {
				if scores[i] != tt.want[i] {
					t.Errorf("score[%d] = %f, want %f", i, scores[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildScoringPrompt_TruncatesLongTexts(t *testing.T) {
	encoder := NewLLMCrossEncoder(nil)

	long := strings.Repeat("x", 1000)
	prompt := encoder.buildScoringPrompt("query", []string{long})

	if strings.Contains(prompt, strings.Repeat("x", 501)) {
		t.Error("expected document content to be truncated in prompt")
	}
	if !strings.Contains(prompt, "...") {
		t.Error("expected truncation marker in prompt")
	}
}

func TestBuildScoringPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	encoder := NewLLMCrossEncoder(nil)

	// Each rune is multi-byte, so a byte-offset cut would split a
	// character and corrupt the prompt.
	long := strings.Repeat("licitação", 100)
	prompt := encoder.buildScoringPrompt("query", []string{long})

	if !utf8.ValidString(prompt) {
		t.Error("prompt contains invalid UTF-8 after truncation")
	}
	if !strings.Contains(prompt, "...") {
		t.Error("expected truncation marker in prompt")
	}
	if strings.Contains(prompt, long) {
		t.Error("expected document content to be truncated in prompt")
	}
}
