package ingestion

import (
	"strings"
	"testing"
)

func TestNewChunker_Defaults(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	if chunker.config.TargetSize != 200 {
		t.Errorf("expected default TargetSize 200, got %d", chunker.config.TargetSize)
	}
	if chunker.config.MaxSize != 400 {
		t.Errorf("expected default MaxSize 400, got %d", chunker.config.MaxSize)
	}
	if chunker.config.Method != "sentence" {
		t.Errorf("expected default Method 'sentence', got %s", chunker.config.Method)
	}
}

func TestChunker_EmptyContent(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{Method: "fixed"})

	if chunks := chunker.Chunk(""); chunks != nil {
		t.Errorf("expected nil for empty content, got %v", chunks)
	}
	if chunks := chunker.Chunk("   "); chunks != nil {
		t.Errorf("expected nil for whitespace content, got %v", chunks)
	}
}

func TestChunker_FixedMethod(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		Method:     "fixed",
		TargetSize: 10,
		MaxSize:    20,
		Overlap:    2,
	})

	words := make([]string, 25)
	for i := range words {
		words[i] = "word"
	}
	chunks := chunker.Chunk(strings.Join(words, " "))

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has wrong index %d", i, chunk.Index)
		}
		if chunk.Metadata["method"] != "fixed" {
			t.Errorf("chunk %d has wrong method %s", i, chunk.Metadata["method"])
		}
		if chunk.Content == "" {
			t.Errorf("chunk %d has empty content", i)
		}
		if len(strings.Fields(chunk.Content)) > 10 {
			t.Errorf("chunk %d exceeds target size", i)
		}
	}
}

func TestChunker_SentenceMethod(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		Method:     "sentence",
		TargetSize: 20,
		MaxSize:    50,
		Overlap:    5,
	})

	content := "This is the first sentence. This is the second sentence. This is the third sentence."

	chunks := chunker.Chunk(content)

	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}

	for _, chunk := range chunks {
		if chunk.Metadata["method"] != "sentence" {
			t.Errorf("expected method 'sentence', got %s", chunk.Metadata["method"])
		}
	}
}

func TestChunker_SentenceOverlap(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		Method:     "sentence",
		TargetSize: 10,
		MaxSize:    15,
		Overlap:    5,
	})

	content := "Alpha bravo charlie delta echo foxtrot. Golf hotel india juliet kilo lima. Mike november oscar papa quebec romeo."

	chunks := chunker.Chunk(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Consecutive chunks share the tail of the previous one.
	if !strings.Contains(chunks[1].Content, "foxtrot") && !strings.Contains(chunks[1].Content, "lima") {
		t.Errorf("expected overlap from previous chunk, got %q", chunks[1].Content)
	}
}

func TestChunker_LongSentenceIsSplit(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		Method:     "sentence",
		TargetSize: 5,
		MaxSize:    8,
		Overlap:    0,
	})

	words := make([]string, 30)
	for i := range words {
		words[i] = "word"
	}
	content := strings.Join(words, " ") + "."

	chunks := chunker.Chunk(content)
	if len(chunks) < 2 {
		t.Fatalf("expected long sentence to be split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Metadata["split"] != "true" {
			t.Errorf("chunk %d missing split marker", i)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"single sentence", "This is a sentence.", 1},
		{"multiple sentences", "First sentence. Second sentence. Third sentence.", 3},
		{"with exclamation", "Hello! How are you? I am fine.", 3},
		{"no ending punctuation", "This has no ending punctuation", 1},
		{"article abbreviation", "Conforme Art. 12 do edital. Pagamento em 30 dias.", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences := splitSentences(tt.input)
			if len(sentences) != tt.expected {
				t.Errorf("expected %d sentences, got %d: %v", tt.expected, len(sentences), sentences)
			}
		})
	}
}

func TestIsAbbreviation(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Dr.", true},
		{"Art.", true},
		{"conforme fls.", true},
		{"e.g.", true},
		{"etc.", true},
		{"Hello.", false},
		{"sentence.", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := isAbbreviation(tt.input)
			if result != tt.expected {
				t.Errorf("isAbbreviation(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}
