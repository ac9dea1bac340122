// Package ingestion handles document processing: PDF text extraction,
// cleaning, chunking, and pipeline orchestration.
package ingestion

import (
	"strconv"
	"strings"
	"unicode"
)

// Chunk represents a piece of chunked content
type Chunk struct {
	Content  string
	Index    int
	Metadata map[string]string
}

// ChunkerConfig holds chunking configuration
type ChunkerConfig struct {
	Method     string // sentence, fixed
	TargetSize int    // target words per chunk
	MaxSize    int    // max words per chunk
	Overlap    int    // overlap words
}

// Chunker handles text chunking with different strategies
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a new Chunker with the given configuration
func NewChunker(config ChunkerConfig) *Chunker {
	// Apply defaults if not set
	if config.TargetSize <= 0 {
		config.TargetSize = 200
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 400
	}
	if config.Overlap < 0 {
		config.Overlap = 40
	}
	if config.Method == "" {
		config.Method = "sentence"
	}

	return &Chunker{config: config}
}

// Chunk splits content into chunks based on the configured method
func (c *Chunker) Chunk(content string) []Chunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	switch c.config.Method {
	case "fixed":
		return c.chunkFixed(content)
	default:
		return c.chunkSentence(content)
	}
}

// chunkFixed splits content into fixed-size chunks with overlap
func (c *Chunker) chunkFixed(content string) []Chunk {
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	targetWords := c.config.TargetSize
	overlapWords := c.config.Overlap

	for i := 0; i < len(words); {
		end := i + targetWords
		if end > len(words) {
			end = len(words)
		}

		chunkWords := words[i:end]
		chunks = append(chunks, Chunk{
			Content: strings.Join(chunkWords, " "),
			Index:   len(chunks),
			Metadata: map[string]string{
				"method":     "fixed",
				"word_count": strconv.Itoa(len(chunkWords)),
			},
		})

		// Move forward by target minus overlap
		step := targetWords - overlapWords
		if step <= 0 {
			step = targetWords / 2
			if step <= 0 {
				step = 1
			}
		}
		i += step

		if end >= len(words) {
			break
		}
	}

	return chunks
}

// chunkSentence groups sentences until target size is reached
func (c *Chunker) chunkSentence(content string) []Chunk {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var currentSentences []string
	currentWordCount := 0

	for _, sentence := range sentences {
		sentenceWords := len(strings.Fields(sentence))

		// If adding this sentence would exceed max size and we have content, flush
		if currentWordCount+sentenceWords > c.config.MaxSize && currentWordCount > 0 {
			chunks = append(chunks, c.createSentenceChunk(currentSentences, len(chunks)))
			currentSentences, currentWordCount = c.calculateSentenceOverlap(currentSentences)
		}

		// If a single sentence exceeds max, split it by words
		if sentenceWords > c.config.MaxSize {
			if currentWordCount > 0 {
				chunks = append(chunks, c.createSentenceChunk(currentSentences, len(chunks)))
				currentSentences = nil
				currentWordCount = 0
			}
			chunks = append(chunks, c.splitLongSentence(sentence, len(chunks))...)
			continue
		}

		currentSentences = append(currentSentences, sentence)
		currentWordCount += sentenceWords

		if currentWordCount >= c.config.TargetSize {
			chunks = append(chunks, c.createSentenceChunk(currentSentences, len(chunks)))
			currentSentences, currentWordCount = c.calculateSentenceOverlap(currentSentences)
		}
	}

	// Flush remaining content
	if len(currentSentences) > 0 {
		chunks = append(chunks, c.createSentenceChunk(currentSentences, len(chunks)))
	}

	return chunks
}

// createSentenceChunk creates a chunk from sentences
func (c *Chunker) createSentenceChunk(sentences []string, index int) Chunk {
	content := strings.TrimSpace(strings.Join(sentences, " "))
	return Chunk{
		Content: content,
		Index:   index,
		Metadata: map[string]string{
			"method":         "sentence",
			"sentence_count": strconv.Itoa(len(sentences)),
			"word_count":     strconv.Itoa(len(strings.Fields(content))),
		},
	}
}

// calculateSentenceOverlap calculates which sentences to keep for overlap
func (c *Chunker) calculateSentenceOverlap(sentences []string) ([]string, int) {
	if c.config.Overlap <= 0 || len(sentences) == 0 {
		return nil, 0
	}

	var overlapSentences []string
	overlapWords := 0

	// Work backwards from the end to collect overlap
	for i := len(sentences) - 1; i >= 0 && overlapWords < c.config.Overlap; i-- {
		overlapSentences = append([]string{sentences[i]}, overlapSentences...)
		overlapWords += len(strings.Fields(sentences[i]))
	}

	return overlapSentences, overlapWords
}

// splitLongSentence splits a sentence that exceeds max size
func (c *Chunker) splitLongSentence(sentence string, startIndex int) []Chunk {
	words := strings.Fields(sentence)
	var chunks []Chunk

	for i := 0; i < len(words); {
		end := i + c.config.TargetSize
		if end > len(words) {
			end = len(words)
		}

		chunkWords := words[i:end]
		chunks = append(chunks, Chunk{
			Content: strings.Join(chunkWords, " "),
			Index:   startIndex + len(chunks),
			Metadata: map[string]string{
				"method":     "sentence",
				"word_count": strconv.Itoa(len(chunkWords)),
				"split":      "true",
			},
		})

		step := c.config.TargetSize - c.config.Overlap
		if step <= 0 {
			step = c.config.TargetSize / 2
			if step <= 0 {
				step = 1
			}
		}
		i += step

		if end >= len(words) {
			break
		}
	}

	return chunks
}

// splitSentences splits text into sentences
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Sentence boundary only if followed by space or end of text
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentence := strings.TrimSpace(current.String())
				if sentence != "" && !isAbbreviation(sentence) {
					sentences = append(sentences, sentence)
					current.Reset()
				}
			}
		}
	}

	remaining := strings.TrimSpace(current.String())
	if remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}

// isAbbreviation checks if a sentence ends with a common abbreviation.
// Includes Portuguese forms common in procurement documents.
func isAbbreviation(text string) bool {
	abbreviations := []string{
		"dr.", "dra.", "sr.", "sra.", "prof.",
		"art.", "inc.", "par.", "pg.", "fl.", "fls.",
		"no.", "nr.", "vol.",
		"etc.", "e.g.", "i.e.", "ex.",
		"ltda.", "cia.", "s.a.",
	}

	lower := strings.ToLower(text)
	for _, abbr := range abbreviations {
		if strings.HasSuffix(lower, abbr) {
			return true
		}
	}
	return false
}
