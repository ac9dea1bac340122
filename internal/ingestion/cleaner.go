package ingestion

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// Cleaner strips recurring page furniture from extracted text before
// chunking. Footer stamps repeat on every page and would otherwise pollute
// most chunks with identical noise.
type Cleaner struct {
	footers []*regexp.Regexp
}

// NewCleaner compiles the given footer patterns. An invalid pattern is a
// configuration error and fails loudly.
func NewCleaner(footerPatterns []string) (*Cleaner, error) {
	footers := make([]*regexp.Regexp, 0, len(footerPatterns))
	for _, pattern := range footerPatterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid footer pattern %q: %w", pattern, err)
		}
		footers = append(footers, re)
	}
	return &Cleaner{footers: footers}, nil
}

// Clean removes footer stamps and collapses whitespace
func (c *Cleaner) Clean(text string) string {
	for _, re := range c.footers {
		text = re.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
