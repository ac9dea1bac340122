package ingestion

import (
	"testing"
)

func TestNewCleaner_InvalidPattern(t *testing.T) {
	if _, err := NewCleaner([]string{`([`}); err == nil {
		t.Error("expected error for invalid regexp")
	}
}

func TestCleaner_RemovesFooterStamps(t *testing.T) {
	cleaner, err := NewCleaner([]string{`(Edital|Minuta)\s+\d+\s+SEI \d+\s*/\s*pg\.\s*\d+`})
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}

	input := "O prazo de entrega é de 30 dias.  Edital 42 SEI 12345 / pg. 7  O pagamento ocorre após o aceite."
	got := cleaner.Clean(input)
	want := "O prazo de entrega é de 30 dias. O pagamento ocorre após o aceite."

	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleaner_CollapsesWhitespace(t *testing.T) {
	cleaner, err := NewCleaner(nil)
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}

	got := cleaner.Clean("  line one\n\nline   two\t tabbed  ")
	want := "line one line two tabbed"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleaner_MultiplePatterns(t *testing.T) {
	cleaner, err := NewCleaner([]string{
		`Minuta\s+\d+\s+SEI \d+\s*/\s*pg\.\s*\d+`,
		`Página \d+ de \d+`,
	})
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}

	got := cleaner.Clean("Texto útil. Página 3 de 12 Minuta 9 SEI 555 / pg. 3 Mais texto.")
	want := "Texto útil. Mais texto."
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleaner_SkipsBlankPatterns(t *testing.T) {
	cleaner, err := NewCleaner([]string{"", "  "})
	if err != nil {
		t.Fatalf("NewCleaner: %v", err)
	}
	if got := cleaner.Clean("unchanged text"); got != "unchanged text" {
		t.Errorf("Clean() = %q", got)
	}
}
