package ingestion

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Page holds the extracted text of one PDF page
type Page struct {
	Number int // 1-based
	Text   string
}

// ExtractPDF reads a PDF file and returns the plain text of each page.
// Pages that yield no text (scanned images, empty pages) are skipped.
func ExtractPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", i, path, err)
		}
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
