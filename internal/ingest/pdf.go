package ingest

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts plain text from a PDF file, one entry per page. Pages
// whose extraction fails or returns nothing are included with empty text so
// page numbering stays aligned with the document; the pipeline drops them.
func extractPDF(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ingest: stat %s: %w", path, err)
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("ingest: parsing %s: %w", path, err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the whole file.
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}
