// Package ingest implements the document ingestion pipeline. It extracts
// plain text from PDF, Markdown, and text files, splits it into overlapping
// chunks, embeds each chunk, and upserts the results into the vector store
// and the SQLite chunk catalog. The pipeline is invoked by the `docqa ingest`
// CLI command and by the serve --watch re-indexer.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Page is the plain text of one document page. Non-paginated formats
// (Markdown, plain text) yield a single page numbered 1.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the extracted plain text.
	Text string
}

// Format identifies a supported document format.
type Format string

const (
	// FormatPDF is extracted per page with the pdf library.
	FormatPDF Format = "pdf"

	// FormatMarkdown is parsed to plain text via the goldmark AST.
	FormatMarkdown Format = "markdown"

	// FormatText is read as-is.
	FormatText Format = "text"
)

// DetectFormat infers the document format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".txt", ".text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("ingest: unsupported file type %q (supported: .pdf, .md, .txt)", filepath.Ext(path))
	}
}

// ExtractPages returns the plain text of the file at path, one entry per
// page. The extraction method is chosen by file extension.
func ExtractPages(path string) ([]Page, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		return extractPDF(path)
	case FormatMarkdown:
		return extractMarkdown(path)
	default:
		return extractText(path)
	}
}

// extractText reads a plain text file as a single page.
func extractText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: text}}, nil
}
