package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Text is reassembled row by row so that the
// extractor's line-oriented cleanup sees the same line structure a text
// layer dump would produce.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse reads and parses PDF content from the reader
func (p *PDFParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}

	return p.extract(ctx, reader, "")
}

// ParseFile reads and parses a PDF file
func (p *PDFParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}
	defer f.Close()

	return p.extract(ctx, reader, filePath)
}

// FileType returns the file type this parser handles
func (p *PDFParser) FileType() FileType {
	return FileTypePDF
}

// extract walks every page and rebuilds its text line by line.
func (p *PDFParser) extract(ctx context.Context, reader *pdf.Reader, filePath string) (*Document, error) {
	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)

	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := pageText(page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	title := ""
	if len(pages) > 0 {
		title = ExtractTitle(pages[0], filePath)
	}

	return &Document{
		Pages: pages,
		Title: title,
		Metadata: map[string]interface{}{
			"page_count": numPages,
		},
	}, nil
}

// pageText joins the page's text rows top to bottom, one output line per row.
func pageText(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			sb.WriteString(word.S)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
