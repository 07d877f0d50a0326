package extract

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"pssrag/llm/parser"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultWatermark is a fixed vendor watermark found in the project-sheet
// PDFs; it is stripped from every page before cleanup.
const DefaultWatermark = "www.psands.com"

// Corpus is the output of one extraction pass: one cleaned text chunk per
// document, with source names (file name without extension) in the same
// order. len(Chunks) == len(SourceNames) always holds.
type Corpus struct {
	Chunks      []string
	SourceNames []string
	Skipped     []SkippedFile
}

// SkippedFile records a document that failed extraction and was skipped.
type SkippedFile struct {
	Path string
	Err  error
}

// Extractor turns a directory tree of documents into retrieval chunks.
type Extractor struct {
	registry  *parser.Registry
	watermark string
	globs     []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWatermark overrides the watermark substring stripped from pages.
func WithWatermark(w string) Option {
	return func(e *Extractor) { e.watermark = w }
}

// WithGlobs restricts discovery to paths matching any of the given
// doublestar patterns, evaluated relative to the extraction root.
func WithGlobs(patterns ...string) Option {
	return func(e *Extractor) { e.globs = patterns }
}

// New creates an Extractor over the given parser registry.
func New(registry *parser.Registry, opts ...Option) *Extractor {
	e := &Extractor{
		registry:  registry,
		watermark: DefaultWatermark,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDir walks dir recursively and extracts one chunk per document.
// Files without a registered parser are ignored; a document that fails to
// parse is skipped and recorded, never aborting the rest of the corpus.
// Chunk order follows directory walk order.
func (e *Extractor) ExtractDir(ctx context.Context, dir string) (*Corpus, error) {
	corpus := &Corpus{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !e.wantFile(dir, path) {
			return nil
		}

		doc, err := e.registry.ParseFile(ctx, path)
		if err != nil {
			log.Printf("extract: skipping %s: %v", path, err)
			corpus.Skipped = append(corpus.Skipped, SkippedFile{Path: path, Err: err})
			return nil
		}

		corpus.Chunks = append(corpus.Chunks, e.cleanDocument(doc))
		corpus.SourceNames = append(corpus.SourceNames, sourceName(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	return corpus, nil
}

// wantFile reports whether path is a document we extract: it must have a
// registered parser, and match the include globs when any are set.
func (e *Extractor) wantFile(root, path string) bool {
	if _, ok := e.registry.GetParserForPath(path); !ok {
		return false
	}
	if len(e.globs) == 0 {
		return true
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range e.globs {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// cleanDocument cleans each page and joins them into a single chunk; a
// whole document is one retrieval unit.
func (e *Extractor) cleanDocument(doc *parser.Document) string {
	cleaned := make([]string, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		cleaned = append(cleaned, cleanPage(page, e.watermark))
	}
	return strings.Join(cleaned, "\n")
}

// sourceName strips the directory and extension from a document path.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
