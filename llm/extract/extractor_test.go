package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pssrag/llm/parser"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractDirParallelSlices(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "0123_ProjectA.txt", "Alpha site remediation and monitoring program for the northern campus.")
	writeFile(t, dir, "0456_ProjectB.txt", "Bravo highway interchange design including drainage and lighting plans.")
	writeFile(t, dir, "notes.ini", "not a document")

	ex := New(parser.DefaultRegistry())
	corpus, err := ex.ExtractDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(corpus.Chunks) != len(corpus.SourceNames) {
		t.Fatalf("chunks/source names length mismatch: %d vs %d", len(corpus.Chunks), len(corpus.SourceNames))
	}
	if len(corpus.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(corpus.Chunks))
	}
	for i, name := range corpus.SourceNames {
		if filepath.Ext(name) != "" {
			t.Errorf("source name %d still has an extension: %q", i, name)
		}
	}
}

func TestExtractDirSkipsCorruptDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "A perfectly readable description of the water treatment facility upgrade.")
	// Garbage bytes with a .pdf extension: parsing fails, extraction continues.
	writeFile(t, dir, "broken.pdf", "this is not a pdf")

	ex := New(parser.DefaultRegistry())
	corpus, err := ex.ExtractDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(corpus.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(corpus.Chunks))
	}
	if corpus.SourceNames[0] != "good" {
		t.Errorf("unexpected source name %q", corpus.SourceNames[0])
	}
	if len(corpus.Skipped) != 1 {
		t.Fatalf("expected 1 skipped file, got %d", len(corpus.Skipped))
	}
	if filepath.Base(corpus.Skipped[0].Path) != "broken.pdf" {
		t.Errorf("unexpected skipped path %q", corpus.Skipped[0].Path)
	}
}

func TestExtractDirHonorsGlobs(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sheets"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "readme.txt", "Top level file that should not be picked up by the sheets glob.")
	writeFile(t, filepath.Join(dir, "sheets"), "0789_ProjectC.txt", "Charlie rail yard expansion and signal modernization project summary.")

	ex := New(parser.DefaultRegistry(), WithGlobs("sheets/**/*.txt"))
	corpus, err := ex.ExtractDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(corpus.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(corpus.Chunks))
	}
	if corpus.SourceNames[0] != "0789_ProjectC" {
		t.Errorf("unexpected source name %q", corpus.SourceNames[0])
	}
}

func TestExtractDirEmptyDirectory(t *testing.T) {
	ex := New(parser.DefaultRegistry())
	corpus, err := ex.ExtractDir(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus.Chunks) != 0 || len(corpus.SourceNames) != 0 {
		t.Errorf("expected empty corpus, got %d chunks", len(corpus.Chunks))
	}
}
