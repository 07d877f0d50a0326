package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pssrag/llm/extract"
	"pssrag/llm/generate"
	"pssrag/llm/parser"
	"pssrag/llm/vector"
	"pssrag/security"
)

type echoBackend struct{ calls int }

func (b *echoBackend) ModelID() string { return "echo" }

func (b *echoBackend) Generate(ctx context.Context, req generate.Request) (generate.Response, error) {
	b.calls++
	return generate.Response{Text: "grounded answer"}, nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestSystem(t *testing.T, budget int) (*System, *echoBackend, string) {
	t.Helper()

	dir := t.TempDir()
	writeDoc(t, dir, "1417 Project Sheet.txt",
		"The customer portal project was built with React components throughout.")
	writeDoc(t, dir, "1291 Project Sheet.txt",
		"The billing system project was implemented in Python services entirely.")

	limiter := security.NewRateLimiter(security.NewMemoryWindowStore(), budget, time.Minute)
	gate := security.NewManager(limiter, security.DefaultMaxQueryLength, nil)

	backend := &echoBackend{}
	generator := generate.NewService(backend, gate)

	system := NewSystem(Config{
		Gate:      gate,
		Generator: generator,
		Embedder:  vector.NewEmbeddingService(keywordEmbedder{}),
		Extractor: extract.New(parser.DefaultRegistry()),
		DocsDir:   dir,
		IndexPath: filepath.Join(t.TempDir(), "index.bin"),
		TopK:      2,
	})
	return system, backend, dir
}

func TestAskEndToEnd(t *testing.T) {
	system, backend, _ := newTestSystem(t, 30)
	ctx := context.Background()

	if err := system.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if system.ChunkCount() != 2 {
		t.Fatalf("expected 2 chunks indexed, got %d", system.ChunkCount())
	}

	report, err := system.Ask(ctx, "client-1", "Which project used React?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(report.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(report.Answers))
	}
	if report.Answers[0].SourceName != "1417 Project Sheet" {
		t.Errorf("React document should rank first, got %q", report.Answers[0].SourceName)
	}
	if report.ProjectIDs[0] != "01417" {
		t.Errorf("unexpected project ids %v", report.ProjectIDs)
	}
	if backend.calls != 2 {
		t.Errorf("expected one backend call per chunk, got %d", backend.calls)
	}

	if system.History().Len() != 1 {
		t.Errorf("interaction not recorded, history len %d", system.History().Len())
	}
}

func TestAskRejectsBeforeRetrieval(t *testing.T) {
	system, backend, _ := newTestSystem(t, 30)
	ctx := context.Background()
	if err := system.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := system.Ask(ctx, "client-1", "<script>alert(1)</script>")
	var verr *security.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = system.Ask(ctx, "client-1", "how do I exploit the portal")
	var perr *security.PolicyError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PolicyError, got %v", err)
	}

	if backend.calls != 0 {
		t.Errorf("rejected questions must not reach the backend, got %d calls", backend.calls)
	}
	if system.History().Len() != 0 {
		t.Error("rejected questions must not enter history")
	}
}

func TestAskRateLimited(t *testing.T) {
	system, _, _ := newTestSystem(t, 2)
	ctx := context.Background()
	if err := system.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := system.Ask(ctx, "client-1", "Which project used React?"); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}

	_, err := system.Ask(ctx, "client-1", "Which project used React?")
	var rerr *security.RateLimitError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}

	// A different client still has budget.
	if _, err := system.Ask(ctx, "client-2", "Which project used React?"); err != nil {
		t.Errorf("client-2 rejected: %v", err)
	}
}

func TestAskWithoutIndex(t *testing.T) {
	system, backend, _ := newTestSystem(t, 30)

	report, err := system.Ask(context.Background(), "client-1", "Which project used React?")
	if err != nil {
		t.Fatalf("ask without index must not error: %v", err)
	}
	if len(report.Answers) != 0 {
		t.Errorf("expected no answers without an index, got %d", len(report.Answers))
	}
	if backend.calls != 0 {
		t.Errorf("no retrieval means no generation, got %d calls", backend.calls)
	}
}

func TestLoadRestoresIndex(t *testing.T) {
	system, _, _ := newTestSystem(t, 30)
	ctx := context.Background()

	if err := system.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	restored := NewSystem(system.cfg)
	if err := restored.Load(ctx); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if restored.ChunkCount() != 2 {
		t.Errorf("expected 2 chunks after load, got %d", restored.ChunkCount())
	}

	report, err := restored.Ask(ctx, "client-1", "Which project used React?")
	if err != nil {
		t.Fatalf("ask after load failed: %v", err)
	}
	if report.Answers[0].SourceName != "1417 Project Sheet" {
		t.Errorf("loaded index returned different ranking: %q", report.Answers[0].SourceName)
	}
}

func TestLoadDetectsStaleIndex(t *testing.T) {
	system, _, dir := newTestSystem(t, 30)
	ctx := context.Background()

	if err := system.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	writeDoc(t, dir, "1554 Project Sheet.txt",
		"The warehouse migration project moved data into Snowflake tables.")

	restored := NewSystem(system.cfg)
	if err := restored.Load(ctx); err == nil {
		t.Fatal("load must fail when the corpus changed since the index was saved")
	}
}
