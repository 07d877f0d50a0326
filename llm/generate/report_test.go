package generate

import (
	"context"
	"strings"
	"testing"

	"pssrag/llm"
)

func retrievedChunks(sources ...string) llm.QueryResult {
	result := llm.QueryResult{ProjectIDs: []string{"01417", "01291"}}
	for i, source := range sources {
		result.Chunks = append(result.Chunks, llm.SearchResult{
			Chunk: llm.Chunk{ID: i, Text: "text of " + source, SourceName: source},
			Score: 1.0 - float32(i)*0.1,
		})
	}
	return result
}

func TestGenerateReportPreservesOrder(t *testing.T) {
	backend := &fakeBackend{script: []fakeReply{{resp: Response{Text: "answer"}}}}
	svc := newTestService(backend)

	report := svc.GenerateReport(context.Background(), "client-1", "What projects used React?",
		retrievedChunks("1417 Project Sheet", "1291 Project Sheet", "1554 Project Sheet"))

	if report.Question != "What projects used React?" {
		t.Errorf("unexpected question %q", report.Question)
	}
	want := []string{"1417 Project Sheet", "1291 Project Sheet", "1554 Project Sheet"}
	if len(report.Answers) != len(want) {
		t.Fatalf("expected %d answers, got %d", len(want), len(report.Answers))
	}
	for i, answer := range report.Answers {
		if answer.SourceName != want[i] {
			t.Errorf("answer %d: expected source %q, got %q", i, want[i], answer.SourceName)
		}
		if !answer.Result.Success {
			t.Errorf("answer %d failed: %q", i, answer.Result.Err)
		}
	}
	if len(report.ProjectIDs) != 2 || report.ProjectIDs[0] != "01417" {
		t.Errorf("project ids not carried through: %v", report.ProjectIDs)
	}
}

func TestGenerateReportPartialFailure(t *testing.T) {
	backend := &fakeBackend{script: []fakeReply{
		{resp: Response{Text: "good answer"}},
		{err: &BackendError{Class: ClassMalformed, Message: "bad request"}},
		{resp: Response{Text: "another good answer"}},
	}}
	svc := newTestService(backend)

	report := svc.GenerateReport(context.Background(), "client-1", "question",
		retrievedChunks("a", "b", "c"))

	if !report.Answers[0].Result.Success || !report.Answers[2].Result.Success {
		t.Error("chunks around a failure must still be answered")
	}
	if report.Answers[1].Result.Success {
		t.Error("failed chunk must carry its error")
	}
	if !strings.HasPrefix(report.Answers[1].Result.Err, "Service temporarily unavailable") {
		t.Errorf("unexpected error %q", report.Answers[1].Result.Err)
	}
}

func TestGenerateReportProgressPerChunk(t *testing.T) {
	backend := &fakeBackend{script: []fakeReply{
		{resp: Response{Text: "good answer"}},
		{err: &BackendError{Class: ClassMalformed, Message: "bad request"}},
	}}
	var seen []string
	svc := newTestService(backend, WithProgress(func(source string) {
		seen = append(seen, source)
	}))

	svc.GenerateReport(context.Background(), "client-1", "question", retrievedChunks("a", "b"))

	// Failed chunks report progress too.
	want := []string{"a", "b"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d progress calls, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("progress call %d: expected %q, got %q", i, want[i], seen[i])
		}
	}
}

func TestGenerateReportQualityScoring(t *testing.T) {
	// Answer call then scoring call, per chunk.
	backend := &fakeBackend{script: []fakeReply{
		{resp: Response{Text: "the answer"}},
		{resp: Response{Text: "87"}},
	}}
	svc := newTestService(backend, WithQualityScoring(true))

	report := svc.GenerateReport(context.Background(), "client-1", "question", retrievedChunks("a"))
	if got := report.Answers[0].Quality; got != 87 {
		t.Errorf("expected quality 87, got %d", got)
	}
	if !strings.Contains(backend.prompts[1], "scale of 1 to 100") {
		t.Errorf("unexpected scoring prompt %q", backend.prompts[1])
	}
}

func TestGenerateReportQualityScoringFailureNonBlocking(t *testing.T) {
	backend := &fakeBackend{script: []fakeReply{
		{resp: Response{Text: "the answer"}},
		{err: &BackendError{Class: ClassMalformed, Message: "bad request"}},
	}}
	svc := newTestService(backend, WithQualityScoring(true))

	report := svc.GenerateReport(context.Background(), "client-1", "question", retrievedChunks("a"))
	if !report.Answers[0].Result.Success {
		t.Error("scoring failure must not affect the primary answer")
	}
	if report.Answers[0].Quality != 0 {
		t.Errorf("failed scoring should leave quality at 0, got %d", report.Answers[0].Quality)
	}
}
