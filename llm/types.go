package llm

import "time"

// Chunk is one document's cleaned text, the unit of retrieval. The ID is
// positional and stable within a single index build.
type Chunk struct {
	ID         int    `json:"id"`
	Text       string `json:"text"`
	SourceName string `json:"source_name"` // document name without extension
}

// SearchResult pairs a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// QueryResult holds everything derived from one retrieval pass: the top-k
// chunks (best similarity first) and the project ids extracted from their
// source names, deduplicated in first-seen order.
type QueryResult struct {
	Chunks     []SearchResult
	ProjectIDs []string
}

// GenerationResult is the outcome of a single answer-generation call after
// validation, retries and redaction have been applied. Callers always
// receive a result, never a panic or a raw backend error.
type GenerationResult struct {
	Success      bool
	Response     string
	Err          string
	ResponseTime time.Duration
	TokenCount   int
	ModelID      string
	Degraded     bool
}

// ChunkAnswer is one entry of an aggregated answer report, kept in
// retrieval order.
type ChunkAnswer struct {
	SourceName string
	Result     GenerationResult
	Quality    int // 1-100 when quality scoring ran, 0 otherwise
}

// Report aggregates per-chunk answers for a single question.
type Report struct {
	Question   string
	Answers    []ChunkAnswer
	ProjectIDs []string
	Elapsed    time.Duration
}

// PerformanceStats are process-lifetime counters of the generation service.
type PerformanceStats struct {
	TotalRequests       int64
	AverageResponseTime float64 // seconds
	SuccessRate         float64 // percent
	ErrorRate           float64 // percent
}

// HealthStatus reports the result of a canary generation request.
type HealthStatus struct {
	Healthy      bool
	ResponseTime time.Duration
	ModelID      string
	Err          string
}
