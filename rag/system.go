package rag

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pssrag/llm"
	"pssrag/llm/extract"
	"pssrag/llm/generate"
	"pssrag/llm/vector"
	"pssrag/pubsub"
	"pssrag/security"
)

// Config wires a System together.
type Config struct {
	Gate      *security.Manager
	Generator *generate.Service
	Embedder  *vector.EmbeddingService
	Extractor *extract.Extractor
	DocsDir   string
	IndexPath string
	TopK      int

	// Notifier carries human-readable pipeline status lines; nil disables
	// notifications.
	Notifier *pubsub.Broker[string]
}

// System is the full question-answering pipeline: rate limit, validate,
// retrieve, generate, record. The index is read-only between explicit
// rebuilds; Rebuild is exclusive with in-flight questions.
type System struct {
	cfg     Config
	history *History

	mu       sync.RWMutex
	resolver *Resolver
}

// NewSystem creates a System with no index loaded. Call Load or Rebuild
// before asking questions; until then every question resolves to an empty
// report.
func NewSystem(cfg Config) *System {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &System{
		cfg:     cfg,
		history: NewHistory(0),
	}
}

// Ask answers one question for the given client. Client ids are opaque and
// caller-supplied; the rate-limit budget is tracked per id. The only error
// besides gate rejections is a fatal index misconfiguration.
func (s *System) Ask(ctx context.Context, clientID, question string) (llm.Report, error) {
	if _, err := s.cfg.Gate.CheckRateLimit(ctx, clientID); err != nil {
		s.notify(pubsub.QueryRejectedEvent, err.Error())
		return llm.Report{}, err
	}

	cleaned, err := s.cfg.Gate.ValidateInput(clientID, question)
	if err != nil {
		s.notify(pubsub.QueryRejectedEvent, err.Error())
		return llm.Report{}, err
	}
	if err := s.cfg.Gate.CheckContentPolicy(clientID, cleaned); err != nil {
		s.notify(pubsub.QueryRejectedEvent, err.Error())
		return llm.Report{}, err
	}

	s.notify(pubsub.QuerySubmittedEvent, "searching project documents")

	s.mu.RLock()
	resolver := s.resolver
	s.mu.RUnlock()

	var retrieved llm.QueryResult
	if resolver != nil {
		retrieved, err = resolver.Resolve(ctx, cleaned)
		if err != nil {
			// Dimension mismatch or embedding failure: nothing downstream
			// can produce a grounded answer.
			return llm.Report{}, err
		}
	}

	s.notify(pubsub.QuerySubmittedEvent, fmt.Sprintf("generating answers for %d documents", len(retrieved.Chunks)))
	report := s.cfg.Generator.GenerateReport(ctx, clientID, cleaned, retrieved)

	s.history.Add(clientID, cleaned, report)
	s.notify(pubsub.AnswerReadyEvent, fmt.Sprintf("answered in %s", report.Elapsed.Round(time.Millisecond)))
	return report, nil
}

// Rebuild re-extracts the document corpus, re-embeds it, persists the
// index and installs a fresh resolver. Exclusive: questions asked during a
// rebuild wait for it to finish.
func (s *System) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	corpus, index, err := s.buildIndex(ctx)
	if err != nil {
		return err
	}

	if s.cfg.IndexPath != "" {
		if err := index.Save(s.cfg.IndexPath); err != nil {
			return fmt.Errorf("failed to persist index: %w", err)
		}
	}

	s.install(corpus, index)
	log.Printf("rag: index rebuilt, %d chunks from %s", index.Len(), s.cfg.DocsDir)
	return nil
}

// Load restores a previously persisted index. The corpus text is
// re-extracted (the index stores only vectors); a count mismatch means
// the documents changed since the index was saved and a rebuild is
// required.
func (s *System) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := vector.Load(s.cfg.IndexPath)
	if err != nil {
		return err
	}

	corpus, err := s.cfg.Extractor.ExtractDir(ctx, s.cfg.DocsDir)
	if err != nil {
		return fmt.Errorf("failed to extract corpus: %w", err)
	}
	if index.Len() != len(corpus.Chunks) {
		return fmt.Errorf("index holds %d vectors but corpus has %d documents, rebuild required", index.Len(), len(corpus.Chunks))
	}

	s.install(corpus, index)
	log.Printf("rag: index loaded from %s, %d chunks", s.cfg.IndexPath, index.Len())
	return nil
}

func (s *System) buildIndex(ctx context.Context) (*extract.Corpus, *vector.FlatIndex, error) {
	corpus, err := s.cfg.Extractor.ExtractDir(ctx, s.cfg.DocsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract corpus: %w", err)
	}
	if len(corpus.Skipped) > 0 {
		log.Printf("rag: %d documents skipped during extraction", len(corpus.Skipped))
	}

	index, err := vector.Build(ctx, s.cfg.Embedder, corpus.Chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build index: %w", err)
	}
	return corpus, index, nil
}

// install must run under the write lock.
func (s *System) install(corpus *extract.Corpus, index *vector.FlatIndex) {
	chunks := make([]llm.Chunk, len(corpus.Chunks))
	for i := range corpus.Chunks {
		chunks[i] = llm.Chunk{ID: i, Text: corpus.Chunks[i], SourceName: corpus.SourceNames[i]}
	}
	s.resolver = NewResolver(s.cfg.Embedder, index, chunks, s.cfg.TopK)
}

// ChunkCount returns the number of indexed chunks, 0 before Load/Rebuild.
func (s *System) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.resolver == nil {
		return 0
	}
	return s.resolver.ChunkCount()
}

// History returns the session interaction history.
func (s *System) History() *History { return s.history }

// HealthCheck probes the generation backend with a canary request.
func (s *System) HealthCheck(ctx context.Context, clientID string) llm.HealthStatus {
	return s.cfg.Generator.HealthCheck(ctx, clientID)
}

// Stats returns generation service counters.
func (s *System) Stats() llm.PerformanceStats {
	return s.cfg.Generator.PerformanceStats()
}

// Degraded reports whether generation has fallen back to the mock
// responder.
func (s *System) Degraded() bool {
	return s.cfg.Generator.Degraded()
}

func (s *System) notify(t pubsub.EventType, msg string) {
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Publish(t, msg)
	}
}
