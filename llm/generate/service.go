package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pssrag/llm"
	"pssrag/security"
)

const (
	maxAttempts         = 3
	baseBackoff         = 4 * time.Second
	maxBackoff          = 10 * time.Second
	defaultCallTimeout  = 60 * time.Second
	defaultMaxTokens    = 1024
	defaultTemperature  = 0.05
	promptWithContext   = "Context: %s\n\nQuestion: %s\n\nPlease provide a helpful and accurate answer based on the context provided."
	healthCanaryPrompt  = "Hello, please respond with 'Service is healthy'"
	healthCanaryMarker  = "healthy"
	qualityScorePrompt  = "Rate the quality of the following answer to the question on a scale of 1 to 100. Respond with only the number.\n\nQuestion: %s\n\nAnswer: %s"
)

// Option configures a Service.
type Option func(*Service)

// WithMaxTokens sets the per-request output token limit.
func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(s *Service) { s.temperature = t }
}

// WithCallTimeout bounds each individual backend call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

// WithQualityScoring enables the optional second-call 1-100 answer rating.
func WithQualityScoring(enabled bool) Option {
	return func(s *Service) { s.scoreQuality = enabled }
}

// WithProgress registers a callback invoked with the source name after
// each chunk of a report finishes, success or not.
func WithProgress(fn func(sourceName string)) Option {
	return func(s *Service) { s.progress = fn }
}

// Service generates grounded answers. Every call is validated through the
// safety gate, retried on transient backend failures, and redacted on the
// way out. Callers always receive a GenerationResult, never an error: one
// chunk failing must not abort a batch.
type Service struct {
	backend      Backend
	gate         *security.Manager
	mock         MockBackend
	maxTokens    int
	temperature  float32
	callTimeout  time.Duration
	scoreQuality bool
	progress     func(string)
	sleep        func(time.Duration)

	mu                sync.Mutex
	degraded          bool
	totalRequests     int64
	totalResponseTime time.Duration
	errorCount        int64
}

// NewService creates a Service over the given backend and safety gate.
func NewService(backend Backend, gate *security.Manager, opts ...Option) *Service {
	s := &Service{
		backend:     backend,
		gate:        gate,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		callTimeout: defaultCallTimeout,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate answers a question, grounded on chunkContext when it is
// non-empty. Rejected input short-circuits before any backend call.
func (s *Service) Generate(ctx context.Context, clientID, question, chunkContext string) llm.GenerationResult {
	start := time.Now()

	s.mu.Lock()
	s.totalRequests++
	s.mu.Unlock()

	cleaned, err := s.gate.ValidateInput(clientID, question)
	if err != nil {
		return llm.GenerationResult{Err: err.Error(), ModelID: s.ModelID()}
	}
	if err := s.gate.CheckContentPolicy(clientID, cleaned); err != nil {
		return llm.GenerationResult{Err: err.Error(), ModelID: s.ModelID()}
	}

	prompt := cleaned
	if chunkContext != "" {
		prompt = fmt.Sprintf(promptWithContext, chunkContext, cleaned)
	}

	if s.isDegraded() {
		return s.generateDegraded(ctx, clientID, cleaned, prompt, start)
	}

	req := Request{Prompt: prompt, MaxTokens: s.maxTokens, Temperature: s.temperature}
	resp, err := s.callWithRetry(ctx, req)
	if err != nil {
		var berr *BackendError
		if errors.As(err, &berr) && berr.Class == ClassAuth {
			log.Printf("generate: auth failure from backend, switching to degraded mode: %v", err)
			s.latchDegraded()
			return s.generateDegraded(ctx, clientID, cleaned, prompt, start)
		}

		s.mu.Lock()
		s.errorCount++
		s.mu.Unlock()

		log.Printf("generate: request failed: %v", err)
		return llm.GenerationResult{
			Err:          fmt.Sprintf("Service temporarily unavailable: %v", err),
			ResponseTime: time.Since(start),
			ModelID:      s.ModelID(),
		}
	}

	safe := s.gate.RedactSensitiveData(resp.Text)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.totalResponseTime += elapsed
	s.mu.Unlock()

	s.gate.LogInteraction(clientID, cleaned, safe)
	return llm.GenerationResult{
		Success:      true,
		Response:     safe,
		ResponseTime: elapsed,
		TokenCount:   resp.TokenCount,
		ModelID:      s.backend.ModelID(),
	}
}

func (s *Service) generateDegraded(ctx context.Context, clientID, cleaned, prompt string, start time.Time) llm.GenerationResult {
	resp, _ := s.mock.Generate(ctx, Request{Prompt: prompt})
	safe := s.gate.RedactSensitiveData(resp.Text)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.totalResponseTime += elapsed
	s.mu.Unlock()

	s.gate.LogInteraction(clientID, cleaned, safe)
	return llm.GenerationResult{
		Success:      true,
		Response:     safe,
		ResponseTime: elapsed,
		TokenCount:   resp.TokenCount,
		ModelID:      s.mock.ModelID(),
		Degraded:     true,
	}
}

// callWithRetry calls the backend up to maxAttempts times, backing off
// between attempts. Only throttling and transient failures are retried.
func (s *Service) callWithRetry(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			if delay > maxBackoff {
				delay = maxBackoff
			}
			log.Printf("generate: retrying after %s (attempt %d/%d)", delay, attempt+1, maxAttempts)
			s.sleep(delay)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		resp, err := s.backend.Generate(callCtx, req)
		cancel()
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var berr *BackendError
		if !errors.As(err, &berr) {
			berr = classifyError(err)
			lastErr = berr
		}
		switch berr.Class {
		case ClassThrottling, ClassTransient:
			continue
		default:
			return Response{}, lastErr
		}
	}
	return Response{}, lastErr
}

func (s *Service) isDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Service) latchDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}

// Degraded reports whether the service has fallen back to the mock
// responder. The switch is permanent for the lifetime of the instance.
func (s *Service) Degraded() bool { return s.isDegraded() }

// ModelID names the model currently answering requests.
func (s *Service) ModelID() string {
	if s.isDegraded() {
		return s.mock.ModelID()
	}
	return s.backend.ModelID()
}

// HealthCheck sends a canary request and reports healthy only when the
// call succeeds and the response acknowledges the canary phrase.
func (s *Service) HealthCheck(ctx context.Context, clientID string) llm.HealthStatus {
	result := s.Generate(ctx, clientID, healthCanaryPrompt, "")
	healthy := result.Success &&
		result.Response != "" &&
		strings.Contains(strings.ToLower(result.Response), healthCanaryMarker)
	return llm.HealthStatus{
		Healthy:      healthy,
		ResponseTime: result.ResponseTime,
		ModelID:      s.ModelID(),
		Err:          result.Err,
	}
}

// PerformanceStats returns process-lifetime counters. All zeroes before
// the first request.
func (s *Service) PerformanceStats() llm.PerformanceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.totalRequests == 0 {
		return llm.PerformanceStats{}
	}

	errorRate := float64(s.errorCount) / float64(s.totalRequests) * 100
	return llm.PerformanceStats{
		TotalRequests:       s.totalRequests,
		AverageResponseTime: s.totalResponseTime.Seconds() / float64(s.totalRequests),
		SuccessRate:         100 - errorRate,
		ErrorRate:           errorRate,
	}
}
