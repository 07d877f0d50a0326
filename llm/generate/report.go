package generate

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"time"

	"pssrag/llm"
)

var scoreRe = regexp.MustCompile(`\d+`)

// GenerateReport answers a question against every retrieved chunk, in
// retrieval order, and aggregates the per-chunk results. Chunk failures
// are recorded in place and never abort the batch.
func (s *Service) GenerateReport(ctx context.Context, clientID, question string, retrieved llm.QueryResult) llm.Report {
	start := time.Now()

	answers := make([]llm.ChunkAnswer, 0, len(retrieved.Chunks))
	for _, match := range retrieved.Chunks {
		result := s.Generate(ctx, clientID, question, match.Chunk.Text)

		answer := llm.ChunkAnswer{SourceName: match.Chunk.SourceName, Result: result}
		if s.scoreQuality && result.Success && !result.Degraded {
			answer.Quality = s.scoreAnswer(ctx, question, result.Response)
		}
		answers = append(answers, answer)

		if s.progress != nil {
			s.progress(match.Chunk.SourceName)
		}
	}

	return llm.Report{
		Question:   question,
		Answers:    answers,
		ProjectIDs: retrieved.ProjectIDs,
		Elapsed:    time.Since(start),
	}
}

// scoreAnswer asks the backend to rate an answer 1-100. Best effort: any
// failure returns 0 and the primary answer stands.
func (s *Service) scoreAnswer(ctx context.Context, question, answer string) int {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	req := Request{
		Prompt:      fmt.Sprintf(qualityScorePrompt, question, answer),
		MaxTokens:   16,
		Temperature: s.temperature,
	}
	resp, err := s.backend.Generate(callCtx, req)
	if err != nil {
		log.Printf("generate: quality scoring failed: %v", err)
		return 0
	}

	digits := scoreRe.FindString(resp.Text)
	if digits == "" {
		return 0
	}
	score, err := strconv.Atoi(digits)
	if err != nil || score < 1 {
		return 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
