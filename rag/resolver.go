package rag

import (
	"context"
	"fmt"
	"regexp"

	"pssrag/llm"
	"pssrag/llm/vector"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

var digitRunRe = regexp.MustCompile(`\d+`)

// Resolver answers "which documents are relevant" for a question: it
// embeds the question, searches the flat index and derives project ids
// from the matched source names. Read-only after construction; a rebuild
// installs a fresh Resolver.
type Resolver struct {
	embedder *vector.EmbeddingService
	index    *vector.FlatIndex
	chunks   []llm.Chunk
	topK     int
}

// NewResolver creates a Resolver over a built index. chunks[i] must be the
// chunk the index's i-th vector was embedded from.
func NewResolver(embedder *vector.EmbeddingService, index *vector.FlatIndex, chunks []llm.Chunk, topK int) *Resolver {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Resolver{embedder: embedder, index: index, chunks: chunks, topK: topK}
}

// Resolve retrieves the top-k chunks for a question, best match first. An
// empty index yields an empty result, not an error. A dimension mismatch
// between query and index is the one fatal error and propagates.
func (r *Resolver) Resolve(ctx context.Context, question string) (llm.QueryResult, error) {
	if r.index == nil || r.index.Len() == 0 {
		return llm.QueryResult{}, nil
	}

	query, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return llm.QueryResult{}, fmt.Errorf("failed to embed question: %w", err)
	}

	scores, indices, err := r.index.Search(query, r.topK)
	if err != nil {
		return llm.QueryResult{}, fmt.Errorf("search failed: %w", err)
	}

	result := llm.QueryResult{}
	names := make([]string, 0, len(indices))
	for i, idx := range indices {
		chunk := r.chunks[idx]
		result.Chunks = append(result.Chunks, llm.SearchResult{Chunk: chunk, Score: scores[i]})
		names = append(names, chunk.SourceName)
	}
	result.ProjectIDs = ExtractProjectIDs(names)
	return result, nil
}

// ChunkCount returns the number of indexed chunks.
func (r *Resolver) ChunkCount() int {
	if r.index == nil {
		return 0
	}
	return r.index.Len()
}

// ExtractProjectIDs derives project ids from source names: the first run
// of digits in each name, zero-prefixed to match the accounting system's
// project codes, deduplicated in first-seen order. Names without digits
// contribute nothing.
func ExtractProjectIDs(sourceNames []string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, name := range sourceNames {
		run := digitRunRe.FindString(name)
		if run == "" {
			continue
		}
		id := "0" + run
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
