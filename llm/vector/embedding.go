package vector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// EmbeddingService wraps an embedding model for vector generation. Every
// vector it returns is L2-normalized, so inner product equals cosine
// similarity. The same service instance must be used for both index build
// and query embedding: a mismatched model degrades relevance silently.
type EmbeddingService struct {
	embedder embedding.Embedder
	mu       sync.Mutex
	dim      int // pinned on first embedding
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(embedder embedding.Embedder) *EmbeddingService {
	return &EmbeddingService{embedder: embedder}
}

// Embed generates a normalized embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates normalized embedding vectors for multiple texts
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts))
	}

	result := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding returned for text %d", i)
		}
		if err := s.pinDimension(len(vec)); err != nil {
			return nil, err
		}

		v := make([]float32, len(vec))
		for j, x := range vec {
			v[j] = float32(x)
		}
		normalize(v)
		result[i] = v
	}

	return result, nil
}

// Dimension returns the embedding dimension, or 0 before the first call.
func (s *EmbeddingService) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// pinDimension fixes the vector dimension on first use and rejects any
// later drift from the model.
func (s *EmbeddingService) pinDimension(dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = dim
		return nil
	}
	if s.dim != dim {
		return fmt.Errorf("%w: model returned %d, index built with %d", ErrDimensionMismatch, dim, s.dim)
	}
	return nil
}

// normalize scales v to unit length in place. Zero vectors are left as-is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
