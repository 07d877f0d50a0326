package vector

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ErrDimensionMismatch reports a query vector whose dimension differs from
// the index. It is a fatal misconfiguration: searching anyway would return
// silently wrong results.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// FlatIndex is a brute-force inner-product index over L2-normalized
// vectors. vectors[i] corresponds to the i-th chunk of the corpus it was
// built from; the index itself stores no text. It is read-only after
// build except for a full rebuild.
type FlatIndex struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlatIndex creates an empty index with a fixed dimension.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Build embeds every chunk with the given service and returns a populated
// index. Chunk order is preserved: vectors[i] belongs to chunks[i].
func Build(ctx context.Context, svc *EmbeddingService, chunks []string) (*FlatIndex, error) {
	if len(chunks) == 0 {
		return &FlatIndex{}, nil
	}

	vectors, err := svc.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed corpus: %w", err)
	}

	ix := NewFlatIndex(len(vectors[0]))
	if err := ix.Add(vectors...); err != nil {
		return nil, err
	}
	return ix, nil
}

// Add appends vectors to the index.
func (ix *FlatIndex) Add(vectors ...[]float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, v := range vectors {
		if ix.dim == 0 {
			ix.dim = len(v)
		}
		if len(v) != ix.dim {
			return fmt.Errorf("%w: vector has %d, index has %d", ErrDimensionMismatch, len(v), ix.dim)
		}
		ix.vectors = append(ix.vectors, v)
	}
	return nil
}

// Len returns the number of indexed vectors.
func (ix *FlatIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Dimension returns the index dimension, 0 when empty.
func (ix *FlatIndex) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Search returns the k highest-inner-product vectors, best first, ties
// broken by lower index. k larger than the corpus is clamped, never an
// error; an empty index returns empty slices.
func (ix *FlatIndex) Search(query []float32, k int) ([]float32, []int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.vectors) == 0 {
		return nil, nil, nil
	}
	if len(query) != ix.dim {
		return nil, nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}
	if k <= 0 {
		return nil, nil, nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	indices := make([]int, len(ix.vectors))
	scores := make([]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		indices[i] = i
		scores[i] = dot(query, v)
	}

	// Stable sort keeps the lower index first on equal scores.
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	topScores := make([]float32, k)
	topIdx := make([]int, k)
	for i := 0; i < k; i++ {
		topIdx[i] = indices[i]
		topScores[i] = scores[indices[i]]
	}
	return topScores, topIdx, nil
}

// indexFile is the on-disk form of a FlatIndex.
type indexFile struct {
	Dim     int
	Vectors [][]float32
}

// Save persists the index to a single file. A loaded index is behaviorally
// identical to a freshly built one over the same chunks.
func (ix *FlatIndex) Save(path string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(indexFile{Dim: ix.dim, Vectors: ix.vectors}); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return nil
}

// Load restores an index previously written by Save.
func Load(path string) (*FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var data indexFile
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}

	return &FlatIndex{dim: data.Dim, vectors: data.Vectors}, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
