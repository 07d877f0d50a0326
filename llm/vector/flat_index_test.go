package vector

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSearchOrdersBestFirst(t *testing.T) {
	ix := NewFlatIndex(2)
	if err := ix.Add(
		[]float32{0, 1}, // orthogonal to the query
		[]float32{1, 0}, // exact match
		[]float32{0.6, 0.8},
	); err != nil {
		t.Fatal(err)
	}

	scores, indices, err := ix.Search([]float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{1, 2}) {
		t.Errorf("unexpected indices %v", indices)
	}
	if scores[0] < scores[1] {
		t.Errorf("scores not descending: %v", scores)
	}
}

func TestSearchTieBreaksByLowerIndex(t *testing.T) {
	ix := NewFlatIndex(2)
	if err := ix.Add(
		[]float32{1, 0},
		[]float32{1, 0},
		[]float32{1, 0},
	); err != nil {
		t.Fatal(err)
	}

	_, indices, err := ix.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(indices, []int{0, 1, 2}) {
		t.Errorf("ties not broken by lower index: %v", indices)
	}
}

func TestSearchClampsK(t *testing.T) {
	ix := NewFlatIndex(2)
	if err := ix.Add([]float32{1, 0}, []float32{0, 1}); err != nil {
		t.Fatal(err)
	}

	scores, indices, err := ix.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 || len(indices) != 2 {
		t.Errorf("expected 2 results, got %d/%d", len(scores), len(indices))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := &FlatIndex{}
	scores, indices, err := ix.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 || len(indices) != 0 {
		t.Errorf("expected empty results, got %v %v", scores, indices)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix := NewFlatIndex(3)
	if err := ix.Add([]float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}

	_, _, err := ix.Search([]float32{1, 0}, 1)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix := NewFlatIndex(3)
	if err := ix.Add(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0.6, 0.8},
	); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "test.index")
	if err := ix.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Dimension() != ix.Dimension() || loaded.Len() != ix.Len() {
		t.Fatalf("loaded index shape differs: dim %d/%d len %d/%d",
			loaded.Dimension(), ix.Dimension(), loaded.Len(), ix.Len())
	}

	query := []float32{0, 0.8, 0.6}
	wantScores, wantIdx, err := ix.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	gotScores, gotIdx, err := loaded.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(wantIdx, gotIdx) || !reflect.DeepEqual(wantScores, gotScores) {
		t.Errorf("round-trip search differs: %v/%v vs %v/%v", wantIdx, wantScores, gotIdx, gotScores)
	}
}
