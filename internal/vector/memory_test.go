package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("got %v", results)
	}
}

func TestMemoryIndex_replaceExisting(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Fatalf("Size=%d, want 1", idx.Size())
	}
	res, _ := idx.Search(ctx, []float32{0, 1}, 1)
	if res[0].Score != 1 {
		t.Errorf("vector not replaced: %v", res)
	}
	if !idx.Has("x") || idx.Has("y") {
		t.Error("Has mismatch")
	}
	v, ok := idx.Vector("x")
	if !ok || v[0] != 0 || v[1] != 1 {
		t.Errorf("Vector(x) = %v, %v", v, ok)
	}
	v[0] = 5
	if again, _ := idx.Vector("x"); again[0] != 0 {
		t.Error("Vector must return a copy")
	}
}

func TestMemoryIndex_errors(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := idx.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected dimension mismatch error")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected query dimension error")
	}
	if res, err := idx.Search(ctx, []float32{1, 0}, 3); err != nil || res != nil {
		t.Errorf("empty index search: %v, %v", res, err)
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keywords.idx")
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	_ = idx.Add(ctx, []string{"héllo", "world"}, [][]float32{{0.6, 0.8}, {1, 0}})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 || !loaded.Has("héllo") {
		t.Fatalf("loaded Size=%d", loaded.Size())
	}
	res, _ := loaded.Search(ctx, []float32{0.6, 0.8}, 1)
	if res[0].ID != "héllo" {
		t.Errorf("got %v", res)
	}

	wrongDim, _ := NewMemoryIndex(3)
	if err := wrongDim.Load(path); err == nil {
		t.Error("expected dimension mismatch on load")
	}

	missing, _ := NewMemoryIndex(2)
	if err := missing.Load(filepath.Join(t.TempDir(), "none.idx")); err != nil || missing.Size() != 0 {
		t.Errorf("missing file should be a no-op: %v", err)
	}
}
