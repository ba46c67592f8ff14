package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "topics.json")
	other := filepath.Join(dir, "other.json")

	rec := &recorder{}
	w, err := NewWatcher([]string{target}, rec.record, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(target, []byte(`{"A": []}`), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(other, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	time.Sleep(300 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("onChange called %d times (%v), want 1", len(got), got)
	}
	abs, _ := filepath.Abs(target)
	if got[0] != filepath.Clean(abs) {
		t.Errorf("path = %q, want %q", got[0], abs)
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "topics.json")
	if err := os.WriteFile(target, []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	w, err := NewWatcher([]string{target}, rec.record, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "topics.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"B": []}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	if len(rec.snapshot()) == 0 {
		t.Error("rename over the watched file was not reported")
	}
}

func TestWatcher_StartCreatesDirAndStopIsIdempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing", "topics.json")
	w, err := NewWatcher([]string{target}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Errorf("parent dir not created: %v", err)
	}
	if len(w.Files()) != 1 {
		t.Errorf("Files() = %v", w.Files())
	}
	w.Stop()
	w.Stop()
}

func TestWatcher_ContextCancelStops(t *testing.T) {
	target := filepath.Join(t.TempDir(), "topics.json")
	rec := &recorder{}
	w, _ := NewWatcher([]string{target}, rec.record, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	waitFor(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.started
	})
	_ = os.WriteFile(target, []byte(`{}`), 0644)
	time.Sleep(100 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("onChange called %d times after cancel", n)
	}
}
