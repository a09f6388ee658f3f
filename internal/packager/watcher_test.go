package packager

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, root string, debounce time.Duration) <-chan []string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch := make(chan []string, 8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		_ = WatchVault(ctx, root, debounce, logger, func(changed []string) {
			ch <- changed
		})
	}()
	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)
	return ch
}

func waitBatch(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change batch")
		return nil
	}
}

func TestWatchVault_BatchesRapidWrites(t *testing.T) {
	root := t.TempDir()
	ch := startWatcher(t, root, 200*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "a.md"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.md"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, ch)
	seen := make(map[string]bool, len(batch))
	for _, p := range batch {
		seen[p] = true
	}
	if !seen["a.md"] || !seen["b.md"] {
		t.Errorf("batch = %v, want both a.md and b.md", batch)
	}

	select {
	case extra := <-ch:
		t.Errorf("unexpected second batch %v", extra)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatchVault_IgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	ch := startWatcher(t, root, 150*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "scratch.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-ch:
		t.Errorf("unexpected batch %v for unrelated write", batch)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchVault_PicksUpImageChanges(t *testing.T) {
	root := t.TempDir()
	ch := startWatcher(t, root, 150*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "diagram.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, ch)
	if len(batch) != 1 || batch[0] != "diagram.png" {
		t.Errorf("batch = %v, want [diagram.png]", batch)
	}
}

func TestWatchVault_PicksUpNewDirectory(t *testing.T) {
	root := t.TempDir()
	ch := startWatcher(t, root, 150*time.Millisecond)

	sub := filepath.Join(root, "topics")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	// Let the watcher pick up the new directory before writing into it.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(sub, "note.md"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, ch)
	found := false
	for _, p := range batch {
		if p == filepath.Join("topics", "note.md") {
			found = true
		}
	}
	if !found {
		t.Errorf("batch = %v, want topics/note.md", batch)
	}
}

func TestWatchVault_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	done := make(chan error, 1)
	go func() {
		done <- WatchVault(ctx, root, 100*time.Millisecond, logger, func([]string) {})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchVault returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}
