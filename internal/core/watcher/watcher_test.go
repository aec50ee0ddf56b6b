package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nscope/internal/shared/util"
)

func phpFilter(t *testing.T) *util.PathFilter {
	t.Helper()
	f, err := util.NewPathFilter([]string{".php"}, []string{"vendor"}, []string{"*.exclude.php"})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func startWatcher(t *testing.T, dir string, limiter *util.Limiter) <-chan []string {
	t.Helper()
	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, phpFilter(t), limiter, func(_ context.Context, paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Watch(ctx, []string{dir}); err != nil {
		t.Fatal(err)
	}
	return changed
}

func waitFor(t *testing.T, changed <-chan []string, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change of %s", want)
		}
	}
}

func expectQuiet(t *testing.T, changed <-chan []string, forbidden string) {
	t.Helper()
	deadline := time.After(300 * time.Millisecond)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == forbidden {
					t.Fatalf("unexpected change event for %s", forbidden)
				}
			}
		case <-deadline:
			return
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, phpFilter(t), nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir, nil)

	source := filepath.Join(dir, "User.php")
	if err := os.WriteFile(source, []byte("<?php namespace App;"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, source)

	excluded := filepath.Join(dir, "Skip.exclude.php")
	if err := os.WriteFile(excluded, []byte("<?php"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changed, excluded)

	// New directories are watched recursively after create.
	subdir := filepath.Join(dir, "Models")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "Invoice.php")
	if err := os.WriteFile(nested, []byte("<?php namespace App\\Models;"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested)
}

func TestWatcher_ContentHashing(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "Existing.php")
	content := []byte("<?php namespace App;\nclass Existing {}\n")
	if err := os.WriteFile(existing, content, 0o644); err != nil {
		t.Fatal(err)
	}
	changed := startWatcher(t, dir, nil)

	// Rewriting identical content does not fire.
	if err := os.WriteFile(existing, content, 0o644); err != nil {
		t.Fatal(err)
	}
	expectQuiet(t, changed, existing)

	if err := os.WriteFile(existing, []byte("<?php namespace App;\nclass Renamed {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, existing)

	if err := os.Remove(existing); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, existing)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	dir := t.TempDir()
	changed := startWatcher(t, dir, nil)

	oldPath := filepath.Join(dir, "Old.php")
	newPath := filepath.Join(dir, "New.php")
	if err := os.WriteFile(oldPath, []byte("<?php"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, newPath)
}

func TestWatcher_ThrottledBatchStillDelivered(t *testing.T) {
	dir := t.TempDir()
	limiter := util.NewLimiter(100, 1)
	limiter.Allow(1)
	changed := startWatcher(t, dir, limiter)

	a := filepath.Join(dir, "A.php")
	b := filepath.Join(dir, "B.php")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("<?php"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, changed, b)
}
