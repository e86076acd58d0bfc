package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherDetectsNewFile(t *testing.T) {
	dir := t.TempDir()
	fw := NewFileWatcher(nil)
	fw.SetInterval(20 * time.Millisecond)
	defer fw.Stop()

	changed := make(chan struct{}, 4)
	if err := fw.Watch(dir, "*.cib", func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.cib"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification after adding a file")
	}
}

func TestFileWatcherDetectsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.cib")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fw := NewFileWatcher(nil)
	fw.SetInterval(20 * time.Millisecond)
	defer fw.Stop()

	changed := make(chan struct{}, 4)
	if err := fw.Watch(dir, "*.cib", func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification after touching a file")
	}
}

func TestFileWatcherIgnoresUnrelatedPatterns(t *testing.T) {
	dir := t.TempDir()
	fw := NewFileWatcher(nil)
	fw.SetInterval(20 * time.Millisecond)
	defer fw.Stop()

	changed := make(chan struct{}, 4)
	if err := fw.Watch(dir, "*.cib", func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.policy"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("did not expect a change notification for a non-matching file")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileWatcherStopEndsTheLoop(t *testing.T) {
	dir := t.TempDir()
	fw := NewFileWatcher(nil)
	fw.SetInterval(10 * time.Millisecond)

	if err := fw.Watch(dir, "*.cib", func() {}); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	fw.Stop() // must return promptly; a leaked goroutine would hang the test run
}

func TestFileWatcherWatchRejectsMissingDirectory(t *testing.T) {
	fw := NewFileWatcher(nil)
	if err := fw.Watch(filepath.Join(t.TempDir(), "does-not-exist"), "*.cib", func() {}); err == nil {
		t.Fatal("expected an error watching a nonexistent directory")
	}
}
