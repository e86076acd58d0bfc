package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger is the minimal leveled logging interface FileWatcher needs.
// internal/diag.Logger satisfies it; DefaultLogger is a stdlib fallback for
// use outside the daemon (tests, tools).
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// DefaultLogger implements Logger with Go's standard log package.
type DefaultLogger struct{}

func (l DefaultLogger) Infof(format string, args ...interface{})  { log.Printf("[INFO] "+format, args...) }
func (l DefaultLogger) Errorf(format string, args ...interface{}) { log.Printf("[ERROR] "+format, args...) }
func (l DefaultLogger) Debugf(format string, args ...interface{}) { log.Printf("[DEBUG] "+format, args...) }

// FileWatcher polls one or more repository directories (cib_dir,
// profile_dir, policy_dir) for added, modified, or removed files and
// invokes onChange so the daemon can rebuild its CIB/PIB state. CIB and
// PIB sources have no notion of a partial update, so the watcher's unit of
// change is "something in this directory is different now", not a
// per-field diff.
type FileWatcher struct {
	logger   Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileWatcher returns a FileWatcher polling every 2 seconds by default.
func NewFileWatcher(logger Logger) *FileWatcher {
	if logger == nil {
		logger = DefaultLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{logger: logger, interval: 2 * time.Second, ctx: ctx, cancel: cancel}
}

// SetInterval overrides the poll interval. Call before Watch.
func (fw *FileWatcher) SetInterval(interval time.Duration) {
	fw.interval = interval
}

// Watch polls dir (non-recursively) for files matching pattern (e.g.
// "*.cib") and calls onChange whenever the set of matched files or any
// matched file's mtime differs from the previous poll. Files that do not
// match pattern are not compared.
func (fw *FileWatcher) Watch(dir, pattern string, onChange func()) error {
	if _, err := os.Stat(dir); err != nil {
		return err
	}

	state := fw.scan(dir, pattern)
	fw.logger.Infof("watching %s (pattern %s) for changes", dir, pattern)

	fw.wg.Add(1)
	go fw.loop(dir, pattern, state, onChange)
	return nil
}

// Stop cancels every poll loop started by Watch and waits for it to exit.
func (fw *FileWatcher) Stop() {
	fw.cancel()
	fw.wg.Wait()
}

func (fw *FileWatcher) loop(dir, pattern string, state map[string]time.Time, onChange func()) {
	defer fw.wg.Done()
	ticker := time.NewTicker(fw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return
		case <-ticker.C:
			next := fw.scan(dir, pattern)
			if changed(state, next) {
				fw.logger.Infof("detected change in %s, reloading", dir)
				onChange()
			}
			state = next
		}
	}
}

func (fw *FileWatcher) scan(dir, pattern string) map[string]time.Time {
	state := map[string]time.Time{}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		fw.logger.Errorf("globbing %s: %v", dir, err)
		return state
	}
	for _, match := range matches {
		if stat, err := os.Stat(match); err == nil && !stat.IsDir() {
			state[match] = stat.ModTime()
		}
	}
	return state
}

func changed(before, after map[string]time.Time) bool {
	if len(before) != len(after) {
		return true
	}
	for path, modTime := range after {
		prev, ok := before[path]
		if !ok || !prev.Equal(modTime) {
			return true
		}
	}
	return false
}
