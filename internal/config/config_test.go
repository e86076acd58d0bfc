package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Socket != "/var/run/neatpmd.sock" {
		t.Errorf("expected default socket path, got %q", cfg.Socket)
	}
	if cfg.Candidates != 10 {
		t.Errorf("expected default candidates 10, got %d", cfg.Candidates)
	}
	if cfg.CIBCandidates != 5 {
		t.Errorf("expected default cib_candidates 5, got %d", cfg.CIBCandidates)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.LogLevel)
	}
	if !cfg.Color {
		t.Error("expected color to default to true")
	}
}

func TestManagerLoadParsesYAMLAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neatpmd.yaml")
	doc := "socket: /tmp/neatpmd.sock\ncib_dir: /tmp/cib\nprofile_dir: /tmp/profiles\npolicy_dir: /tmp/policies\ncandidates: 3\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg := m.Get()
	if cfg.Socket != "/tmp/neatpmd.sock" {
		t.Errorf("expected overridden socket, got %q", cfg.Socket)
	}
	if cfg.Candidates != 3 {
		t.Errorf("expected overridden candidates 3, got %d", cfg.Candidates)
	}
	if cfg.CIBCandidates != 5 {
		t.Errorf("expected cib_candidates to keep its default 5, got %d", cfg.CIBCandidates)
	}
	if m.Path() != path {
		t.Errorf("expected Manager.Path() to report the loaded path, got %q", m.Path())
	}
}

func TestManagerLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: nonsense\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewManager()
	if err := m.Load(path); err == nil {
		t.Fatal("expected Load to reject an invalid log_level")
	}
}

func TestManagerOnChangeFiresOnLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neatpmd.yaml")
	if err := os.WriteFile(path, []byte("socket: /tmp/x.sock\ncib_dir: /tmp\nprofile_dir: /tmp\npolicy_dir: /tmp\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewManager()
	done := make(chan *Config, 1)
	m.OnChange(func(cfg *Config) { done <- cfg })

	if err := m.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	select {
	case cfg := <-done:
		if cfg.Socket != "/tmp/x.sock" {
			t.Errorf("expected hook to see the new socket, got %q", cfg.Socket)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change hook")
	}
}
