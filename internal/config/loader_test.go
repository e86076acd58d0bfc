package config

import (
	"os"
	"testing"
)

func TestLoadFromEnvironmentOverridesTaggedFields(t *testing.T) {
	os.Setenv("NEATPMD_SOCKET", "/tmp/env.sock")
	os.Setenv("NEATPMD_CANDIDATES", "7")
	os.Setenv("NEATPMD_COLOR", "false")
	defer os.Unsetenv("NEATPMD_SOCKET")
	defer os.Unsetenv("NEATPMD_CANDIDATES")
	defer os.Unsetenv("NEATPMD_COLOR")

	cfg := DefaultConfig()
	if err := NewLoader().LoadFromEnvironment(cfg); err != nil {
		t.Fatalf("LoadFromEnvironment: %v", err)
	}

	if cfg.Socket != "/tmp/env.sock" {
		t.Errorf("expected socket overridden from env, got %q", cfg.Socket)
	}
	if cfg.Candidates != 7 {
		t.Errorf("expected candidates overridden from env, got %d", cfg.Candidates)
	}
	if cfg.Color {
		t.Error("expected color overridden to false from env")
	}
}

func TestLoadFromEnvironmentLeavesUnsetFieldsAlone(t *testing.T) {
	cfg := DefaultConfig()
	if err := NewLoader().LoadFromEnvironment(cfg); err != nil {
		t.Fatalf("LoadFromEnvironment: %v", err)
	}
	if cfg.Socket != "/var/run/neatpmd.sock" {
		t.Errorf("expected default socket preserved, got %q", cfg.Socket)
	}
}

func TestLoadFromEnvironmentRejectsUnparseableInt(t *testing.T) {
	os.Setenv("NEATPMD_CANDIDATES", "not-a-number")
	defer os.Unsetenv("NEATPMD_CANDIDATES")

	cfg := DefaultConfig()
	if err := NewLoader().LoadFromEnvironment(cfg); err == nil {
		t.Fatal("expected an error parsing a non-numeric NEATPMD_CANDIDATES")
	}
}

func TestLoadFromEnvironmentRejectsUnparseableBool(t *testing.T) {
	os.Setenv("NEATPMD_COLOR", "not-a-bool")
	defer os.Unsetenv("NEATPMD_COLOR")

	cfg := DefaultConfig()
	if err := NewLoader().LoadFromEnvironment(cfg); err == nil {
		t.Fatal("expected an error parsing a non-boolean NEATPMD_COLOR")
	}
}
