// Package config provides neatpmd's configuration system: a YAML document
// plus environment variable overrides, validated before the daemon starts
// serving requests.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is neatpmd's complete daemon configuration (spec §3.9).
type Config struct {
	// Socket is the Unix domain socket path the daemon listens on.
	Socket string `yaml:"socket" json:"socket" env:"NEATPMD_SOCKET" default:"/var/run/neatpmd.sock"`

	// CIBDir holds .cib/.local/.connection repository files.
	CIBDir string `yaml:"cib_dir" json:"cib_dir" env:"NEATPMD_CIB_DIR" default:"/etc/neat/cib"`
	// ProfileDir holds .profile repository files (the Profiles PIB).
	ProfileDir string `yaml:"profile_dir" json:"profile_dir" env:"NEATPMD_PROFILE_DIR" default:"/etc/neat/profiles"`
	// PolicyDir holds .policy repository files (the Policies PIB).
	PolicyDir string `yaml:"policy_dir" json:"policy_dir" env:"NEATPMD_POLICY_DIR" default:"/etc/neat/policies"`

	// Candidates bounds the pipeline's final top-k result size.
	Candidates int `yaml:"candidates" json:"candidates" env:"NEATPMD_CANDIDATES" default:"10"`
	// CIBCandidates bounds each CIB.Lookup call's top-k.
	CIBCandidates int `yaml:"cib_candidates" json:"cib_candidates" env:"NEATPMD_CIB_CANDIDATES" default:"5"`

	// LogLevel is one of trace/debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"NEATPMD_LOG_LEVEL" default:"info"`
	// Color is read from the config file and NEATPMD_COLOR. cmd/neatpmd
	// does not consult it: the daemon's color setting comes from --color.
	Color bool `yaml:"color" json:"color" env:"NEATPMD_COLOR" default:"true"`
}

// Manager owns the active Config and notifies registered hooks when a
// reload replaces it.
type Manager struct {
	config      *Config
	configPath  string
	mu          sync.RWMutex
	changeHooks []func(*Config)
}

// NewManager returns a Manager seeded with DefaultConfig.
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// DefaultConfig returns neatpmd's built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Socket:        "/var/run/neatpmd.sock",
		CIBDir:        "/etc/neat/cib",
		ProfileDir:    "/etc/neat/profiles",
		PolicyDir:     "/etc/neat/policies",
		Candidates:    10,
		CIBCandidates: 5,
		LogLevel:      "info",
		Color:         true,
	}
}

// Load reads path as YAML, applies environment overrides, validates the
// result, and installs it as the active configuration.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expandedPath, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := NewLoader().LoadFromEnvironment(cfg); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	m.config = cfg
	m.configPath = expandedPath
	m.notifyChangeHooks(cfg)
	return nil
}

// Get returns a copy of the currently active configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfgCopy := *m.config
	return &cfgCopy
}

// Path returns the path the active configuration was loaded from, or "" if
// Load has never succeeded.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// OnChange registers a hook invoked (in its own goroutine) whenever Load
// installs a new configuration.
func (m *Manager) OnChange(hook func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeHooks = append(m.changeHooks, hook)
}

func (m *Manager) notifyChangeHooks(cfg *Config) {
	for _, hook := range m.changeHooks {
		go hook(cfg)
	}
}

// expandPath expands a leading ~ and any $VAR references in path.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}
