package config

import (
	"fmt"
	"strings"
)

// ValidationError names a single invalid field (spec: config must fail
// fast on an unusable socket path, missing repository directory, or
// out-of-range candidate bound rather than let the daemon start broken).
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// ValidationErrors aggregates every ValidationError found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Validate checks cfg for internal consistency. It does not touch the
// filesystem: repository directories that don't yet exist are a loader
// concern (internal/repo), not a config-shape concern.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if cfg.Socket == "" {
		errs = append(errs, ValidationError{Field: "socket", Value: cfg.Socket, Message: "must not be empty"})
	}
	if cfg.CIBDir == "" {
		errs = append(errs, ValidationError{Field: "cib_dir", Value: cfg.CIBDir, Message: "must not be empty"})
	}
	if cfg.ProfileDir == "" {
		errs = append(errs, ValidationError{Field: "profile_dir", Value: cfg.ProfileDir, Message: "must not be empty"})
	}
	if cfg.PolicyDir == "" {
		errs = append(errs, ValidationError{Field: "policy_dir", Value: cfg.PolicyDir, Message: "must not be empty"})
	}
	if cfg.Candidates <= 0 {
		errs = append(errs, ValidationError{Field: "candidates", Value: cfg.Candidates, Message: "must be greater than 0"})
	}
	if cfg.CIBCandidates <= 0 {
		errs = append(errs, ValidationError{Field: "cib_candidates", Value: cfg.CIBCandidates, Message: "must be greater than 0"})
	}
	if !contains(validLogLevels, strings.ToLower(cfg.LogLevel)) {
		errs = append(errs, ValidationError{Field: "log_level", Value: cfg.LogLevel, Message: fmt.Sprintf("must be one of: %v", validLogLevels)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
