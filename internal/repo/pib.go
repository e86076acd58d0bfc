package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neatpmd/neatpmd/pkg/policy"
)

// policyFile is the on-disk shape shared by .profile and .policy files
// (spec §6.2): match/properties are each split into three precedence
// buckets rather than the wire format's flat key->property shape.
type policyFile struct {
	Name       string          `json:"name"`
	Priority   int             `json:"priority"`
	Match      json.RawMessage `json:"match"`
	Properties json.RawMessage `json:"properties"`
}

// LoadPIB scans dir for files with the given extension (".profile" or
// ".policy") and registers each as a policy.Policy in the returned PIB. A
// file that fails to parse, or whose match clause duplicates one already
// registered, is logged (collected into the returned MultiError) and
// skipped rather than aborting the scan (spec §7's DuplicateMatch row).
func LoadPIB(dir, ext string) (*policy.PIB, *policy.MultiError) {
	pib := policy.NewPIB()
	warnings := &policy.MultiError{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		warnings.Append(fmt.Errorf("reading directory %s: %w", dir, err))
		return pib, warnings
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || hidden(name) || !strings.HasSuffix(name, ext) {
			continue
		}
		path := filepath.Join(dir, name)
		p, err := loadPolicy(path)
		if err != nil {
			warnings.Append(fmt.Errorf("loading %s: %w", path, err))
			continue
		}
		if err := pib.Register(p); err != nil {
			if errors.Is(err, policy.ErrDuplicateMatch) {
				warnings.Append(fmt.Errorf("%s: %q duplicates an already-registered match, dropped", path, p.Name))
				continue
			}
			warnings.Append(fmt.Errorf("registering %s: %w", path, err))
		}
	}
	return pib, warnings
}

func loadPolicy(path string) (*policy.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw policyFile
	if err := json.Unmarshal(policy.SanitizeLenientJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("%w: policy is missing a name", policy.ErrInvalidProperty)
	}

	match := policy.NewEmptyArray()
	if len(raw.Match) > 0 {
		match, err = decodeBucketed(raw.Match)
		if err != nil {
			return nil, fmt.Errorf("match clause: %w", err)
		}
	}

	props := policy.NewEmptyArray()
	if len(raw.Properties) > 0 {
		props, err = decodeBucketed(raw.Properties)
		if err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
	}

	return &policy.Policy{
		Name:       raw.Name,
		Priority:   raw.Priority,
		Match:      match,
		Properties: props,
	}, nil
}
