package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/neatpmd/neatpmd/pkg/policy"
)

// cibExtensions are the three file suffixes spec §6.2 reads as CIB
// sources. ".local" and ".connection" are carried over unchanged from
// the original NEAT prototype's load_cib glob.
var cibExtensions = []string{".cib", ".local", ".connection"}

// cibSourceFile is the on-disk shape of one CIB source (spec §6.2).
type cibSourceFile struct {
	ID          string          `json:"id"`
	Root        bool            `json:"root"`
	Priority    int             `json:"priority"`
	Description string          `json:"description"`
	Next        []string        `json:"@next"`
	Properties  json.RawMessage `json:"properties"`
}

// LoadCIB scans dir for .cib/.local/.connection files and registers each
// as a policy.Source in the returned CIB, mirroring
// original_source/policy/cib.py's CIB.load_cib: a file that fails to
// parse is logged (collected into the returned MultiError) and skipped
// rather than aborting the whole scan (spec §7).
func LoadCIB(dir string) (*policy.CIB, *policy.MultiError) {
	cib := policy.NewCIB()
	warnings := &policy.MultiError{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		warnings.Append(fmt.Errorf("reading CIB directory %s: %w", dir, err))
		return cib, warnings
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || hidden(name) || !hasAnyExt(name, cibExtensions) {
			continue
		}
		path := filepath.Join(dir, name)
		src, err := loadCIBSource(path)
		if err != nil {
			warnings.Append(fmt.Errorf("loading CIB source %s: %w", path, err))
			continue
		}
		cib.Register(src)
	}
	return cib, warnings
}

func hasAnyExt(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func loadCIBSource(path string) (*policy.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw cibSourceFile
	if err := json.Unmarshal(policy.SanitizeLenientJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("%w: CIB source is missing an id", policy.ErrInvalidProperty)
	}

	multi := policy.NewMultiArray()
	if len(raw.Properties) > 0 {
		keys, rawProps, err := orderedKeys(raw.Properties)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			alts, err := decodePropertyAlternatives(key, rawProps[key])
			if err != nil {
				return nil, err
			}
			for _, p := range alts {
				multi.Add(p)
			}
		}
	}

	return &policy.Source{
		ID:          raw.ID,
		Root:        raw.Root,
		Priority:    raw.Priority,
		Description: raw.Description,
		Filename:    filepath.Base(path),
		Properties:  multi,
		Refs:        raw.Next,
	}, nil
}
