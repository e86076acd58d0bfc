package repo

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", name, err)
	}
}

func TestLoadCIBRegistersRootAndNonRootSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cib", `{
		"id": "A", "root": true, "priority": 0,
		"description": "root source",
		"properties": {"mtu": {"value": 1500, "precedence": 2}}
	}`)
	writeFile(t, dir, "b.local", `{
		"id": "B", "root": false, "priority": 1,
		"properties": {"transport": {"value": "TCP"}}
	}`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	roots := cib.Roots()
	if len(roots) != 1 || roots[0] != "A" {
		t.Fatalf("expected exactly root A, got %v", roots)
	}
	if _, ok := cib.Get("B"); !ok {
		t.Fatal("expected non-root source B to still be registered")
	}
}

func TestLoadCIBExpandsMultiValuedProperty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cib", `{
		"id": "A", "root": true, "priority": 0,
		"properties": {
			"transport": [{"value": "TCP"}, {"value": "UDP"}]
		}
	}`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	var n int
	for range cib.Entries() {
		n++
	}
	if n != 2 {
		t.Fatalf("expected 2 expanded entries from 2 transport alternatives, got %d", n)
	}
}

func TestLoadCIBFollowsNextRefs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cib", `{
		"id": "A", "root": true, "priority": 0,
		"@next": ["B"],
		"properties": {"region": {"value": "east"}}
	}`)
	writeFile(t, dir, "b.cib", `{
		"id": "B", "root": false, "priority": 1,
		"properties": {"isp": {"value": "acme"}}
	}`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	for entry := range cib.Entries() {
		if _, ok := entry.Properties.Get("region"); !ok {
			t.Error("expected merged entry to carry root's own property")
		}
		if _, ok := entry.Properties.Get("isp"); !ok {
			t.Error("expected merged entry to carry the @next-referenced source's property")
		}
	}
}

func TestLoadCIBSkipsMalformedFileButKeepsOthers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.cib", `{"id": "A", "root": true, "priority": 0, "properties": {}}`)
	writeFile(t, dir, "bad.cib", `{not valid json`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 1 {
		t.Fatalf("expected exactly 1 warning for the malformed file, got %d: %v", warnings.Count(), warnings)
	}
	if _, ok := cib.Get("A"); !ok {
		t.Fatal("expected the well-formed source to still load")
	}
}

func TestLoadCIBIgnoresHiddenAndUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.cib", `{"id": "H", "root": true, "priority": 0, "properties": {}}`)
	writeFile(t, dir, "#backup.cib", `{"id": "H2", "root": true, "priority": 0, "properties": {}}`)
	writeFile(t, dir, "notes.txt", `not a cib file`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(cib.Roots()) != 0 {
		t.Fatalf("expected no sources loaded, got %v", cib.Roots())
	}
}

func TestLoadCIBAcceptsLenientInfinityInProperties(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.connection", `{
		"id": "A", "root": true, "priority": 0,
		"properties": {"bandwidth": {"value": [0, Infinity]}}
	}`)

	cib, warnings := LoadCIB(dir)
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	for entry := range cib.Entries() {
		p, ok := entry.Properties.Get("bandwidth")
		if !ok {
			t.Fatal("expected a bandwidth property")
		}
		_, hi, ok := p.Value.Bounds()
		if !ok {
			t.Fatal("expected bandwidth to decode as a range")
		}
		if !math.IsInf(hi, 1) {
			t.Fatalf("expected +Inf upper bound, got %v", hi)
		}
	}
}
