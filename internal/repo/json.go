// Package repo turns a directory of CIB/PIB source files on disk (spec
// §6.2) into the in-memory policy.CIB and policy.PIB registries, following
// the load-log-skip discipline of original_source/policy/cib.py's
// load_json/load_cib.
package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neatpmd/neatpmd/pkg/policy"
)

// hidden reports whether a directory entry name should be skipped per spec
// §6.2: a leading "." or "#" marks the file as hidden/backup.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#")
}

// orderedKeys walks a JSON object token by token, preserving source key
// order (encoding/json's map decode does not), so that properties built
// from a repository file merge in file order just as wire requests do
// (spec invariant 7). Mirrors policy package's private decodeOrderedObject,
// duplicated here since that helper is not exported.
func orderedKeys(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: expected a JSON object", policy.ErrMalformedJSON)
	}

	var keys []string
	raw := map[string]json.RawMessage{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: non-string object key", policy.ErrMalformedJSON)
		}
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
		}
		keys = append(keys, key)
		raw[key] = msg
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
	}
	return keys, raw, nil
}

// firstNonSpace returns the first non-whitespace byte of data, or 0 if
// data holds nothing but whitespace.
func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

// propertyObject is one {"value":V, "precedence":P?, "score":S?} entry,
// the shape shared by every repository property slot (spec §6.2).
type propertyObject struct {
	Value      json.RawMessage `json:"value"`
	Precedence *int            `json:"precedence"`
	Score      *float64        `json:"score"`
}

// decodeProperty turns one propertyObject into a policy.Property keyed by
// key, defaulting precedence to Requested and score to 1.0 exactly as
// DecodeRequest does for wire requests (spec §6.1's defaults apply equally
// to repository files; neither format documents a different default).
func decodeProperty(key string, raw json.RawMessage) (policy.Property, error) {
	var po propertyObject
	if err := json.Unmarshal(raw, &po); err != nil {
		return policy.Property{}, fmt.Errorf("%w: property %q: %v", policy.ErrMalformedJSON, key, err)
	}
	val, err := policy.DecodeValue(po.Value)
	if err != nil {
		return policy.Property{}, fmt.Errorf("property %q: %w", key, err)
	}

	prec := policy.Requested
	if po.Precedence != nil {
		prec = policy.Precedence(*po.Precedence)
	}
	score := 1.0
	if po.Score != nil {
		score = *po.Score
	}
	return policy.Property{Key: key, Value: val, Precedence: prec, Score: score, Weight: 1.0}, nil
}

// decodePropertyAlternatives decodes one properties-map slot, which is
// either a single property object or an array of alternative property
// objects (spec §6.2's "multi-valued" shape), returning every alternative
// for key.
func decodePropertyAlternatives(key string, raw json.RawMessage) ([]policy.Property, error) {
	switch firstNonSpace(raw) {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: property %q: %v", policy.ErrMalformedJSON, key, err)
		}
		out := make([]policy.Property, 0, len(items))
		for _, item := range items {
			p, err := decodeProperty(key, item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case '{':
		p, err := decodeProperty(key, raw)
		if err != nil {
			return nil, err
		}
		return []policy.Property{p}, nil
	default:
		return nil, fmt.Errorf("%w: property %q: expected an object or array of objects", policy.ErrInvalidProperty, key)
	}
}

// decodeArray turns a flat properties object (every slot single-valued,
// the shape policy/profile files use for "match" and "properties" within
// each precedence bucket) into a policy.Array.
func decodeArray(data json.RawMessage) (*policy.Array, error) {
	keys, raw, err := orderedKeys(data)
	if err != nil {
		return nil, err
	}
	arr := policy.NewEmptyArray()
	for _, key := range keys {
		p, err := decodeProperty(key, raw[key])
		if err != nil {
			return nil, err
		}
		if err := arr.Add(p); err != nil {
			return nil, fmt.Errorf("property %q: %w", key, err)
		}
	}
	return arr, nil
}

// bucketed is the {"immutable":{...},"requested":{...},"informational":{...}}
// shape policy/profile "match" and "properties" use (spec §6.2), each
// bucket forcing its properties' precedence regardless of any per-property
// "precedence" field, since the bucket IS the precedence.
type bucketed struct {
	Immutable     json.RawMessage `json:"immutable"`
	Requested     json.RawMessage `json:"requested"`
	Informational json.RawMessage `json:"informational"`
}

// decodeBucketed merges all three precedence buckets into a single Array,
// stamping each bucket's properties with that bucket's precedence.
func decodeBucketed(data json.RawMessage) (*policy.Array, error) {
	var b bucketed
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", policy.ErrMalformedJSON, err)
	}

	arr := policy.NewEmptyArray()
	for _, bucket := range []struct {
		prec policy.Precedence
		raw  json.RawMessage
	}{
		{policy.Immutable, b.Immutable},
		{policy.Requested, b.Requested},
		{policy.Informational, b.Informational},
	} {
		if len(bucket.raw) == 0 {
			continue
		}
		keys, raw, err := orderedKeys(bucket.raw)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			p, err := decodeProperty(key, raw[key])
			if err != nil {
				return nil, err
			}
			p.Precedence = bucket.prec
			if err := arr.Add(p); err != nil {
				return nil, fmt.Errorf("property %q: %w", key, err)
			}
		}
	}
	return arr, nil
}
