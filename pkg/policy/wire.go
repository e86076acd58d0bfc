package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Wire format sentinels substituted for the bare (non-JSON-standard)
// Infinity/-Infinity/NaN tokens spec §6.1 requires requests to accept.
// Chosen unlikely to collide with a real string property value; callers
// never see these past DecodeRequest.
const (
	sentinelPosInf = "\x00__graft_policy_posinf__\x00"
	sentinelNegInf = "\x00__graft_policy_neginf__\x00"
	sentinelNaN    = "\x00__graft_policy_nan__\x00"
)

// sanitizeLenientJSON rewrites bare Infinity/-Infinity/NaN identifiers
// outside of quoted strings into sentinel JSON strings, so the result can
// be handed to encoding/json, which only accepts standard JSON literals.
// Grounded in the teacher's tokenizer_enhanced.go token-scanning style.
func sanitizeLenientJSON(data []byte) []byte {
	out := make([]byte, 0, len(data)+16)
	inString := false
	escaped := false

	for i := 0; i < len(data); {
		c := data[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			i++
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			i++
			continue
		}
		if lit, sentinel, ok := matchLenientLiteral(data[i:]); ok {
			out = append(out, '"')
			out = append(out, sentinel...)
			out = append(out, '"')
			i += len(lit)
			continue
		}
		out = append(out, c)
		i++
	}
	return out
}

func matchLenientLiteral(data []byte) (literal, sentinel string, ok bool) {
	for _, cand := range []struct{ lit, sentinel string }{
		{"-Infinity", sentinelNegInf},
		{"Infinity", sentinelPosInf},
		{"NaN", sentinelNaN},
	} {
		if len(data) < len(cand.lit) || string(data[:len(cand.lit)]) != cand.lit {
			continue
		}
		if len(data) > len(cand.lit) && isIdentByte(data[len(cand.lit)]) {
			continue
		}
		return cand.lit, cand.sentinel, true
	}
	return "", "", false
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func sentinelToFloat(s string) (float64, bool) {
	switch s {
	case sentinelPosInf:
		return math.Inf(1), true
	case sentinelNegInf:
		return math.Inf(-1), true
	case sentinelNaN:
		return math.NaN(), true
	default:
		return 0, false
	}
}

// wireProperty is the per-key shape of spec §6.1: {"value":V, "precedence":P?, "score":S?}.
type wireProperty struct {
	Value      json.RawMessage `json:"value"`
	Precedence *int            `json:"precedence"`
	Score      json.RawMessage `json:"score"`
}

// SanitizeLenientJSON exposes sanitizeLenientJSON to callers outside the
// package (internal/repo applies the same lenient-JSON tolerance to
// on-disk CIB/PIB files that DecodeRequest applies to wire requests).
func SanitizeLenientJSON(data []byte) []byte { return sanitizeLenientJSON(data) }

// DecodeValue exposes decodeValue to callers outside the package.
func DecodeValue(raw json.RawMessage) (Value, error) { return decodeValue(raw) }

// decodeValue turns a raw JSON value (post-sanitization) into a Value,
// handling scalars, 2-element range arrays, and {"start","end"} range
// objects per spec §3.1/§6.1.
func decodeValue(raw json.RawMessage) (Value, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return valueFromGeneric(generic)
}

func valueFromGeneric(v interface{}) (Value, error) {
	switch t := v.(type) {
	case string:
		if f, ok := sentinelToFloat(t); ok {
			return NewNumber(f), nil
		}
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case float64:
		return NewNumber(t), nil
	case []interface{}:
		if len(t) != 2 {
			return Value{}, fmt.Errorf("%w: range array needs exactly 2 elements", ErrInvalidProperty)
		}
		lo, err := numberFromGeneric(t[0])
		if err != nil {
			return Value{}, err
		}
		hi, err := numberFromGeneric(t[1])
		if err != nil {
			return Value{}, err
		}
		return NewRange(lo, hi)
	case map[string]interface{}:
		loRaw, hasLo := t["start"]
		hiRaw, hasHi := t["end"]
		if !hasLo || !hasHi {
			return Value{}, fmt.Errorf("%w: range object needs start and end", ErrInvalidProperty)
		}
		lo, err := numberFromGeneric(loRaw)
		if err != nil {
			return Value{}, err
		}
		hi, err := numberFromGeneric(hiRaw)
		if err != nil {
			return Value{}, err
		}
		return NewRange(lo, hi)
	default:
		return Value{}, fmt.Errorf("%w: unsupported value %v", ErrInvalidProperty, v)
	}
}

func numberFromGeneric(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		if f, ok := sentinelToFloat(t); ok {
			return f, nil
		}
		return 0, fmt.Errorf("%w: expected a numeric range bound, got %q", ErrInvalidProperty, t)
	default:
		return 0, fmt.Errorf("%w: expected a numeric range bound", ErrInvalidProperty)
	}
}

// decodeOrderedObject walks a JSON object token by token so the returned
// key order matches the source document exactly; encoding/json's
// map[string]T unmarshal does not make that guarantee, and request-key
// order feeds Array's insertion order, which in turn affects tie-breaking
// during ranking (spec invariant 7, pipeline determinism).
func decodeOrderedObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: request must be a JSON object", ErrMalformedJSON)
	}

	var keys []string
	raw := map[string]json.RawMessage{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: non-string object key", ErrMalformedJSON)
		}
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		keys = append(keys, key)
		raw[key] = msg
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return keys, raw, nil
}

// DecodeRequest parses a spec §6.1 request document into a Array. Malformed
// top-level JSON fails outright; individual malformed properties are
// dropped (ErrInvalidProperty, spec §7) and reported in the returned
// MultiError rather than aborting the whole request.
func DecodeRequest(data []byte) (*Array, *MultiError) {
	warnings := &MultiError{}

	keys, raw, err := decodeOrderedObject(sanitizeLenientJSON(data))
	if err != nil {
		warnings.Append(err)
		return NewEmptyArray(), warnings
	}

	arr := NewEmptyArray()
	for _, key := range keys {
		var wp wireProperty
		if err := json.Unmarshal(raw[key], &wp); err != nil {
			warnings.Append(fmt.Errorf("%w: property %q: %v", ErrMalformedJSON, key, err))
			continue
		}
		val, err := decodeValue(wp.Value)
		if err != nil {
			warnings.Append(fmt.Errorf("property %q: %w", key, err))
			continue
		}

		prec := Requested
		if wp.Precedence != nil {
			prec = Precedence(*wp.Precedence)
		}
		score := 1.0
		if len(wp.Score) > 0 {
			var generic interface{}
			if err := json.Unmarshal(wp.Score, &generic); err == nil && generic != nil {
				f, err := numberFromGeneric(generic)
				if err != nil {
					warnings.Append(fmt.Errorf("property %q: score: %w", key, err))
					continue
				}
				score = f
			}
		}

		if err := arr.Add(Property{Key: key, Value: val, Precedence: prec, Score: score, Weight: 1.0}); err != nil {
			warnings.Append(fmt.Errorf("property %q: %w", key, err))
		}
	}
	return arr, warnings
}

// EncodeCandidates renders candidates as spec §6.1's response document: a
// JSON array of per-property objects, keys sorted alphabetically (matching
// the NEAT prototype's `sort_keys=True`), emitting bare Infinity/-Infinity/
// NaN literals for non-finite bounds since the wire format is lenient JSON,
// not strict IEEE-JSON.
func EncodeCandidates(candidates []*Candidate) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range candidates {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodeArray(&buf, c.Properties)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func encodeArray(buf *bytes.Buffer, a *Array) {
	keys := a.Keys()
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		p, _ := a.Get(k)
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		encodeProperty(buf, p)
	}
	buf.WriteByte('}')
}

func encodeProperty(buf *bytes.Buffer, p Property) {
	buf.WriteByte('{')
	buf.WriteString(`"value":`)
	encodeValue(buf, p.Value)
	buf.WriteString(`,"precedence":`)
	buf.WriteString(strconv.Itoa(int(p.Precedence)))
	buf.WriteString(`,"score":`)
	encodeFloat(buf, p.Score)
	buf.WriteString(`,"evaluated":`)
	buf.WriteString(strconv.FormatBool(p.Evaluated))
	buf.WriteByte('}')
}

func encodeValue(buf *bytes.Buffer, v Value) {
	if v.IsRange() {
		lo, hi, _ := v.Bounds()
		buf.WriteByte('[')
		encodeFloat(buf, lo)
		buf.WriteByte(',')
		encodeFloat(buf, hi)
		buf.WriteByte(']')
		return
	}
	s, _ := v.Scalar()
	switch t := s.(type) {
	case string:
		buf.WriteString(strconv.Quote(t))
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case float64:
		encodeFloat(buf, t)
	default:
		buf.WriteString("null")
	}
}

func encodeFloat(buf *bytes.Buffer, f float64) {
	switch {
	case math.IsInf(f, 1):
		buf.WriteString("Infinity")
	case math.IsInf(f, -1):
		buf.WriteString("-Infinity")
	case math.IsNaN(f):
		buf.WriteString("NaN")
	default:
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
}
