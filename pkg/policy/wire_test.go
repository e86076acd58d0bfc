package policy

import (
	"math"
	"strings"
	"testing"
)

func TestDecodeRequestScalarAndRangeShapes(t *testing.T) {
	doc := `{
		"transport": {"value": "TCP", "precedence": 2},
		"MTU": {"value": [1500, 9000]},
		"latency": {"value": {"start": 10, "end": 50}}
	}`
	arr, warnings := DecodeRequest([]byte(doc))
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	transport, ok := arr.Get("transport")
	if !ok || transport.Precedence != Immutable {
		t.Fatalf("expected transport at Immutable precedence, got %+v", transport)
	}
	sv, _ := transport.Value.Scalar()
	if sv != "TCP" {
		t.Fatalf("expected TCP, got %v", sv)
	}

	mtu, ok := arr.Get("MTU")
	if !ok {
		t.Fatal("expected MTU key")
	}
	lo, hi, _ := mtu.Value.Bounds()
	if lo != 1500 || hi != 9000 {
		t.Fatalf("expected [1500,9000] from array shape, got [%v,%v]", lo, hi)
	}

	latency, ok := arr.Get("latency")
	if !ok {
		t.Fatal("expected latency key")
	}
	lo, hi, _ = latency.Value.Bounds()
	if lo != 10 || hi != 50 {
		t.Fatalf("expected [10,50] from start/end shape, got [%v,%v]", lo, hi)
	}
}

func TestDecodeRequestAcceptsLenientInfinityAndNaN(t *testing.T) {
	doc := `{"MTU": {"value": [1500, Infinity]}, "jitter": {"value": NaN}}`
	arr, warnings := DecodeRequest([]byte(doc))
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	mtu, _ := arr.Get("MTU")
	_, hi, _ := mtu.Value.Bounds()
	if !math.IsInf(hi, 1) {
		t.Fatalf("expected +Inf upper bound, got %v", hi)
	}

	jitter, _ := arr.Get("jitter")
	v, _ := jitter.Value.Scalar()
	f, ok := v.(float64)
	if !ok || !math.IsNaN(f) {
		t.Fatalf("expected NaN scalar, got %v", v)
	}
}

func TestDecodeRequestDoesNotMistakeInfinityInsideStrings(t *testing.T) {
	doc := `{"label": {"value": "to Infinity and beyond"}}`
	arr, warnings := DecodeRequest([]byte(doc))
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	label, _ := arr.Get("label")
	v, _ := label.Value.Scalar()
	if v != "to Infinity and beyond" {
		t.Fatalf("expected literal string preserved, got %v", v)
	}
}

func TestDecodeRequestMalformedTopLevelJSON(t *testing.T) {
	_, warnings := DecodeRequest([]byte(`{not valid json`))
	if warnings.Count() == 0 {
		t.Fatal("expected a MalformedJSON warning")
	}
}

func TestDecodeRequestDropsOneBadPropertyButKeepsOthers(t *testing.T) {
	doc := `{"transport": {"value": "TCP"}, "MTU": {"value": [1, 2, 3]}}`
	arr, warnings := DecodeRequest([]byte(doc))
	if warnings.Count() != 1 {
		t.Fatalf("expected exactly 1 warning, got %d: %v", warnings.Count(), warnings)
	}
	if _, ok := arr.Get("transport"); !ok {
		t.Fatal("expected transport to still be present despite MTU's failure")
	}
	if _, ok := arr.Get("MTU"); ok {
		t.Fatal("expected MTU to have been dropped")
	}
}

func TestDecodeRequestPreservesKeyOrderForTieBreaking(t *testing.T) {
	doc := `{"zebra": {"value": "z"}, "alpha": {"value": "a"}}`
	keys, _, err := decodeOrderedObject(sanitizeLenientJSON([]byte(doc)))
	if err != nil {
		t.Fatalf("decodeOrderedObject: %v", err)
	}
	if len(keys) != 2 || keys[0] != "zebra" || keys[1] != "alpha" {
		t.Fatalf("expected source order [zebra alpha], got %v", keys)
	}
}

func TestEncodeCandidatesSortsKeysAndEmitsLenientLiterals(t *testing.T) {
	arr, _ := NewArray(
		reqProp("zebra", NewString("z")),
		reqProp("alpha", mustRangeInf(t)),
	)
	out := string(EncodeCandidates([]*Candidate{{Properties: arr}}))

	if strings.Index(out, `"alpha"`) > strings.Index(out, `"zebra"`) {
		t.Fatalf("expected alphabetically sorted keys, got %s", out)
	}
	if !strings.Contains(out, "Infinity") {
		t.Fatalf("expected a bare Infinity literal in output, got %s", out)
	}
}

func TestEncodeDecodeRoundTripPreservesBounds(t *testing.T) {
	original, _ := NewArray(reqProp("MTU", mustRangeInf(t)))
	encoded := EncodeCandidates([]*Candidate{{Properties: original}})

	decoded, warnings := DecodeRequest(encoded[1 : len(encoded)-1]) // unwrap the single-element array
	if warnings.Count() != 0 {
		t.Fatalf("unexpected warnings decoding round-trip: %v", warnings)
	}
	mtu, ok := decoded.Get("MTU")
	if !ok {
		t.Fatal("expected MTU to round-trip")
	}
	lo, hi, _ := mtu.Value.Bounds()
	if lo != 1500 || !math.IsInf(hi, 1) {
		t.Fatalf("expected [1500,+Inf) to round-trip, got [%v,%v]", lo, hi)
	}
}

func mustRangeInf(t *testing.T) Value {
	t.Helper()
	v, err := NewRange(1500, math.Inf(1))
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	return v
}
