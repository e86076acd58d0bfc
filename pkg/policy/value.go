// Package policy implements the property algebra and the Profiles -> CIB ->
// PIB lookup pipeline that turns a connection request into a ranked list of
// candidates.
package policy

import (
	"fmt"
	"math"
)

// Value is either a Scalar (string, bool, or real number) or a closed
// numeric Range [Lo, Hi]. NewRange and Overlap never produce a Range whose
// bounds are equal: such a value is represented as a numeric Scalar.
type Value struct {
	scalar  interface{} // string, bool, or float64 when Kind == ScalarKind
	lo, hi  float64     // valid when Kind == RangeKind
	kind    valueKind
}

type valueKind int

const (
	// ScalarKind holds a string, bool, or float64.
	ScalarKind valueKind = iota
	// RangeKind holds a closed [lo, hi] numeric interval.
	RangeKind
)

// NewString builds a Scalar string Value.
func NewString(s string) Value { return Value{kind: ScalarKind, scalar: s} }

// NewBool builds a Scalar bool Value.
func NewBool(b bool) Value { return Value{kind: ScalarKind, scalar: b} }

// NewNumber builds a Scalar numeric Value.
func NewNumber(f float64) Value { return Value{kind: ScalarKind, scalar: f} }

// NewRange builds a closed [lo, hi] Range, collapsing to a Scalar when
// lo == hi. It returns an error wrapping ErrInvalidProperty if lo > hi.
func NewRange(lo, hi float64) (Value, error) {
	if lo > hi {
		return Value{}, fmt.Errorf("%w: range [%v, %v] has lo > hi", ErrInvalidProperty, lo, hi)
	}
	if lo == hi {
		return NewNumber(lo), nil
	}
	return Value{kind: RangeKind, lo: lo, hi: hi}, nil
}

// IsRange reports whether v is a Range (as opposed to a Scalar).
func (v Value) IsRange() bool { return v.kind == RangeKind }

// IsNumeric reports whether v is a Range or a numeric Scalar.
func (v Value) IsNumeric() bool {
	if v.kind == RangeKind {
		return true
	}
	_, ok := v.scalar.(float64)
	return ok
}

// Bounds returns the [lo, hi] interval for v, treating a numeric scalar x
// as the degenerate range [x, x]. ok is false for non-numeric scalars.
func (v Value) Bounds() (lo, hi float64, ok bool) {
	if v.kind == RangeKind {
		return v.lo, v.hi, true
	}
	if f, isFloat := v.scalar.(float64); isFloat {
		return f, f, true
	}
	return 0, 0, false
}

// Scalar returns the underlying scalar (string, bool, or float64) and
// whether v is in fact a Scalar.
func (v Value) Scalar() (interface{}, bool) {
	if v.kind == ScalarKind {
		return v.scalar, true
	}
	return nil, false
}

// Equal reports whether two values are identical in kind and content,
// without any overlap/containment reasoning. Used for Multi-Array
// deduplication (key, value, precedence) and Policy-match dedup.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == RangeKind {
		return v.lo == o.lo && v.hi == o.hi
	}
	return v.scalar == o.scalar
}

// Overlap implements the range/scalar overlap rule of spec §4.1: treating
// each side as [lo,hi] (scalar x becomes [x,x]), it returns false if the
// intervals are disjoint, or the intersection Value otherwise (collapsed to
// a Scalar when the bounds meet). String/bool scalars overlap only on exact
// equality, and never mix with numeric values.
func Overlap(self, other Value) (Value, bool, error) {
	// string/bool exact match path: neither side is numeric.
	if !self.IsNumeric() && !other.IsNumeric() {
		sv, sok := self.Scalar()
		ov, ook := other.Scalar()
		if sok && ook && sv == ov {
			return self, true, nil
		}
		return Value{}, false, nil
	}

	sLo, sHi, sOK := self.Bounds()
	oLo, oHi, oOK := other.Bounds()
	if !sOK || !oOK {
		return Value{}, false, fmt.Errorf("%w: cannot compare %v with %v", ErrNotNumeric, self, other)
	}

	if oLo > sHi || oHi < sLo {
		return Value{}, false, nil
	}

	lo := math.Max(sLo, oLo)
	hi := math.Min(sHi, oHi)
	result, err := NewRange(lo, hi)
	if err != nil {
		return Value{}, false, err
	}
	return result, true, nil
}

func (v Value) String() string {
	switch v.kind {
	case RangeKind:
		return fmt.Sprintf("%v-%v", formatBound(v.lo), formatBound(v.hi))
	default:
		return fmt.Sprintf("%v", v.scalar)
	}
}

func formatBound(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return fmt.Sprintf("%g", f)
}
