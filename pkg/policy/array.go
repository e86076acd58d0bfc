package policy

import "sort"

// Array is a unique-key bag of Properties (spec §3.4). The zero value is an
// empty, usable Array.
type Array struct {
	props map[string]Property
	// order preserves insertion order so Array's String/JSON output and
	// score accounting are deterministic across runs, matching the
	// pipeline-determinism invariant in spec §8.7.
	order []string
}

// NewEmptyArray returns a ready-to-use empty Array. Equivalent to the zero
// value; provided for readability at call sites that build one up
// property by property.
func NewEmptyArray() *Array { return &Array{props: map[string]Property{}} }

// NewArray builds an Array from the given properties, merging duplicate
// keys via Property.Merge in the order given. The first ImmutableConflict
// encountered aborts and is returned.
func NewArray(props ...Property) (*Array, error) {
	a := &Array{props: map[string]Property{}}
	for _, p := range props {
		if err := a.Add(p); err != nil {
			return a, err
		}
	}
	return a, nil
}

// Add inserts p, or merges it into the existing same-keyed property per
// spec §4.3. An ImmutableConflict propagates unchanged and leaves the
// previous value for that key in place.
func (a *Array) Add(p Property) error {
	if a.props == nil {
		a.props = map[string]Property{}
	}
	existing, ok := a.props[p.Key]
	if !ok {
		a.props[p.Key] = p
		a.order = append(a.order, p.Key)
		return nil
	}
	merged, err := existing.Merge(p)
	if err != nil {
		return err
	}
	a.props[p.Key] = merged
	return nil
}

// Get returns the property stored under key, if any.
func (a *Array) Get(key string) (Property, bool) {
	if a == nil {
		return Property{}, false
	}
	p, ok := a.props[key]
	return p, ok
}

// Keys returns the Array's keys in insertion order.
func (a *Array) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Len returns the number of distinct keys.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.order)
}

// Values returns the Array's properties in insertion order.
func (a *Array) Values() []Property {
	if a == nil {
		return nil
	}
	out := make([]Property, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.props[k])
	}
	return out
}

// Score is the sum of Score over every Evaluated property, per spec §3.4.
func (a *Array) Score() float64 {
	if a == nil {
		return 0
	}
	var sum float64
	for _, p := range a.props {
		if p.Evaluated {
			sum += p.Score
		}
	}
	return sum
}

// Equal reports whether a and b hold exactly the same keys, each mapped to
// values that are identical (not merely overlapping) in value and
// precedence. Used by the PIB to detect a policy whose match clause
// duplicates one already registered (spec §4.6).
func (a *Array) Equal(b *Array) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, k := range a.Keys() {
		ap, _ := a.Get(k)
		bp, ok := b.Get(k)
		if !ok || !ap.Value.Equal(bp.Value) || ap.Precedence != bp.Precedence {
			return false
		}
	}
	return true
}

// Clone returns a deep copy; inputs to the algebraic operators below are
// never mutated, matching spec §4.3.
func (a *Array) Clone() *Array {
	out := &Array{props: make(map[string]Property, a.Len())}
	for _, k := range a.Keys() {
		out.props[k] = a.props[k]
		out.order = append(out.order, k)
	}
	return out
}

// Merge returns a new Array holding the symmetric-difference copies of a
// and b unioned with the pairwise merge of their shared keys (the `+`
// operator of spec §4.3). Either argument may be nil (treated as empty).
func Merge(a, b *Array) (*Array, error) {
	out := &Array{props: map[string]Property{}}
	for _, p := range sortedUnion(a, b) {
		self, inA := a.Get(p)
		other, inB := b.Get(p)
		switch {
		case inA && inB:
			merged, err := self.Merge(other)
			if err != nil {
				return out, err
			}
			out.props[p] = merged
		case inA:
			out.props[p] = self
		default:
			out.props[p] = other
		}
		out.order = append(out.order, p)
	}
	return out, nil
}

// Intersect returns a new Array holding only the pairwise merges of a's and
// b's shared keys (the `&` operator of spec §4.3).
func Intersect(a, b *Array) (*Array, error) {
	out := &Array{props: map[string]Property{}}
	for _, k := range a.Keys() {
		self, _ := a.Get(k)
		other, inB := b.Get(k)
		if !inB {
			continue
		}
		merged, err := self.Merge(other)
		if err != nil {
			return out, err
		}
		out.props[k] = merged
		out.order = append(out.order, k)
	}
	return out, nil
}

// SymmetricDifference returns a new Array holding copies of the properties
// whose keys appear in exactly one of a, b (the `^` operator of spec §4.3).
func SymmetricDifference(a, b *Array) *Array {
	out := &Array{props: map[string]Property{}}
	inA := map[string]bool{}
	for _, k := range a.Keys() {
		inA[k] = true
	}
	inB := map[string]bool{}
	for _, k := range b.Keys() {
		inB[k] = true
	}
	for _, k := range sortedUnion(a, b) {
		if inA[k] && inB[k] {
			continue
		}
		if inA[k] {
			p, _ := a.Get(k)
			out.props[k] = p
		} else {
			p, _ := b.Get(k)
			out.props[k] = p
		}
		out.order = append(out.order, k)
	}
	return out
}

// sortedUnion returns the union of a's and b's keys: a's keys in a's
// insertion order, followed by the b-only keys sorted alphabetically.
func sortedUnion(a, b *Array) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range a.Keys() {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	bKeys := b.Keys()
	sort.Strings(bKeys)
	for _, k := range bKeys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
