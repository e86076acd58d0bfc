package policy

// MultiArray maps key -> a non-empty ordered list of alternative Properties
// sharing that key (spec §3.5).
type MultiArray struct {
	lists map[string][]Property
	order []string
}

// NewMultiArray builds a MultiArray from the given properties.
func NewMultiArray(props ...Property) *MultiArray {
	m := &MultiArray{lists: map[string][]Property{}}
	for _, p := range props {
		m.Add(p)
	}
	return m
}

// Add appends p to its key's alternative list unless an entry with the
// same (key, value, precedence) triple is already present, per spec §3.5's
// deduplication rule.
func (m *MultiArray) Add(p Property) {
	if m.lists == nil {
		m.lists = map[string][]Property{}
	}
	existing, ok := m.lists[p.Key]
	if !ok {
		m.lists[p.Key] = []Property{p}
		m.order = append(m.order, p.Key)
		return
	}
	for _, e := range existing {
		if e.Key == p.Key && e.Value.Equal(p.Value) && e.Precedence == p.Precedence {
			return
		}
	}
	m.lists[p.Key] = append(existing, p)
}

// Keys returns the MultiArray's keys in insertion order.
func (m *MultiArray) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Alternatives returns the alternative list stored for key.
func (m *MultiArray) Alternatives(key string) []Property {
	if m == nil {
		return nil
	}
	return m.lists[key]
}

// Expand produces every Array obtainable by picking exactly one property
// per key — the Cartesian product of spec §3.5/§4.4. A MultiArray with no
// keys expands to a single empty Array. The worklist mirrors the
// reference `pas = [{}]` algorithm from the Python prototype
// (policy.py's PropertyMultiArray.expand).
func (m *MultiArray) Expand() ([]*Array, error) {
	pas := []*Array{{props: map[string]Property{}}}
	for _, key := range m.Keys() {
		var next []*Array
		for _, pa := range pas {
			for _, p := range m.lists[key] {
				extended := pa.Clone()
				if err := extended.Add(p); err != nil {
					return nil, err
				}
				next = append(next, extended)
			}
		}
		pas = next
	}
	return pas, nil
}
