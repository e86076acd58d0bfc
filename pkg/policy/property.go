package policy

import "math"

// Precedence is the total order INFORMATIONAL < REQUESTED < IMMUTABLE from
// spec §3.2.
type Precedence int

const (
	// Informational marks a hint the pipeline may ignore.
	Informational Precedence = iota
	// Requested marks a property the pipeline should satisfy if possible.
	Requested
	// Immutable marks a property that must hold; a conflicting merge fails.
	Immutable
)

func (p Precedence) String() string {
	switch p {
	case Immutable:
		return "immutable"
	case Requested:
		return "requested"
	case Informational:
		return "informational"
	default:
		return "unknown"
	}
}

// Scoring constants named out of spec §4.2's decision table, per the §9
// design note asking that these be centralized policy knobs rather than
// magic numbers scattered through the merge logic.
const (
	scoreMatchBonus      = 1.0
	scoreMismatchPenalty = -1.0
	scoreImmutableClash  = -9999.0
)

// Property is a (key, value, precedence, score) record as defined in spec
// §3.3. A NaN Score means "never evaluated"; Merge treats it as 0 and sets
// Evaluated. Weight defaults to 1.0 and is reserved for
// future score tuning, same as the Python prototype's unused `weight`.
type Property struct {
	Key        string
	Value      Value
	Precedence Precedence
	Score      float64
	Evaluated  bool
	Weight     float64
}

// NewProperty builds a Property with the REQUESTED precedence and a NaN
// ("never evaluated") score. DecodeRequest and the repository loader use
// a different score default: an omitted score decodes as 1.0.
func NewProperty(key string, value Value) Property {
	return Property{
		Key:        key,
		Value:      value,
		Precedence: Requested,
		Score:      math.NaN(),
		Weight:     1.0,
	}
}

// SameKey reports key-equality, the equivalence relation used to group
// properties inside a PropertyArray or PropertyMultiArray.
func (p Property) SameKey(o Property) bool { return p.Key == o.Key }

// Overlaps implements the `==` relation of spec §3.3: true (with the
// intersection Value) when the two same-keyed properties' values overlap.
// Differently-keyed properties never overlap.
func (p Property) Overlaps(o Property) (Value, bool, error) {
	if p.Key != o.Key {
		return Value{}, false, nil
	}
	return Overlap(p.Value, o.Value)
}

// clone returns a deep copy; Value is an immutable struct so a plain copy
// suffices.
func (p Property) clone() Property { return p }

// Merge applies spec §4.2's decision table, mutating a clone of self with
// other merged in, and returns the clone. self and other must share a key;
// otherwise ErrKeyMismatch is returned unmodified (internal invariant
// violation — Array callers never trigger this if PropertyArray/MultiArray
// invariants hold).
func (p Property) Merge(other Property) (Property, error) {
	if p.Key != other.Key {
		return p, ErrKeyMismatch
	}

	self := p.clone()
	self.Evaluated = true
	if math.IsNaN(self.Score) {
		self.Score = 0
	}

	overlap, overlaps, err := self.Overlaps(other)
	if err != nil {
		return p, err
	}
	differs := !overlaps

	bothImmutable := self.Precedence == Immutable && other.Precedence == Immutable

	switch {
	case other.Precedence >= self.Precedence && !bothImmutable:
		// Case 1: other's precedence dominates (ties go to other).
		self.Value = other.Value
		self.Precedence = other.Precedence
		if differs {
			self.Score += scoreMismatchPenalty
		} else {
			self.Score += scoreMatchBonus
		}

	case bothImmutable && differs:
		// Case 2: two IMMUTABLE properties that cannot both hold.
		self.Score = scoreImmutableClash
		return p, &ConflictError{Key: self.Key, Self: p, Other: other}

	case bothImmutable && !differs:
		// Case 3: two IMMUTABLE properties that agree.
		self.Score += scoreMatchBonus

	case !bothImmutable && differs:
		// Case 4: other has lower precedence and cannot be satisfied.
		self.Score -= other.Score

	default:
		// Case 5: other has lower precedence but overlaps; narrow the range.
		self.Value = overlap
		self.Score += other.Score
	}

	return self, nil
}

// Add clones self and merges other into the clone, per the `+` operator in
// spec §4.2.
func (p Property) Add(other Property) (Property, error) {
	return p.Merge(other)
}
