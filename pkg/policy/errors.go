package policy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/starkandwayne/goutils/ansi"
)

// Sentinel errors named directly after the kinds in spec §7. Use
// errors.Is against these; ImmutableConflict also carries structured
// detail via ConflictError. PIB.Register returns ErrDuplicateMatch itself,
// without further detail.
var (
	// ErrMalformedJSON marks a request or repository file that failed to parse.
	ErrMalformedJSON = errors.New("malformed JSON")
	// ErrInvalidProperty marks a value or range that could not be constructed.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrNotNumeric marks a range/scalar overlap attempted on non-numeric values.
	ErrNotNumeric = errors.New("value is not numeric")
	// ErrImmutableConflict marks two IMMUTABLE properties whose values are disjoint.
	ErrImmutableConflict = errors.New("immutable property conflict")
	// ErrKeyMismatch marks an attempt to merge properties with different keys.
	ErrKeyMismatch = errors.New("property key mismatch")
	// ErrDuplicateMatch marks a policy whose match clause duplicates one
	// already registered in a PIB.
	ErrDuplicateMatch = errors.New("duplicate policy match")
)

// ConflictError carries the two properties that produced an
// ErrImmutableConflict, for diagnostics.
type ConflictError struct {
	Key   string
	Self  Property
	Other Property
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: immutable property %q conflicts with %q for key %q",
		ErrImmutableConflict, e.Self.Value, e.Other.Value, e.Key)
}

func (e *ConflictError) Unwrap() error { return ErrImmutableConflict }

// MultiError collects every error encountered while loading a directory of
// repository files, so the daemon can emit one summarized diagnostic per
// scan instead of one line per bad file. Modeled directly on the teacher's
// errors.MultiError.
type MultiError struct {
	Errors []error
}

// Append adds err to the collection, flattening a nested MultiError and
// ignoring nil.
func (e *MultiError) Append(err error) {
	if err == nil {
		return
	}
	if mult, ok := err.(*MultiError); ok {
		e.Errors = append(e.Errors, mult.Errors...)
		return
	}
	e.Errors = append(e.Errors, err)
}

// Count returns the number of collected errors.
func (e *MultiError) Count() int { return len(e.Errors) }

// ErrOrNil returns e if it holds any errors, nil otherwise, so callers can
// write `return errs.ErrOrNil()` without an extra len check.
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *MultiError) Error() string {
	s := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		s = append(s, fmt.Sprintf(" - %s\n", err))
	}
	sort.Strings(s)
	return ansi.Sprintf("@r{%d} error(s) detected:\n%s", len(e.Errors), strings.Join(s, ""))
}
