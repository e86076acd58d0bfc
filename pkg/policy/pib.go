package policy

import (
	"errors"
	"sort"
)

// Policy is a named match/apply rule (spec §3.7). Both profiles (consumed
// pre-CIB) and policies (consumed post-CIB) share this shape; the
// distinction is purely in which PIB role reads them (see LookupProfiles
// vs Lookup below).
type Policy struct {
	Name       string
	Priority   int
	Match      *Array
	Properties *Array
}

// MatchLen is the match_len ordering key from spec §3.7.
func (p *Policy) MatchLen() int {
	if p.Match == nil {
		return 0
	}
	return p.Match.Len()
}

// PIB is a Policy Information Base: an ordered collection of Policies kept
// sorted by ascending match_len so that broader (and wildcard) rules are
// always evaluated before narrower ones (spec §4.6).
type PIB struct {
	policies []*Policy
}

// NewPIB returns an empty, ready-to-register PIB.
func NewPIB() *PIB { return &PIB{} }

// Register adds p to the PIB, re-sorting by ascending match_len. A policy
// whose Match already equals one already registered is rejected with
// ErrDuplicateMatch and not added (spec §4.6 / §7's DuplicateMatch row).
func (pib *PIB) Register(p *Policy) error {
	for _, existing := range pib.policies {
		if existing.Match.Equal(p.Match) {
			return ErrDuplicateMatch
		}
	}
	pib.policies = append(pib.policies, p)
	sort.SliceStable(pib.policies, func(i, j int) bool {
		return pib.policies[i].MatchLen() < pib.policies[j].MatchLen()
	})
	return nil
}

// Policies returns the registered policies in match_len order.
func (pib *PIB) Policies() []*Policy { return pib.policies }

// Compare implements spec §4.6's match predicate. An empty match always
// succeeds. Otherwise it restricts to the keys present and overlapping in
// both match and candidate; if that restricted key set is empty, the
// policy does not apply. In strict mode every key in the restricted set
// must also satisfy candidate.precedence >= match.precedence.
func Compare(match, candidate *Array, strict bool) bool {
	if match.Len() == 0 {
		return true
	}

	var matched []string
	for _, k := range match.Keys() {
		mp, _ := match.Get(k)
		cp, ok := candidate.Get(k)
		if !ok {
			continue
		}
		_, overlaps, err := mp.Overlaps(cp)
		if err != nil || !overlaps {
			continue
		}
		matched = append(matched, k)
	}
	if len(matched) == 0 {
		return false
	}

	if strict {
		for _, k := range matched {
			mp, _ := match.Get(k)
			cp, _ := candidate.Get(k)
			if cp.Precedence < mp.Precedence {
				return false
			}
		}
	}
	return true
}

// Apply inserts every property of p.Properties into target via Array.Add
// (spec §4.6). It applies every property regardless of earlier failures,
// returning the first ImmutableConflict encountered (if any) so the caller
// can mark its candidate invalid without losing the properties that did
// merge cleanly.
func Apply(p *Policy, target *Array) error {
	var conflict error
	for _, prop := range p.Properties.Values() {
		if err := target.Add(prop); err != nil {
			if conflict == nil && errors.Is(err, ErrImmutableConflict) {
				conflict = err
			}
		}
	}
	return conflict
}

// Lookup implements the policy-role PIB of spec §4.6/§4.7 step 3: every
// matching policy fires, in match_len order, each seeing the properties
// written by the ones before it. A policy that raises ImmutableConflict
// marks the candidate invalid but does not stop later policies from being
// tried.
func (pib *PIB) Lookup(candidate *Candidate) *Candidate {
	for _, p := range pib.policies {
		if !Compare(p.Match, candidate.Properties, true) {
			continue
		}
		if err := Apply(p, candidate.Properties); err != nil {
			candidate.Invalid = true
			continue
		}
		candidate.Policies = append(candidate.Policies, p.Name)
	}
	return candidate
}

// LookupProfiles implements the profiles-role PIB of spec §4.6/§4.7 step 1:
// every matching profile expands the request into its own enriched copy.
// Per Open Question O2, if no profile matches, the original request is
// returned unchanged as the sole result.
func (pib *PIB) LookupProfiles(request *Array) []*Array {
	var out []*Array
	for _, p := range pib.policies {
		if !Compare(p.Match, request, true) {
			continue
		}
		enriched := request.Clone()
		if err := Apply(p, enriched); err != nil {
			// A profile whose own effects conflict with the request
			// cannot produce a usable enriched request.
			continue
		}
		out = append(out, enriched)
	}
	if len(out) == 0 {
		return []*Array{request.Clone()}
	}
	return out
}
