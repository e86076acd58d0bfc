package policy

import "sort"

// DefaultCandidates is the pipeline's default top-k result size (spec
// §4.7 step 4).
const DefaultCandidates = 10

// Pipeline wires the three stages of spec §4.7 together: a Profiles PIB
// consumed before the CIB, the CIB itself, and a Policies PIB consumed
// after it.
type Pipeline struct {
	Profiles   *PIB
	CIB        *CIB
	Policies   *PIB
	// Candidates bounds the pipeline's final result size (default
	// DefaultCandidates).
	Candidates int
	// CIBCandidates bounds each CIB.Lookup call (default
	// DefaultCIBCandidates).
	CIBCandidates int
}

// Run executes Profiles.lookup -> CIB.lookup -> Policies.lookup for
// request, returning the top Candidates results sorted by descending
// score. Ties are broken by the order candidates were produced in, which
// is itself deterministic given the same request and repositories (spec
// invariant 7).
func (pl *Pipeline) Run(request *Array) ([]*Candidate, error) {
	k := pl.Candidates
	if k <= 0 {
		k = DefaultCandidates
	}
	cibK := pl.CIBCandidates
	if cibK <= 0 {
		cibK = DefaultCIBCandidates
	}

	enriched := pl.Profiles.LookupProfiles(request)

	var all []*Candidate
	for _, r := range enriched {
		cands, err := pl.CIB.Lookup(r, cibK)
		if err != nil {
			return nil, err
		}
		all = append(all, cands...)
	}

	final := make([]*Candidate, 0, len(all))
	for _, c := range all {
		applied := pl.Policies.Lookup(c)
		if applied.Invalid {
			continue
		}
		final = append(final, applied)
	}

	sort.SliceStable(final, func(i, j int) bool {
		return final[i].Score() > final[j].Score()
	})
	if len(final) > k {
		final = final[:k]
	}
	return final, nil
}
