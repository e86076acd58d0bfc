package policy

import (
	"container/heap"
	"errors"
	"fmt"
	"iter"
	"sort"
)

// DefaultCIBCandidates is the candidate_num default from spec §4.5.
const DefaultCIBCandidates = 5

// Source is a named node in the CIB's directed reference graph (spec §3.6).
type Source struct {
	ID          string
	Root        bool
	Priority    int
	Description string
	Filename    string
	Properties  *MultiArray
	// Refs preserves the order references were declared in the source
	// file; the graph walk in resolveRefs iterates in this order so that
	// tie-broken path enumeration is reproducible (spec §8.7).
	Refs []string
}

// Entry is one expanded candidate base produced by walking the reference
// graph out of a root Source, before being joined with a request.
type Entry struct {
	Properties *Array
	Source     string
}

// CIB is the Characteristics Information Base: a registry of Sources plus
// the reference-graph expansion and request-join logic of spec §4.5.
type CIB struct {
	sources map[string]*Source
	order   []string
}

// NewCIB returns an empty, ready-to-register CIB.
func NewCIB() *CIB {
	return &CIB{sources: map[string]*Source{}}
}

// Register adds src to the CIB, indexed by its ID.
func (c *CIB) Register(src *Source) {
	if _, exists := c.sources[src.ID]; !exists {
		c.order = append(c.order, src.ID)
	}
	c.sources[src.ID] = src
}

// Get returns the Source registered under id.
func (c *CIB) Get(id string) (*Source, bool) {
	s, ok := c.sources[id]
	return s, ok
}

// Roots returns every root Source's id, in registration order.
func (c *CIB) Roots() []string {
	var roots []string
	for _, id := range c.order {
		if c.sources[id].Root {
			roots = append(roots, id)
		}
	}
	return roots
}

// resolveRefs implements spec §4.5's path-priority algorithm: every simple
// directed walk out of id, each path re-sorted so ids appear in
// non-decreasing priority order (stable insertion at the bisect-right
// point, mirroring the Python prototype's `bisect.bisect`).
func (c *CIB) resolveRefs(id string, path []string) ([][]string, error) {
	src, ok := c.sources[id]
	if !ok {
		return nil, fmt.Errorf("CIB: unknown source %q referenced", id)
	}

	priorities := make([]int, len(path))
	for i, p := range path {
		priorities[i] = c.sources[p].Priority
	}
	pos := sort.Search(len(priorities), func(i int) bool { return priorities[i] > src.Priority })

	newPath := make([]string, 0, len(path)+1)
	newPath = append(newPath, path[:pos]...)
	newPath = append(newPath, id)
	newPath = append(newPath, path[pos:]...)

	inPath := make(map[string]bool, len(newPath))
	for _, p := range newPath {
		inPath[p] = true
	}

	var remaining []string
	for _, r := range src.Refs {
		if !inPath[r] {
			remaining = append(remaining, r)
		}
	}
	if len(remaining) == 0 {
		return [][]string{newPath}, nil
	}

	var out [][]string
	for _, r := range remaining {
		branch := make([]string, len(newPath))
		copy(branch, newPath)
		sub, err := c.resolveRefs(r, branch)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// product invokes visit with every combination picking one element from
// each of lists, generated depth-first so no full cross product is ever
// held in memory at once (spec §9's streaming requirement). visit returns
// false to stop the walk early.
func product(lists [][]*Array, idx int, acc []*Array, visit func([]*Array) bool) bool {
	if idx == len(lists) {
		combo := make([]*Array, len(acc))
		copy(combo, acc)
		return visit(combo)
	}
	for _, a := range lists[idx] {
		if !product(lists, idx+1, append(acc, a), visit) {
			return false
		}
	}
	return true
}

// Entries lazily yields every expanded Property Array reachable from every
// root Source (spec §4.5's CIB.entries), tagged with the root's id as
// provenance. A path whose own cross-source merge hits an
// ImmutableConflict is silently skipped: it can never produce a valid
// candidate.
func (c *CIB) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, rootID := range c.Roots() {
			paths, err := c.resolveRefs(rootID, nil)
			if err != nil {
				continue
			}
			for _, path := range paths {
				lists := make([][]*Array, len(path))
				bad := false
				for i, id := range path {
					expanded, err := c.sources[id].Properties.Expand()
					if err != nil {
						bad = true
						break
					}
					lists[i] = expanded
				}
				if bad {
					continue
				}

				stop := false
				product(lists, 0, nil, func(combo []*Array) bool {
					merged := &Array{props: map[string]Property{}}
					var err error
					for _, a := range combo {
						merged, err = Merge(merged, a)
						if err != nil {
							// path order is ascending priority, so a
							// conflict here means this particular
							// combination of alternatives can never be
							// satisfied jointly; try the next one.
							return true
						}
					}
					if !yield(&Entry{Properties: merged, Source: rootID}) {
						stop = true
						return false
					}
					return true
				})
				if stop {
					return
				}
			}
		}
	}
}

// candidateHeap is a min-heap over Candidates by score, used to keep only
// the top-k entries seen so far without materializing every candidate.
type candidateHeap struct {
	items []*Candidate
	seq   []int64 // insertion sequence, parallel to items, for stable tie-break
}

func (h candidateHeap) Len() int { return len(h.items) }
func (h candidateHeap) Less(i, j int) bool {
	si, sj := h.items[i].Score(), h.items[j].Score()
	if si != sj {
		return si < sj
	}
	// Among equal scores the heap should evict the most-recently-inserted
	// first, so that final output preserves original insertion order.
	return h.seq[i] > h.seq[j]
}
func (h candidateHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.seq[i], h.seq[j] = h.seq[j], h.seq[i]
}
func (h *candidateHeap) Push(x interface{}) {
	h.items = append(h.items, x.(*Candidate))
	h.seq = append(h.seq, x.(*Candidate).seq)
}
func (h *candidateHeap) Pop() interface{} {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	h.seq = h.seq[:n-1]
	return item
}

// Lookup implements spec §4.5's CIB.lookup: join every entry with request,
// drop entries that raise ImmutableConflict, and return the top-k
// candidates by descending score, ties broken by insertion (entry) order.
// k <= 0 uses DefaultCIBCandidates.
func (c *CIB) Lookup(request *Array, k int) ([]*Candidate, error) {
	if k <= 0 {
		k = DefaultCIBCandidates
	}

	h := &candidateHeap{}
	heap.Init(h)
	var seq int64

	for entry := range c.Entries() {
		merged, err := Merge(entry.Properties, request)
		if err != nil {
			if errors.Is(err, ErrImmutableConflict) {
				continue
			}
			return nil, err
		}
		cand := &Candidate{Properties: merged, Source: entry.Source, seq: seq}
		seq++

		if h.Len() < k {
			heap.Push(h, cand)
			continue
		}
		if cand.Score() > h.items[0].Score() {
			heap.Pop(h)
			heap.Push(h, cand)
		}
	}

	out := make([]*Candidate, h.Len())
	copy(out, h.items)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si != sj {
			return si > sj
		}
		return out[i].seq < out[j].seq
	})
	return out, nil
}
