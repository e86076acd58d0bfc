package policy

// Candidate is a Property Array plus provenance, per spec §3.8: the CIB
// source it was expanded from, and the ids of every PIB policy that has
// applied to it so far. Candidates are produced fresh for each lookup and
// discarded when it ends; nothing outside a single request holds a
// reference to one.
type Candidate struct {
	Properties *Array
	Source     string
	Policies   []string
	Invalid    bool

	// seq orders candidates by the sequence they were produced in, used
	// only to break score ties deterministically (spec invariant 7).
	seq int64
}

// Score is the Candidate's derived score: its Properties' Score.
func (c *Candidate) Score() float64 {
	if c == nil {
		return 0
	}
	return c.Properties.Score()
}

// Clone returns a Candidate with an independent copy of Properties, so a
// PIB can apply policies to it without mutating the one the caller passed
// in.
func (c *Candidate) Clone() *Candidate {
	return &Candidate{
		Properties: c.Properties.Clone(),
		Source:     c.Source,
		Policies:   append([]string(nil), c.Policies...),
		Invalid:    c.Invalid,
		seq:        c.seq,
	}
}
