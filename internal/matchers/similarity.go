package matchers

import (
	"fmt"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/mapping"
)

// Similarity normalizes a count of common mapped descendants.
type Similarity int

const (
	// Chawathe is common / max(|a|, |b|).
	Chawathe Similarity = iota
	// Dice is 2*common / (|a| + |b|).
	Dice
	// Jaccard is common / (|a| + |b| - common).
	Jaccard
	// Overlap is common / min(|a|, |b|).
	Overlap
)

var similarityNames = map[Similarity]string{
	Chawathe: "chawathe",
	Dice:     "dice",
	Jaccard:  "jaccard",
	Overlap:  "overlap",
}

func (s Similarity) String() string {
	if n, ok := similarityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Similarity(%d)", int(s))
}

// ParseSimilarity maps a name back to a Similarity.
func ParseSimilarity(name string) (Similarity, error) {
	for s, n := range similarityNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("matchers: unknown similarity %q", name)
}

// Score normalizes common against the descendant counts of both nodes.
// Two empty sets score 0.
func (s Similarity) Score(common, a, b int) float64 {
	c := float64(common)
	switch s {
	case Dice:
		if a+b == 0 {
			return 0
		}
		return 2 * c / float64(a+b)
	case Jaccard:
		den := a + b - common
		if den == 0 {
			return 0
		}
		return c / float64(den)
	case Overlap:
		m := min(a, b)
		if m == 0 {
			return 0
		}
		return c / float64(m)
	default:
		m := max(a, b)
		if m == 0 {
			return 0
		}
		return c / float64(m)
	}
}

// CommonDescendants counts the mapped pairs (t, m(t)) with t below a and
// m(t) below b. Both ranges are contiguous, so this is one scan over a's
// descendants.
func CommonDescendants(src, dst decompressed.Arena, m *mapping.Store, a, b ID) int {
	lo, hi := decompressed.Descendants(src, a)
	dlo := dst.FirstDescendant(b)
	n := 0
	for t := lo; t < hi; t++ {
		if d, ok := m.GetDst(t); ok && d >= dlo && d < b {
			n++
		}
	}
	return n
}
