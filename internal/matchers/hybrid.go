package matchers

import "github.com/jward/arbor/internal/decompressed"

// DefaultSizeThreshold is the descendant count above which the hybrid
// scorer switches to hidden views.
const DefaultSizeThreshold = 1000

// HiddenScorer scores on views where every subtree mapped at construction
// time is collapsed to one leaf. A mapped subtree counts once however large
// it is, which makes scores on big containers cheap and approximate.
type HiddenScorer struct {
	pair *Pair
	sim  Similarity
	src  *decompressed.Hidden
	dst  *decompressed.Hidden
}

// NewHiddenScorer builds the views from the current mapping. Call it after
// top-down matching.
func NewHiddenScorer(p *Pair, sim Similarity) *HiddenScorer {
	return &HiddenScorer{
		pair: p,
		sim:  sim,
		src:  decompressed.NewHidden(p.Src, p.Mappings.IsSrc),
		dst:  decompressed.NewHidden(p.Dst, p.Mappings.IsDst),
	}
}

func (h *HiddenScorer) Score(a, b ID) float64 {
	ha, ok := h.src.FromOriginal(a)
	if !ok {
		return 0
	}
	hb, ok := h.dst.FromOriginal(b)
	if !ok {
		return 0
	}
	lo, hi := decompressed.Descendants(h.src, ha)
	dlo := h.dst.FirstDescendant(hb)
	common := 0
	for t := lo; t < hi; t++ {
		d, ok := h.pair.Mappings.GetDst(h.src.ToOriginal(t))
		if !ok {
			continue
		}
		if hd, ok := h.dst.FromOriginal(d); ok && hd >= dlo && hd < hb {
			common++
		}
	}
	return h.sim.Score(common,
		decompressed.DescendantsCount(h.src, ha),
		decompressed.DescendantsCount(h.dst, hb))
}

// HybridScorer uses Small for nodes with at most Threshold descendants and
// Large above it.
type HybridScorer struct {
	Src       decompressed.Arena
	Threshold int
	Small     Scorer
	Large     Scorer
}

func (h *HybridScorer) Score(a, b ID) float64 {
	if decompressed.DescendantsCount(h.Src, a) > h.Threshold {
		return h.Large.Score(a, b)
	}
	return h.Small.Score(a, b)
}
