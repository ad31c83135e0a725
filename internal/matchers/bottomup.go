package matchers

import (
	"cmp"
	"math"
	"slices"

	"github.com/jward/arbor/internal/decompressed"
)

// DefaultThreshold is the minimum score for a bottom-up link.
const DefaultThreshold = 0.5

// Scorer rates how well src node a matches dst node b given the current
// mapping. Scores are in [0, 1].
type Scorer interface {
	Score(a, b ID) float64
}

// BottomUp links unmapped src containers to the dst container sharing the
// most mapped descendants with them.
type BottomUp struct {
	Threshold float64
	// Adaptive replaces Threshold with 1/(1+ln n) per candidate pair, n the
	// descendant count of both nodes together.
	Adaptive bool
	// Stable links a container only to a partner that prefers it back, so
	// matching (b, a) links the inverse of matching (a, b).
	Stable   bool
	Scorer   Scorer
	Recovery Recovery
}

// Match links containers bottom-up. The roots are linked last and always.
func (m BottomUp) Match(p *Pair) {
	if m.Stable {
		m.matchMutual(p)
	} else {
		m.matchGreedy(p)
	}
	p.LinkRoots()
	m.Recovery.Recover(p, p.Src.Root(), p.Dst.Root())
}

// matchGreedy walks src in post-order and takes the best candidate of each
// container. Ties go to the leftmost candidate.
func (m BottomUp) matchGreedy(p *Pair) {
	srcRoot := p.Src.Root()
	visited := make([]bool, p.Dst.Len())
	for a := ID(0); a < srcRoot; a++ {
		if p.Mappings.IsSrc(a) || p.srcNode(a).IsLeaf() {
			continue
		}
		cands := candidates(p, a, visited)
		if len(cands) == 0 {
			continue
		}
		best, bestScore := ID(0), -1.0
		for _, b := range cands {
			s := m.Scorer.Score(a, b)
			if s >= m.threshold(p, a, b) && s > bestScore {
				best, bestScore = b, s
			}
		}
		if bestScore >= 0 {
			p.Mappings.Link(a, best)
			m.Recovery.Recover(p, a, best)
		}
	}
}

type link struct {
	src, dst ID
	score    float64
}

// mirrorOrder ranks links by score, then by the unordered id pair. Swapping
// src and dst of both links leaves the result unchanged.
func mirrorOrder(x, y link) int {
	if c := cmp.Compare(y.score, x.score); c != 0 {
		return c
	}
	xlo, xhi := min(x.src, x.dst), max(x.src, x.dst)
	ylo, yhi := min(y.src, y.dst), max(y.src, y.dst)
	if c := cmp.Compare(xhi-xlo, yhi-ylo); c != 0 {
		return c
	}
	if c := cmp.Compare(xlo, ylo); c != 0 {
		return c
	}
	return cmp.Compare(xhi, yhi)
}

// matchMutual links, round by round, every pair whose nodes are each
// other's best candidate. A pair that ties with its own mirror has no
// side-independent winner and is never linked.
func (m BottomUp) matchMutual(p *Pair) {
	srcRoot := p.Src.Root()
	visited := make([]bool, p.Dst.Len())
	blocked := make(map[[2]ID]bool)
	for {
		bestDst := make(map[ID]link)
		bestSrc := make(map[ID]link)
		for a := ID(0); a < srcRoot; a++ {
			if p.Mappings.IsSrc(a) || p.srcNode(a).IsLeaf() {
				continue
			}
			for _, b := range candidates(p, a, visited) {
				if blocked[[2]ID{a, b}] {
					continue
				}
				s := m.Scorer.Score(a, b)
				if s < m.threshold(p, a, b) {
					continue
				}
				l := link{a, b, s}
				if cur, ok := bestDst[a]; !ok || mirrorOrder(l, cur) < 0 {
					bestDst[a] = l
				}
				if cur, ok := bestSrc[b]; !ok || mirrorOrder(l, cur) < 0 {
					bestSrc[b] = l
				}
			}
		}

		var mutual []link
		for a, l := range bestDst {
			if bestSrc[l.dst].src == a {
				mutual = append(mutual, l)
			}
		}
		if len(mutual) == 0 {
			return
		}
		slices.SortFunc(mutual, mirrorOrder)
		var keep []link
		for i, l := range mutual {
			if (i > 0 && mirrorOrder(mutual[i-1], l) == 0) ||
				(i+1 < len(mutual) && mirrorOrder(l, mutual[i+1]) == 0) {
				blocked[[2]ID{l.src, l.dst}] = true
				continue
			}
			keep = append(keep, l)
		}
		for _, l := range keep {
			p.Mappings.Link(l.src, l.dst)
		}
		for _, l := range keep {
			m.Recovery.Recover(p, l.src, l.dst)
		}
	}
}

func (m BottomUp) threshold(p *Pair, a, b ID) float64 {
	if !m.Adaptive {
		return m.Threshold
	}
	n := decompressed.DescendantsCount(p.Src, a) + decompressed.DescendantsCount(p.Dst, b)
	return 1 / (1 + math.Log(float64(max(n, 1))))
}

// candidates collects the unmapped dst ancestors of a's mapped partners
// that have a's type. Candidates come back in ascending id order so ties
// resolve to the leftmost one. visited is scratch space sized to dst.
func candidates(p *Pair, a ID, visited []bool) []ID {
	typ := p.srcNode(a).Type
	dstRoot := p.Dst.Root()
	var out, seen []ID
	lo, hi := decompressed.Descendants(p.Src, a)
	for t := lo; t < hi; t++ {
		seed, ok := p.Mappings.GetDst(t)
		if !ok {
			continue
		}
		for anc := range decompressed.Ancestors(p.Dst, seed) {
			if visited[anc] {
				break
			}
			visited[anc] = true
			seen = append(seen, anc)
			if anc != dstRoot && !p.Mappings.IsDst(anc) && p.dstNode(anc).Type == typ {
				out = append(out, anc)
			}
		}
	}
	for _, v := range seen {
		visited[v] = false
	}
	slices.Sort(out)
	return out
}

// ExactScorer counts common descendants with a range scan.
type ExactScorer struct {
	pair *Pair
	sim  Similarity
}

func NewExactScorer(p *Pair, sim Similarity) *ExactScorer {
	return &ExactScorer{pair: p, sim: sim}
}

func (e *ExactScorer) Score(a, b ID) float64 {
	p := e.pair
	common := CommonDescendants(p.Src, p.Dst, p.Mappings, a, b)
	return e.sim.Score(common,
		decompressed.DescendantsCount(p.Src, a),
		decompressed.DescendantsCount(p.Dst, b))
}
