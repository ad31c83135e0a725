package matchers

import (
	"cmp"
	"slices"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/mapping"
	"github.com/jward/arbor/internal/seq"
)

// DefaultMinHeight keeps single leaves out of top-down matching; they are
// picked up by the recovery passes in their mapped parent's context.
const DefaultMinHeight = 2

// Subtree pairs maximal isomorphic subtrees, tallest first.
type Subtree struct {
	// MinHeight is the smallest subtree height considered.
	MinHeight int
	// Stable resolves ambiguous candidates with a side-symmetric rule so
	// that diff(a, b) mirrors diff(b, a).
	Stable bool
}

// Match links every isomorphic subtree pair it can resolve. Linked
// subtrees are fully mapped, node by node.
func (m Subtree) Match(p *Pair) {
	minH := uint32(max(m.MinHeight, 1))
	srcs := newHeightList(p.Store, p.Src, minH)
	dsts := newHeightList(p.Store, p.Dst, minH)
	multi := mapping.NewMulti()

	for srcs.peek() > 0 && dsts.peek() > 0 {
		for srcs.peek() != dsts.peek() {
			if srcs.peek() > dsts.peek() {
				srcs.openAll()
			} else {
				dsts.openAll()
			}
			if srcs.peek() == 0 || dsts.peek() == 0 {
				break
			}
		}
		if srcs.peek() == 0 || dsts.peek() == 0 {
			break
		}

		curSrc := srcs.pop()
		curDst := dsts.pop()
		byHash := make(map[uint64][]ID, len(curDst))
		for _, d := range curDst {
			h := p.dstNode(d).Hash
			byHash[h] = append(byHash[h], d)
		}
		markedDst := make(map[ID]bool)
		for _, s := range curSrc {
			marked := false
			for _, d := range byHash[p.srcNode(s).Hash] {
				if isomorphic(p.Store, p.Src.Original(s), p.Dst.Original(d)) {
					multi.Link(s, d)
					marked = true
					markedDst[d] = true
				}
			}
			if !marked {
				srcs.open(s)
			}
		}
		for _, d := range curDst {
			if !markedDst[d] {
				dsts.open(d)
			}
		}
	}

	m.resolve(p, multi)
}

// resolve links unique candidates, then ambiguous ones in tie-break order.
func (m Subtree) resolve(p *Pair, multi *mapping.MultiStore) {
	var ambiguous []candidate
	for s := range multi.SrcIDs() {
		if multi.IsUnique(s) {
			d := multi.Dsts(s)[0]
			if !p.Mappings.IsSrc(s) && !p.Mappings.IsDst(d) {
				p.linkSubtrees(s, d)
			}
			continue
		}
		for _, d := range multi.Dsts(s) {
			ambiguous = append(ambiguous, candidate{src: s, dst: d})
		}
	}
	if len(ambiguous) == 0 {
		return
	}

	for i := range ambiguous {
		ambiguous[i].score(p)
	}
	if m.Stable {
		slices.SortFunc(ambiguous, compareStable)
	} else {
		slices.SortFunc(ambiguous, compareGreedy)
	}
	for _, c := range ambiguous {
		if !p.Mappings.IsSrc(c.src) && !p.Mappings.IsDst(c.dst) {
			p.linkSubtrees(c.src, c.dst)
		}
	}
}

// candidate is one ambiguous (src, dst) pair with its tie-break keys.
type candidate struct {
	src, dst ID

	parentSim   float64
	ancestorSim float64
	posDist     int
	idDist      int
}

func (c *candidate) score(p *Pair) {
	sp, sok := p.Src.Parent(c.src)
	dp, dok := p.Dst.Parent(c.dst)
	if sok && dok {
		common := CommonDescendants(p.Src, p.Dst, p.Mappings, sp, dp)
		c.parentSim = Dice.Score(common,
			decompressed.DescendantsCount(p.Src, sp),
			decompressed.DescendantsCount(p.Dst, dp))
	}
	c.ancestorSim = ancestorTypeSim(p, c.src, c.dst)
	spos, _ := decompressed.PositionInParent(p.Src, c.src)
	dpos, _ := decompressed.PositionInParent(p.Dst, c.dst)
	c.posDist = abs(spos - dpos)
	c.idDist = abs(int(c.src) - int(c.dst))
}

// ancestorTypeSim is the Dice ratio of the LCS of both ancestor type chains.
func ancestorTypeSim(p *Pair, s, d ID) float64 {
	var st, dt []string
	for a := range decompressed.Ancestors(p.Src, s) {
		st = append(st, p.srcNode(a).Type)
	}
	for a := range decompressed.Ancestors(p.Dst, d) {
		dt = append(dt, p.dstNode(a).Type)
	}
	if len(st)+len(dt) == 0 {
		return 1
	}
	n := len(seq.LCS(st, dt, func(x, y string) bool { return x == y }))
	return 2 * float64(n) / float64(len(st)+len(dt))
}

func compareScores(a, b candidate) int {
	if c := cmp.Compare(b.parentSim, a.parentSim); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ancestorSim, a.ancestorSim); c != 0 {
		return c
	}
	if c := cmp.Compare(a.posDist, b.posDist); c != 0 {
		return c
	}
	return cmp.Compare(a.idDist, b.idDist)
}

// compareGreedy breaks the final tie by src id, then dst id.
func compareGreedy(a, b candidate) int {
	if c := compareScores(a, b); c != 0 {
		return c
	}
	if c := cmp.Compare(a.src, b.src); c != 0 {
		return c
	}
	return cmp.Compare(a.dst, b.dst)
}

// compareStable breaks the final tie on the unordered id pair. Only the
// mirror pairs (x, y) and (y, x) remain tied, and they never share an
// endpoint, so linking order among them does not change the result.
func compareStable(a, b candidate) int {
	if c := compareScores(a, b); c != 0 {
		return c
	}
	if c := cmp.Compare(min(a.src, a.dst), min(b.src, b.dst)); c != 0 {
		return c
	}
	return cmp.Compare(max(a.src, a.dst), max(b.src, b.dst))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// heightList buckets arena nodes by subtree height.
type heightList struct {
	acc     hast.Accessor
	arena   decompressed.Arena
	minH    uint32
	buckets [][]ID // index is height
	top     uint32
}

func newHeightList(acc hast.Accessor, a decompressed.Arena, minH uint32) *heightList {
	root := a.Root()
	h := acc.Node(a.Original(root)).Height
	l := &heightList{
		acc:     acc,
		arena:   a,
		minH:    minH,
		buckets: make([][]ID, h+1),
	}
	l.push(root)
	return l
}

func (l *heightList) push(x ID) {
	h := l.acc.Node(l.arena.Original(x)).Height
	if h < l.minH {
		return
	}
	l.buckets[h] = append(l.buckets[h], x)
	l.top = max(l.top, h)
}

// peek is the current maximum height, 0 when empty.
func (l *heightList) peek() uint32 {
	for l.top > 0 && len(l.buckets[l.top]) == 0 {
		l.top--
	}
	return l.top
}

func (l *heightList) pop() []ID {
	h := l.peek()
	out := l.buckets[h]
	l.buckets[h] = nil
	return out
}

func (l *heightList) open(x ID) {
	for _, c := range l.arena.Children(x) {
		l.push(c)
	}
}

func (l *heightList) openAll() {
	for _, x := range l.pop() {
		l.open(x)
	}
}
