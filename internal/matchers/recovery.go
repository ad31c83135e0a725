package matchers

import (
	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/seq"
)

// DefaultOptimalSize is the descendant count below which hybrid recovery
// switches to the optimal tree edit distance matcher.
const DefaultOptimalSize = 100

// Recovery links leftover children below a mapped pair.
type Recovery struct {
	// Stable keeps only the child alignments that every longest alignment
	// agrees on, so recovering (b, a) links the inverse of (a, b).
	Stable bool
	// OptimalSize, when positive, hands pairs whose subtrees both have
	// fewer descendants to [Optimal] before the ordered passes.
	OptimalSize int
}

// Recover runs the default recovery on (s, d).
func Recover(p *Pair, s, d ID) { Recovery{}.Recover(p, s, d) }

// Recover links leftover children of the mapped pair (s, d): first
// isomorphic children in order, then children of the same shape in order,
// then by type histogram where a type occurs exactly once among the
// unmapped children of each side. Every inner pair linked here is
// recovered in turn.
func (r Recovery) Recover(p *Pair, s, d ID) {
	if p.srcNode(s).IsLeaf() || p.dstNode(d).IsLeaf() {
		return
	}
	if r.OptimalSize > 0 &&
		decompressed.DescendantsCount(p.Src, s) < r.OptimalSize &&
		decompressed.DescendantsCount(p.Dst, d) < r.OptimalSize {
		r.optimal(p, s, d)
		return
	}

	us, ud := unmappedChildren(p, s, d)
	if len(us) == 0 || len(ud) == 0 {
		return
	}
	align := seq.LCS[ID, ID]
	if r.Stable {
		align = seq.Forced[ID, ID]
	}
	var linked [][2]ID
	for _, ij := range align(us, ud, func(a, b ID) bool {
		return isomorphic(p.Store, p.Src.Original(a), p.Dst.Original(b))
	}) {
		linked = append(linked, p.zipUnmapped(us[ij[0]], ud[ij[1]])...)
	}

	us, ud = unmappedChildren(p, s, d)
	for _, ij := range align(us, ud, func(a, b ID) bool {
		return sameShape(p.Store, p.Src.Original(a), p.Dst.Original(b))
	}) {
		linked = append(linked, p.zipUnmapped(us[ij[0]], ud[ij[1]])...)
	}

	us, ud = unmappedChildren(p, s, d)
	r.histogram(p, us, ud)

	for _, l := range linked {
		r.Recover(p, l[0], l[1])
	}
}

// optimal links (s, d) by edit distance, then runs the ordered passes on
// every mapped pair inside, deepest first, for children the edit mapping
// could not use because they cross or were already taken.
func (r Recovery) optimal(p *Pair, s, d ID) {
	Optimal(p, s, d)
	ordered := Recovery{Stable: r.Stable}
	for x := p.Src.FirstDescendant(s); x <= s; x++ {
		y, ok := p.Mappings.GetDst(x)
		if ok && (y == d || decompressed.IsDescendant(p.Dst, y, d)) {
			ordered.Recover(p, x, y)
		}
	}
}

// histogram links type buckets holding exactly one child per side.
func (r Recovery) histogram(p *Pair, us, ud []ID) {
	if len(us) == 0 || len(ud) == 0 {
		return
	}
	srcByType := bucketByType(us, p.srcNode)
	dstByType := bucketByType(ud, p.dstNode)
	for _, a := range us {
		typ := p.srcNode(a).Type
		ss, ds := srcByType[typ], dstByType[typ]
		if len(ss) != 1 || len(ds) != 1 {
			continue
		}
		if p.Mappings.LinkIfBothUnmapped(ss[0], ds[0]) {
			r.Recover(p, ss[0], ds[0])
		}
	}
}

func bucketByType(ids []ID, node func(ID) hast.Node) map[string][]ID {
	out := make(map[string][]ID)
	for _, x := range ids {
		t := node(x).Type
		out[t] = append(out[t], x)
	}
	return out
}

func unmappedChildren(p *Pair, s, d ID) (us, ud []ID) {
	for _, c := range p.Src.Children(s) {
		if !p.Mappings.IsSrc(c) {
			us = append(us, c)
		}
	}
	for _, c := range p.Dst.Children(d) {
		if !p.Mappings.IsDst(c) {
			ud = append(ud, c)
		}
	}
	return us, ud
}
