// Package matchers builds the mapping between two decompressed trees: a
// top-down pass pairs identical subtrees, a bottom-up pass pairs the
// containers around them by similarity and recovery passes pick up what is
// left between mapped parents.
package matchers

import (
	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/mapping"
)

type ID = decompressed.ID

// Pair is the state shared by all matching phases of one diff.
type Pair struct {
	Store    hast.Accessor
	Src      decompressed.Arena
	Dst      decompressed.Arena
	Mappings *mapping.Store
}

// NewPair creates an empty mapping between src and dst.
func NewPair(acc hast.Accessor, src, dst decompressed.Arena) *Pair {
	return &Pair{
		Store:    acc,
		Src:      src,
		Dst:      dst,
		Mappings: mapping.New(src.Len(), dst.Len()),
	}
}

func (p *Pair) srcNode(x ID) hast.Node { return p.Store.Node(p.Src.Original(x)) }

func (p *Pair) dstNode(x ID) hast.Node { return p.Store.Node(p.Dst.Original(x)) }

// linkSubtrees links two isomorphic subtrees node by node. Post-order
// offsets line up because both subtrees have the same shape.
func (p *Pair) linkSubtrees(s, d ID) {
	sl := p.Src.FirstDescendant(s)
	dl := p.Dst.FirstDescendant(d)
	for i := ID(0); i <= s-sl; i++ {
		p.Mappings.Link(sl+i, dl+i)
	}
}

// zipUnmapped is linkSubtrees for subtrees that may already be partly
// mapped; pairs with a mapped endpoint are skipped. It returns the inner
// nodes it linked.
func (p *Pair) zipUnmapped(s, d ID) [][2]ID {
	var linked [][2]ID
	sl := p.Src.FirstDescendant(s)
	dl := p.Dst.FirstDescendant(d)
	for i := ID(0); i <= s-sl; i++ {
		if p.Mappings.LinkIfBothUnmapped(sl+i, dl+i) && !p.srcNode(sl+i).IsLeaf() {
			linked = append(linked, [2]ID{sl + i, dl + i})
		}
	}
	return linked
}

// LinkRoots links the two roots, displacing any mapping that holds either
// of them. Later phases rely on the roots being mapped to each other.
func (p *Pair) LinkRoots() {
	sr, dr := p.Src.Root(), p.Dst.Root()
	if p.Mappings.Has(sr, dr) {
		return
	}
	p.Mappings.Unlink(sr)
	if s, ok := p.Mappings.GetSrc(dr); ok {
		p.Mappings.Unlink(s)
	}
	p.Mappings.Link(sr, dr)
}

// isomorphic compares two shared subtrees for identical type, label and
// shape. A deduplicating store answers on the first comparison.
func isomorphic(acc hast.Accessor, a, b hast.NodeID) bool {
	if a == b {
		return true
	}
	na, nb := acc.Node(a), acc.Node(b)
	if na.Hash != nb.Hash || na.Type != nb.Type || na.Label != nb.Label || len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if !isomorphic(acc, na.Children[i], nb.Children[i]) {
			return false
		}
	}
	return true
}

// sameShape is isomorphic without labels.
func sameShape(acc hast.Accessor, a, b hast.NodeID) bool {
	if a == b {
		return true
	}
	na, nb := acc.Node(a), acc.Node(b)
	if na.StructHash != nb.StructHash || na.Type != nb.Type || len(na.Children) != len(nb.Children) {
		return false
	}
	for i := range na.Children {
		if !sameShape(acc, na.Children[i], nb.Children[i]) {
			return false
		}
	}
	return true
}
