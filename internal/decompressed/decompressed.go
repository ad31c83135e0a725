// Package decompressed materializes one tree of the shared node graph into a
// dense, post-order numbered arena for the duration of a single diff.
//
// Post-order numbering puts the descendants of x in the contiguous range
// [FirstDescendant(x), x), so descendant counts and containment tests are
// O(1).
package decompressed

import (
	"iter"
	"slices"

	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/treepath"
)

// ID is an arena-local node id.
type ID uint32

// NoParent is returned by Parent for the root.
const NoParent = ^ID(0)

// Arena is a post-order numbered structural copy of one tree.
type Arena interface {
	Len() int
	Root() ID
	// Original returns the shared node id behind x.
	Original(x ID) hast.NodeID
	Parent(x ID) (ID, bool)
	Children(x ID) []ID
	// FirstDescendant is the leftmost leaf below x, or x for a leaf.
	FirstDescendant(x ID) ID
}

// Descendants returns the post-order range of x's strict descendants.
func Descendants(a Arena, x ID) (lo, hi ID) {
	return a.FirstDescendant(x), x
}

// DescendantsCount is the number of strict descendants of x.
func DescendantsCount(a Arena, x ID) int {
	return int(x - a.FirstDescendant(x))
}

// IsDescendant reports whether d is a strict descendant of x.
func IsDescendant(a Arena, d, x ID) bool {
	return d < x && d >= a.FirstDescendant(x)
}

// PositionInParent is the index of x among its siblings.
func PositionInParent(a Arena, x ID) (int, bool) {
	p, ok := a.Parent(x)
	if !ok {
		return 0, false
	}
	return slices.Index(a.Children(p), x), true
}

// Path returns the child-index path from the root to x.
func Path(a Arena, x ID) treepath.Path {
	var rev []uint32
	for {
		p, ok := a.Parent(x)
		if !ok {
			break
		}
		rev = append(rev, uint32(slices.Index(a.Children(p), x)))
		x = p
	}
	slices.Reverse(rev)
	return treepath.Encode(rev)
}

// Resolve walks p from the root. A path leaving the tree is a broken
// invariant and panics.
func Resolve(a Arena, p treepath.Path) ID {
	x := a.Root()
	for i := range p.Decode() {
		kids := a.Children(x)
		if int(i) >= len(kids) {
			panic("decompressed: path index out of range")
		}
		x = kids[i]
	}
	return x
}

// Ancestors yields the strict ancestors of x, nearest first.
func Ancestors(a Arena, x ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for {
			p, ok := a.Parent(x)
			if !ok || !yield(p) {
				return
			}
			x = p
		}
	}
}

// BFS yields the nodes of a breadth first, children in order.
func BFS(a Arena) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		queue := []ID{a.Root()}
		for len(queue) > 0 {
			x := queue[0]
			queue = queue[1:]
			if !yield(x) {
				return
			}
			queue = append(queue, a.Children(x)...)
		}
	}
}

// PreOrder yields the nodes of the subtree at x in pre-order.
func PreOrder(a Arena, x ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		stack := []ID{x}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			kids := a.Children(n)
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, kids[i])
			}
		}
	}
}

// base carries the arrays shared by the eager and lazy policies.
type base struct {
	acc     hast.Accessor
	orig    []hast.NodeID
	llds    []ID
	parents []ID
}

func (b *base) Len() int { return len(b.orig) }

func (b *base) Root() ID { return ID(len(b.orig) - 1) }

func (b *base) children(x ID) []ID {
	lld := b.llds[x]
	if lld == x {
		return nil
	}
	var rev []ID
	c := int(x) - 1
	for c >= int(lld) {
		rev = append(rev, ID(c))
		c = int(b.llds[c]) - 1
	}
	slices.Reverse(rev)
	return rev
}

func (b *base) parent(x ID) (ID, bool) {
	p := b.parents[x]
	return p, p != NoParent
}

// PostOrder is the eager policy: the whole tree is numbered up front.
type PostOrder struct {
	base
}

var _ Arena = (*PostOrder)(nil)

// NewPostOrder decompresses the tree rooted at root in one pass.
func NewPostOrder(acc hast.Accessor, root hast.NodeID) *PostOrder {
	size := int(acc.Node(root).Size)
	t := &PostOrder{base: base{
		acc:     acc,
		orig:    make([]hast.NodeID, 0, size),
		llds:    make([]ID, 0, size),
		parents: make([]ID, size),
	}}

	type frame struct {
		id   hast.NodeID
		kids []hast.NodeID
		next int
		lld  ID
	}
	stack := []frame{{id: root, kids: acc.Node(root).Children, lld: NoParent}}
	var childIDs [][]ID
	childIDs = append(childIDs, nil)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.kids) {
			c := top.kids[top.next]
			top.next++
			stack = append(stack, frame{id: c, kids: acc.Node(c).Children, lld: NoParent})
			childIDs = append(childIDs, nil)
			continue
		}
		x := ID(len(t.orig))
		lld := top.lld
		if lld == NoParent {
			lld = x
		}
		t.orig = append(t.orig, top.id)
		t.llds = append(t.llds, lld)
		for _, c := range childIDs[len(childIDs)-1] {
			t.parents[c] = x
		}
		stack = stack[:len(stack)-1]
		childIDs = childIDs[:len(childIDs)-1]
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			if parent.lld == NoParent {
				parent.lld = lld
			}
			childIDs[len(childIDs)-1] = append(childIDs[len(childIDs)-1], x)
		}
	}
	t.parents[t.Root()] = NoParent
	return t
}

func (t *PostOrder) Original(x ID) hast.NodeID { return t.orig[x] }

func (t *PostOrder) Parent(x ID) (ID, bool) { return t.parent(x) }

func (t *PostOrder) Children(x ID) []ID { return t.children(x) }

func (t *PostOrder) FirstDescendant(x ID) ID { return t.llds[x] }
