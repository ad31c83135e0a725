package decompressed

import "github.com/jward/arbor/internal/hast"

// Hidden is a compacted view of a backing arena in which every node
// accepted by hide is kept as a leaf and its descendants are dropped. The
// remaining nodes are renumbered in post-order, so the contiguous
// descendant ranges hold again inside the view.
//
// Hidden views are built after subtree matching to let bottom-up scoring
// skip the interior of matched subtrees.
type Hidden struct {
	back     Arena
	toOrig   []ID
	fromOrig []ID // id+1, 0 when hidden
	llds     []ID
	parents  []ID
	kids     [][]ID
}

var _ Arena = (*Hidden)(nil)

// NewHidden builds the view. hide is consulted top-down and the subtree of
// a hidden node is never visited, so a Lazy backing arena is not expanded
// below it.
func NewHidden(back Arena, hide func(ID) bool) *Hidden {
	h := &Hidden{
		back:     back,
		fromOrig: make([]ID, back.Len()),
	}

	type frame struct {
		x    ID
		kids []ID
		next int
		mine []ID
		lld  ID
	}
	visitKids := func(x ID) []ID {
		if hide(x) {
			return nil
		}
		return back.Children(x)
	}
	root := back.Root()
	stack := []frame{{x: root, kids: visitKids(root), lld: NoParent}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.kids) {
			c := top.kids[top.next]
			top.next++
			stack = append(stack, frame{x: c, kids: visitKids(c), lld: NoParent})
			continue
		}
		id := ID(len(h.toOrig))
		lld := top.lld
		if lld == NoParent {
			lld = id
		}
		h.toOrig = append(h.toOrig, top.x)
		h.llds = append(h.llds, lld)
		h.parents = append(h.parents, NoParent)
		h.kids = append(h.kids, top.mine)
		h.fromOrig[top.x] = id + 1
		for _, c := range top.mine {
			h.parents[c] = id
		}
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			p := &stack[len(stack)-1]
			if p.lld == NoParent {
				p.lld = lld
			}
			p.mine = append(p.mine, id)
		}
	}
	return h
}

// ToOriginal maps a view id back to the backing arena.
func (h *Hidden) ToOriginal(x ID) ID { return h.toOrig[x] }

// FromOriginal maps a backing id into the view, false when it is hidden.
func (h *Hidden) FromOriginal(x ID) (ID, bool) {
	v := h.fromOrig[x]
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

func (h *Hidden) Len() int { return len(h.toOrig) }

func (h *Hidden) Root() ID { return ID(len(h.toOrig) - 1) }

func (h *Hidden) Original(x ID) hast.NodeID { return h.back.Original(h.toOrig[x]) }

func (h *Hidden) Parent(x ID) (ID, bool) {
	p := h.parents[x]
	return p, p != NoParent
}

func (h *Hidden) Children(x ID) []ID { return h.kids[x] }

func (h *Hidden) FirstDescendant(x ID) ID { return h.llds[x] }
