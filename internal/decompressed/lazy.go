package decompressed

import "github.com/jward/arbor/internal/hast"

// Lazy numbers the tree exactly like PostOrder but only materializes a
// node's children when they are first asked for. Subtree sizes are known
// from the shared store, so ids and first descendants are fixed before
// expansion.
//
// Expansion mutates the arena. A Lazy must not be shared between goroutines.
type Lazy struct {
	base
	expanded []bool
}

var _ Arena = (*Lazy)(nil)

// NewLazy creates a lazy arena holding only the root placeholder.
func NewLazy(acc hast.Accessor, root hast.NodeID) *Lazy {
	size := int(acc.Node(root).Size)
	t := &Lazy{
		base: base{
			acc:     acc,
			orig:    make([]hast.NodeID, size),
			llds:    make([]ID, size),
			parents: make([]ID, size),
		},
		expanded: make([]bool, size),
	}
	r := ID(size - 1)
	t.orig[r] = root
	t.llds[r] = 0
	t.parents[r] = NoParent
	return t
}

// Expand materializes the children of x. Children get ids by walking back
// from x-1, skipping each child's subtree.
func (t *Lazy) Expand(x ID) {
	t.ensure(x)
	if t.expanded[x] {
		return
	}
	t.expanded[x] = true
	kids := t.acc.Node(t.orig[x]).Children
	next := int(x) - 1
	for i := len(kids) - 1; i >= 0; i-- {
		c := ID(next)
		size := t.acc.Node(kids[i]).Size
		t.orig[c] = kids[i]
		t.parents[c] = x
		t.llds[c] = c + 1 - ID(size)
		next -= int(size)
	}
}

// IsExpanded reports whether x's children are materialized.
func (t *Lazy) IsExpanded(x ID) bool { return t.expanded[x] }

// Complete expands every node.
func (t *Lazy) Complete() {
	for x := int(t.Root()); x >= 0; x-- {
		t.Expand(ID(x))
	}
}

// ensure materializes x by expanding the chain of ancestors above it.
func (t *Lazy) ensure(x ID) {
	if t.orig[x] != 0 {
		return
	}
	cur := t.Root()
	for cur != x {
		t.Expand(cur)
		next := cur
		for _, c := range t.children(cur) {
			if x <= c && x >= t.llds[c] {
				next = c
				break
			}
		}
		if next == cur {
			panic("decompressed: id outside the tree")
		}
		cur = next
	}
}

func (t *Lazy) Original(x ID) hast.NodeID {
	t.ensure(x)
	return t.orig[x]
}

func (t *Lazy) Parent(x ID) (ID, bool) {
	t.ensure(x)
	return t.parent(x)
}

func (t *Lazy) Children(x ID) []ID {
	t.Expand(x)
	return t.children(x)
}

// FirstDescendant never expands x. An id that is not materialized yet has
// its ancestor chain expanded so its size is known.
func (t *Lazy) FirstDescendant(x ID) ID {
	t.ensure(x)
	return t.llds[x]
}
