package actions

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/treepath"
)

const noID = -1

// Tree is a mutable syntax tree that edit scripts are applied to.
type Tree struct {
	Root *Node
}

// Node is one node of a Tree.
type Node struct {
	Type     string
	Label    string
	HasLabel bool
	Parent   *Node
	Children []*Node

	// generator bookkeeping
	src     int
	dst     int
	inOrder bool
}

// FromArena copies a decompressed tree.
func FromArena(acc hast.Accessor, a decompressed.Arena) *Tree {
	var build func(x decompressed.ID, parent *Node) *Node
	build = func(x decompressed.ID, parent *Node) *Node {
		n := newNode(acc, acc.Node(a.Original(x)))
		n.src = int(x)
		n.Parent = parent
		for _, c := range a.Children(x) {
			n.Children = append(n.Children, build(c, n))
		}
		return n
	}
	return &Tree{Root: build(a.Root(), nil)}
}

// FromStore copies the shared subtree at id.
func FromStore(acc hast.Accessor, id hast.NodeID) *Tree {
	var build func(id hast.NodeID, parent *Node) *Node
	build = func(id hast.NodeID, parent *Node) *Node {
		sn := acc.Node(id)
		n := newNode(acc, sn)
		n.Parent = parent
		for _, c := range sn.Children {
			n.Children = append(n.Children, build(c, n))
		}
		return n
	}
	return &Tree{Root: build(id, nil)}
}

func newNode(acc hast.Accessor, sn hast.Node) *Node {
	n := &Node{Type: sn.Type, src: noID, dst: noID}
	if sn.HasLabel() {
		n.Label = acc.LabelText(sn.Label)
		n.HasLabel = true
	}
	return n
}

// Resolve walks p from the root.
func (t *Tree) Resolve(p treepath.Path) (*Node, error) {
	n := t.Root
	for i := range p.Decode() {
		if int(i) >= len(n.Children) {
			return nil, fmt.Errorf("actions: path %s leaves the tree at index %d", p, i)
		}
		n = n.Children[i]
	}
	return n, nil
}

// Path is the child-index path from the root to n.
func (n *Node) Path() treepath.Path {
	var rev []uint32
	for c := n; c.Parent != nil; c = c.Parent {
		rev = append(rev, uint32(c.position()))
	}
	slices.Reverse(rev)
	return treepath.Encode(rev)
}

func (n *Node) position() int {
	if n.Parent == nil {
		return 0
	}
	return slices.Index(n.Parent.Children, n)
}

func (n *Node) insertChild(c *Node, k int) {
	c.Parent = n
	n.Children = slices.Insert(n.Children, k, c)
}

func (n *Node) detach() {
	if n.Parent == nil {
		return
	}
	n.Parent.Children = slices.DeleteFunc(n.Parent.Children, func(c *Node) bool { return c == n })
	n.Parent = nil
}

func (n *Node) isAncestorOf(o *Node) bool {
	for c := o.Parent; c != nil; c = c.Parent {
		if c == n {
			return true
		}
	}
	return false
}

func (n *Node) postOrder(visit func(*Node)) {
	for _, c := range n.Children {
		c.postOrder(visit)
	}
	visit(n)
}

// Equal compares type, label and shape.
func (t *Tree) Equal(o *Tree) bool {
	return equalNodes(t.Root, o.Root)
}

func equalNodes(a, b *Node) bool {
	if a.Type != b.Type || a.HasLabel != b.HasLabel || a.Label != b.Label || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !equalNodes(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// EqualUnordered is Equal with the children of every node compared as a
// multiset. A script generated without reorder moves replays to a tree
// that is EqualUnordered to the destination.
func (t *Tree) EqualUnordered(o *Tree) bool {
	return canonical(t.Root) == canonical(o.Root)
}

// canonical renders n with each child list sorted.
func canonical(n *Node) string {
	kids := make([]string, len(n.Children))
	for i, c := range n.Children {
		kids[i] = canonical(c)
	}
	slices.Sort(kids)
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(n.Type)
	if n.HasLabel {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(n.Label))
	}
	for _, k := range kids {
		sb.WriteByte(' ')
		sb.WriteString(k)
	}
	sb.WriteByte(')')
	return sb.String()
}

// String renders the tree in the same s-expression form as hast.Format.
func (t *Tree) String() string {
	var sb strings.Builder
	var write func(*Node)
	write = func(n *Node) {
		sb.WriteByte('(')
		sb.WriteString(n.Type)
		if n.HasLabel {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Quote(n.Label))
		}
		for _, c := range n.Children {
			sb.WriteByte(' ')
			write(c)
		}
		sb.WriteByte(')')
	}
	write(t.Root)
	return sb.String()
}
