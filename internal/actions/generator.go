package actions

import (
	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/mapping"
	"github.com/jward/arbor/internal/seq"
)

// Options tunes script generation.
type Options struct {
	// EmitReorderMoves emits a Move for every mapped child that is out of
	// order among its mapped siblings. When false, pure sibling reorders
	// are left alone and produce no action, and replaying the script
	// reproduces the destination only up to sibling order (see
	// Tree.EqualUnordered).
	EmitReorderMoves bool
}

// DefaultOptions emits reorder moves.
var DefaultOptions = Options{EmitReorderMoves: true}

type generator struct {
	acc  hast.Accessor
	src  decompressed.Arena
	dst  decompressed.Arena
	opts Options

	work       *Tree
	dstToWork  []*Node
	dstInOrder []bool
	script     []Action
}

// Generate walks dst breadth first over a working copy of src and emits
// the actions that make the copy equal to dst. The roots must be mapped to
// each other.
func Generate(acc hast.Accessor, src, dst decompressed.Arena, m *mapping.Store, opts Options) []Action {
	if !m.Has(src.Root(), dst.Root()) {
		panic("actions: roots are not mapped to each other")
	}
	g := &generator{
		acc:        acc,
		src:        src,
		dst:        dst,
		opts:       opts,
		work:       FromArena(acc, src),
		dstToWork:  make([]*Node, dst.Len()),
		dstInOrder: make([]bool, dst.Len()),
	}
	g.work.Root.postOrder(func(n *Node) {
		if d, ok := m.GetDst(decompressed.ID(n.src)); ok {
			n.dst = int(d)
			g.dstToWork[d] = n
		}
	})

	dstRoot := dst.Root()
	for x := range decompressed.BFS(dst) {
		w := g.dstToWork[x]
		xn := acc.Node(dst.Original(x))
		if x == dstRoot {
			g.update(w, xn)
		} else {
			y, _ := dst.Parent(x)
			z := g.dstToWork[y]
			if w == nil {
				w = g.insert(x, xn, z)
			} else {
				g.update(w, xn)
				if w.Parent != z {
					g.move(w, x, z)
				}
			}
		}
		w.inOrder = true
		g.dstInOrder[x] = true
		g.alignChildren(w, x)
	}

	var dead []*Node
	g.work.Root.postOrder(func(n *Node) {
		if n.dst == noID {
			dead = append(dead, n)
		}
	})
	for _, n := range dead {
		g.script = append(g.script, Action{
			Kind:   Delete,
			Path:   n.Path(),
			Origin: decompressed.Path(src, decompressed.ID(n.src)),
		})
		n.detach()
	}
	return g.script
}

func (g *generator) insert(x decompressed.ID, xn hast.Node, z *Node) *Node {
	k := g.findPos(x)
	n := newNode(g.acc, xn)
	n.dst = int(x)
	g.dstToWork[x] = n
	parentPath := z.Path()
	z.insertChild(n, k)
	g.script = append(g.script, Action{
		Kind:     Insert,
		Path:     parentPath.Extend(uint32(k)),
		Parent:   parentPath,
		Index:    k,
		Origin:   decompressed.Path(g.dst, x),
		Node:     g.dst.Original(x),
		Type:     n.Type,
		Label:    n.Label,
		HasLabel: n.HasLabel,
	})
	return n
}

func (g *generator) update(w *Node, xn hast.Node) {
	label := ""
	if xn.HasLabel() {
		label = g.acc.LabelText(xn.Label)
	}
	if w.Type == xn.Type && w.HasLabel == xn.HasLabel() && w.Label == label {
		return
	}
	g.script = append(g.script, Action{
		Kind:     Update,
		Path:     w.Path(),
		Origin:   decompressed.Path(g.src, decompressed.ID(w.src)),
		Type:     xn.Type,
		Label:    label,
		HasLabel: xn.HasLabel(),
		OldType:  w.Type,
		OldLabel: w.Label,
	})
	w.Type, w.Label, w.HasLabel = xn.Type, label, xn.HasLabel()
}

// move reparents w under z. w and z have different parents, so detaching
// w does not shift z's children.
func (g *generator) move(w *Node, x decompressed.ID, z *Node) {
	k := g.findPos(x)
	g.script = append(g.script, Action{
		Kind:   Move,
		Path:   w.Path(),
		Parent: z.Path(),
		Index:  k,
		Origin: decompressed.Path(g.src, decompressed.ID(w.src)),
	})
	w.detach()
	z.insertChild(w, k)
}

// alignChildren orders the mapped children of w like their partners under
// x. Children on the longest common subsequence stay put; the others move.
func (g *generator) alignChildren(w *Node, x decompressed.ID) {
	for _, c := range w.Children {
		c.inOrder = false
	}
	xKids := g.dst.Children(x)
	for _, c := range xKids {
		g.dstInOrder[c] = false
	}

	var s1 []*Node
	for _, c := range w.Children {
		if c.dst != noID {
			if p, ok := g.dst.Parent(decompressed.ID(c.dst)); ok && p == x {
				s1 = append(s1, c)
			}
		}
	}
	var s2 []decompressed.ID
	for _, c := range xKids {
		if n := g.dstToWork[c]; n != nil && n.Parent == w {
			s2 = append(s2, c)
		}
	}

	for _, ij := range seq.LCS(s1, s2, func(a *Node, b decompressed.ID) bool { return a.dst == int(b) }) {
		s1[ij[0]].inOrder = true
		g.dstInOrder[s2[ij[1]]] = true
	}

	for _, b := range s2 {
		a := g.dstToWork[b]
		if a.inOrder {
			continue
		}
		if g.opts.EmitReorderMoves {
			path := a.Path()
			parentPath := w.Path()
			a.detach()
			k := g.findPos(b)
			g.script = append(g.script, Action{
				Kind:   Move,
				Path:   path,
				Parent: parentPath,
				Index:  k,
				Origin: decompressed.Path(g.src, decompressed.ID(a.src)),
			})
			w.insertChild(a, k)
		}
		a.inOrder = true
		g.dstInOrder[b] = true
	}
}

// findPos is the index in the working copy after the rightmost in-order
// left sibling of x's partner.
func (g *generator) findPos(x decompressed.ID) int {
	y, _ := g.dst.Parent(x)
	siblings := g.dst.Children(y)
	for _, c := range siblings {
		if g.dstInOrder[c] {
			if c == x {
				return 0
			}
			break
		}
	}
	var v decompressed.ID
	found := false
	for _, c := range siblings {
		if c == x {
			break
		}
		if g.dstInOrder[c] {
			v, found = c, true
		}
	}
	if !found {
		return 0
	}
	return g.dstToWork[v].position() + 1
}
