package matchers

import (
	"math"
	"slices"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
)

// Optimal links the subtrees under (s, d) along a minimum cost Zhang-Shasha
// edit mapping. Only pairs that are both unmapped are linked. Time and
// memory grow with the product of the two subtree sizes.
func Optimal(p *Pair, s, d ID) {
	z := newZhangShasha(p, s, d)
	for _, xy := range z.mapping() {
		if p.srcNode(xy[0]).Type == p.dstNode(xy[1]).Type {
			p.Mappings.LinkIfBothUnmapped(xy[0], xy[1])
		}
	}
}

// zsSide is one subtree renumbered from 0 in post-order.
type zsSide struct {
	first    ID
	lld      []int
	types    []string
	labels   []string
	labelled []bool
	keyroots []int
}

func newZSSide(acc hast.Accessor, a decompressed.Arena, root ID) zsSide {
	first := a.FirstDescendant(root)
	n := int(root-first) + 1
	sd := zsSide{
		first:    first,
		lld:      make([]int, n),
		types:    make([]string, n),
		labels:   make([]string, n),
		labelled: make([]bool, n),
	}
	for i := range n {
		x := first + ID(i)
		sd.lld[i] = int(a.FirstDescendant(x) - first)
		node := acc.Node(a.Original(x))
		sd.types[i] = node.Type
		if node.HasLabel() {
			sd.labels[i], sd.labelled[i] = acc.LabelText(node.Label), true
		}
	}
	// A keyroot is the highest node of each leftmost path.
	seen := make([]bool, n)
	for i := n - 1; i >= 0; i-- {
		if !seen[sd.lld[i]] {
			seen[sd.lld[i]] = true
			sd.keyroots = append(sd.keyroots, i)
		}
	}
	slices.Reverse(sd.keyroots)
	return sd
}

type zhangShasha struct {
	src, dst zsSide
	// tree[i][j] is the edit distance between the subtrees at i and j.
	tree [][]float64
	// fd is forest distance scratch for the pair being computed.
	fd [][]float64
}

func newZhangShasha(p *Pair, s, d ID) *zhangShasha {
	z := &zhangShasha{
		src: newZSSide(p.Store, p.Src, s),
		dst: newZSSide(p.Store, p.Dst, d),
	}
	n, m := len(z.src.lld), len(z.dst.lld)
	z.tree = floatTable(n, m)
	z.fd = floatTable(n+1, m+1)
	return z
}

func floatTable(n, m int) [][]float64 {
	t := make([][]float64, n)
	for i := range t {
		t[i] = make([]float64, m)
	}
	return t
}

// update is the cost of relabelling src i as dst j. Types never change.
func (z *zhangShasha) update(i, j int) float64 {
	switch {
	case z.src.types[i] != z.dst.types[j]:
		return math.Inf(1)
	case !z.src.labelled[i] && !z.dst.labelled[j]:
		return 0
	case z.src.labelled[i] != z.dst.labelled[j]:
		return 1
	case z.src.labels[i] == z.dst.labels[j]:
		return 0
	}
	return 1 - StringSimilarity(z.src.labels[i], z.dst.labels[j])
}

// forest fills fd for the forests under i and j and records the distance
// of every subtree pair sharing their leftmost leaves.
func (z *zhangShasha) forest(i, j int) {
	li, lj := z.src.lld[i], z.dst.lld[j]
	fd := z.fd
	fd[0][0] = 0
	for x := 1; x <= i-li+1; x++ {
		fd[x][0] = fd[x-1][0] + 1
	}
	for y := 1; y <= j-lj+1; y++ {
		fd[0][y] = fd[0][y-1] + 1
	}
	for x := 1; x <= i-li+1; x++ {
		di := li + x - 1
		for y := 1; y <= j-lj+1; y++ {
			dj := lj + y - 1
			del, ins := fd[x-1][y]+1, fd[x][y-1]+1
			if z.src.lld[di] == li && z.dst.lld[dj] == lj {
				fd[x][y] = min(del, ins, fd[x-1][y-1]+z.update(di, dj))
				z.tree[di][dj] = fd[x][y]
			} else {
				fd[x][y] = min(del, ins, fd[z.src.lld[di]-li][z.dst.lld[dj]-lj]+z.tree[di][dj])
			}
		}
	}
}

// mapping computes all subtree distances and walks the forest tables back
// from the roots, recomputing each nested pair it descends into.
func (z *zhangShasha) mapping() [][2]ID {
	for _, i := range z.src.keyroots {
		for _, j := range z.dst.keyroots {
			z.forest(i, j)
		}
	}

	var out [][2]ID
	stack := [][2]int{{len(z.src.lld) - 1, len(z.dst.lld) - 1}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, j := top[0], top[1]
		z.forest(i, j)
		li, lj := z.src.lld[i], z.dst.lld[j]
		x, y := i-li+1, j-lj+1
		for x > 0 || y > 0 {
			switch {
			case x > 0 && z.fd[x-1][y]+1 == z.fd[x][y]:
				x--
			case y > 0 && z.fd[x][y-1]+1 == z.fd[x][y]:
				y--
			default:
				di, dj := li+x-1, lj+y-1
				if z.src.lld[di] == li && z.dst.lld[dj] == lj {
					out = append(out, [2]ID{z.src.first + ID(di), z.dst.first + ID(dj)})
					x--
					y--
				} else {
					stack = append(stack, [2]int{di, dj})
					x = z.src.lld[di] - li
					y = z.dst.lld[dj] - lj
				}
			}
		}
	}
	return out
}
