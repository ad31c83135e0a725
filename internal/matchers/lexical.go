package matchers

import (
	"cmp"
	"slices"
	"strings"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
)

// DefaultLabelThreshold is the minimum text similarity for statement links.
const DefaultLabelThreshold = 0.5

// IsStatement is the default statement predicate: tree-sitter grammars end
// statement and declaration node types with these suffixes.
func IsStatement(typ string) bool {
	return strings.HasSuffix(typ, "statement") || strings.HasSuffix(typ, "declaration")
}

// Statements pairs unmapped innermost statements of the same type by the
// similarity of their text, best pairs first. It tolerates renames that
// break subtree isomorphism.
type Statements struct {
	Threshold   float64
	IsStatement func(typ string) bool
}

type textPair struct {
	src, dst ID
	sim      float64
}

func (m Statements) Match(p *Pair) {
	isStmt := m.IsStatement
	if isStmt == nil {
		isStmt = IsStatement
	}
	srcLeaves := statementLeaves(p.Store, p.Src, isStmt, p.Mappings.IsSrc)
	dstLeaves := statementLeaves(p.Store, p.Dst, isStmt, p.Mappings.IsDst)
	if len(srcLeaves) == 0 || len(dstLeaves) == 0 {
		return
	}

	dstByType := make(map[string][]ID)
	dstText := make(map[ID]string, len(dstLeaves))
	for _, d := range dstLeaves {
		n := p.dstNode(d)
		dstByType[n.Type] = append(dstByType[n.Type], d)
		dstText[d] = hast.Text(p.Store, p.Dst.Original(d))
	}

	var pairs []textPair
	for _, s := range srcLeaves {
		n := p.srcNode(s)
		st := hast.Text(p.Store, p.Src.Original(s))
		for _, d := range dstByType[n.Type] {
			if sim := StringSimilarity(st, dstText[d]); sim >= m.Threshold {
				pairs = append(pairs, textPair{src: s, dst: d, sim: sim})
			}
		}
	}
	slices.SortFunc(pairs, func(a, b textPair) int {
		if c := cmp.Compare(b.sim, a.sim); c != 0 {
			return c
		}
		if c := cmp.Compare(a.src, b.src); c != 0 {
			return c
		}
		return cmp.Compare(a.dst, b.dst)
	})
	for _, tp := range pairs {
		if p.Mappings.IsSrc(tp.src) || p.Mappings.IsDst(tp.dst) {
			continue
		}
		if sameShape(p.Store, p.Src.Original(tp.src), p.Dst.Original(tp.dst)) {
			for _, l := range p.zipUnmapped(tp.src, tp.dst) {
				Recover(p, l[0], l[1])
			}
			continue
		}
		p.Mappings.Link(tp.src, tp.dst)
		Recover(p, tp.src, tp.dst)
	}
}

// statementLeaves returns unmapped statements with no statement below them,
// in post-order.
func statementLeaves(acc hast.Accessor, a decompressed.Arena, isStmt func(string) bool, mapped func(ID) bool) []ID {
	below := make([]bool, a.Len())
	var out []ID
	for x := ID(0); int(x) < a.Len(); x++ {
		stmt := isStmt(acc.Node(a.Original(x)).Type)
		if stmt && !below[x] && !mapped(x) {
			out = append(out, x)
		}
		if p, ok := a.Parent(x); ok && (stmt || below[x]) {
			below[p] = true
		}
	}
	return out
}

// LexicalScorer averages a structural score with the text similarity of
// both subtrees.
type LexicalScorer struct {
	pair       *Pair
	structural Scorer
	srcGrams   map[ID]map[string]int
	dstGrams   map[ID]map[string]int
}

func NewLexicalScorer(p *Pair, structural Scorer) *LexicalScorer {
	return &LexicalScorer{
		pair:       p,
		structural: structural,
		srcGrams:   make(map[ID]map[string]int),
		dstGrams:   make(map[ID]map[string]int),
	}
}

func (l *LexicalScorer) Score(a, b ID) float64 {
	ga := grams(l.srcGrams, l.pair.Store, l.pair.Src, a)
	gb := grams(l.dstGrams, l.pair.Store, l.pair.Dst, b)
	text := gramDice(ga, gb)
	return (l.structural.Score(a, b) + text) / 2
}

func grams(cache map[ID]map[string]int, acc hast.Accessor, a decompressed.Arena, x ID) map[string]int {
	if g, ok := cache[x]; ok {
		return g
	}
	g := bigrams(hast.Text(acc, a.Original(x)))
	cache[x] = g
	return g
}
