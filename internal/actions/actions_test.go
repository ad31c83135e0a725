package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/mapping"
	"github.com/jward/arbor/internal/matchers"
	"github.com/jward/arbor/internal/treepath"
)

type fixture struct {
	store    *hast.Store
	src, dst decompressed.Arena
	mappings *mapping.Store
}

// diffFixture parses both trees and maps them with the default matchers.
func diffFixture(t *testing.T, src, dst string, lazy bool) fixture {
	t.Helper()
	s := hast.NewStore()
	a, err := s.ParseSexp(src)
	require.NoError(t, err)
	b, err := s.ParseSexp(dst)
	require.NoError(t, err)

	var sa, da decompressed.Arena
	if lazy {
		sa, da = decompressed.NewLazy(s, a), decompressed.NewLazy(s, b)
	} else {
		sa, da = decompressed.NewPostOrder(s, a), decompressed.NewPostOrder(s, b)
	}
	p := matchers.NewPair(s, sa, da)
	matchers.Subtree{MinHeight: matchers.DefaultMinHeight}.Match(p)
	matchers.BottomUp{
		Threshold: matchers.DefaultThreshold,
		Scorer:    matchers.NewExactScorer(p, matchers.Chawathe),
	}.Match(p)
	return fixture{store: s, src: sa, dst: da, mappings: p.Mappings}
}

func (f fixture) generate(opts Options) []Action {
	return Generate(f.store, f.src, f.dst, f.mappings, opts)
}

// replays asserts the script turns a copy of src into dst.
func (f fixture) replays(t *testing.T, script []Action) {
	t.Helper()
	work := FromArena(f.store, f.src)
	require.NoError(t, Apply(work, script))
	want := FromArena(f.store, f.dst)
	assert.True(t, work.Equal(want), "got %s\nwant %s", work, want)
}

var replayCases = []struct {
	name     string
	src, dst string
}{
	{"identical", `(p (s (id "a") (n "1")) (s (id "b") (n "2")))`, `(p (s (id "a") (n "1")) (s (id "b") (n "2")))`},
	{"rename", `(class_declaration (class) (identifier "A") (class_body ({) (})))`, `(class_declaration (class) (identifier "B") (class_body ({) (})))`},
	{"swap", `(prog (blk (s (id "a")) (s (id "b"))) (blk (s (id "c")) (s (id "d"))))`, `(prog (blk (s (id "c")) (s (id "d"))) (blk (s (id "a")) (s (id "b"))))`},
	{"unrelated", `(a (b (c "1") (d "2")) (e "3"))`, `(v (w (x "1") (y "2")) (z "3"))`},
	{"wrap", `(blk (s (id "a")) (s (id "b")))`, `(blk (blk (s (id "a")) (s (id "b"))) (s (id "c")))`},
	{"unwrap", `(blk (blk (s (id "a")) (s (id "b"))) (s (id "c")))`, `(blk (s (id "a")) (s (id "b")))`},
	{"histogram", `(r (if (cond "a") (then "x")) (loop (cond "b")))`, `(r (loop (cond "z")) (if (cond "q") (then "y") (else "e")))`},
	{"inner", `(prog (method (name "m") (body (s (id "a") (n "1")) (s (id "b") (n "2")) (s (id "c") (n "3")))))`, `(prog (method (name "k") (body (s (id "a") (n "1")) (s (id "b") (n "2")) (s (id "d") (n "4")))))`},
	{"cross move", `(f (g (s (id "a") (n "1")) (s (id "b") (n "2"))) (h (s (id "c") (n "3"))))`, `(f (g (s (id "b") (n "2"))) (h (s (id "c") (n "3")) (s (id "a") (n "1"))))`},
	{"reorder and edit", `(r (x (k "1") (k "2") (k "3")) (y (k "4") (k "5")) (z (k "6")))`, `(r (z (k "6")) (x (k "3") (k "1") (k "2") (k "9")) (y (k "5")))`},
	{"grow", `(r)`, `(r (a (b (c "1"))) (d "2"))`},
	{"shrink", `(r (a (b (c "1"))) (d "2"))`, `(r)`},
}

// =============================================================================
// Generate
// =============================================================================

func TestGenerate_Replays(t *testing.T) {
	t.Parallel()
	for _, tc := range replayCases {
		for _, lazy := range []bool{false, true} {
			f := diffFixture(t, tc.src, tc.dst, lazy)
			script := f.generate(DefaultOptions)
			t.Run(tc.name, func(t *testing.T) {
				f.replays(t, script)
			})
		}
	}
}

func TestGenerate_IdenticalTreesHaveEmptyScript(t *testing.T) {
	t.Parallel()
	tree := `(p (s (id "a") (n "1")) (s (id "b") (n "2")))`
	f := diffFixture(t, tree, tree, false)
	assert.Empty(t, f.generate(DefaultOptions))
}

func TestGenerate_RenameIsOneUpdate(t *testing.T) {
	t.Parallel()
	f := diffFixture(t,
		`(class_declaration (class) (identifier "A") (class_body ({) (})))`,
		`(class_declaration (class) (identifier "B") (class_body ({) (})))`, false)
	script := f.generate(DefaultOptions)
	require.Len(t, script, 1)

	a := script[0]
	assert.Equal(t, Update, a.Kind)
	assert.Equal(t, "A", a.OldLabel)
	assert.Equal(t, "B", a.Label)
	assert.Equal(t, "identifier", a.Type)
	assert.Equal(t, treepath.Encode([]uint32{1}), a.Path)
	assert.Equal(t, `update 1 "A" -> "B"`, a.String())
}

func TestGenerate_SwappedSiblingsMoveOnce(t *testing.T) {
	t.Parallel()
	f := diffFixture(t,
		`(prog (blk (s (id "a")) (s (id "b"))) (blk (s (id "c")) (s (id "d"))))`,
		`(prog (blk (s (id "c")) (s (id "d"))) (blk (s (id "a")) (s (id "b"))))`, false)

	script := f.generate(DefaultOptions)
	counts := Counts(script)
	assert.Equal(t, 1, counts[Move])
	assert.Zero(t, counts[Insert])
	assert.Zero(t, counts[Delete])
	assert.Zero(t, counts[Update])
	f.replays(t, script)
}

func TestGenerate_ReorderMovesCanBeSuppressed(t *testing.T) {
	t.Parallel()
	f := diffFixture(t,
		`(prog (blk (s (id "a")) (s (id "b"))) (blk (s (id "c")) (s (id "d"))))`,
		`(prog (blk (s (id "c")) (s (id "d"))) (blk (s (id "a")) (s (id "b"))))`, false)
	assert.Empty(t, f.generate(Options{EmitReorderMoves: false}))
}

func TestGenerate_WithoutReorderMovesReplaysUpToSiblingOrder(t *testing.T) {
	t.Parallel()
	for _, tc := range replayCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := diffFixture(t, tc.src, tc.dst, false)
			work := FromArena(f.store, f.src)
			require.NoError(t, Apply(work, f.generate(Options{EmitReorderMoves: false})))
			want := FromArena(f.store, f.dst)
			assert.True(t, work.EqualUnordered(want), "got %s\nwant %s", work, want)
		})
	}

	f := diffFixture(t,
		`(prog (blk (s (id "a")) (s (id "b"))) (blk (s (id "c")) (s (id "d"))))`,
		`(prog (blk (s (id "c")) (s (id "d"))) (blk (s (id "a")) (s (id "b"))))`, false)
	work := FromArena(f.store, f.src)
	require.NoError(t, Apply(work, f.generate(Options{EmitReorderMoves: false})))
	assert.False(t, work.Equal(FromArena(f.store, f.dst)))
}

func TestTree_EqualUnordered(t *testing.T) {
	t.Parallel()
	s := hast.NewStore()
	a, err := s.ParseSexp(`(r (x "1") (y (z "2") (w "3")))`)
	require.NoError(t, err)
	b, err := s.ParseSexp(`(r (y (w "3") (z "2")) (x "1"))`)
	require.NoError(t, err)
	c, err := s.ParseSexp(`(r (y (w "3") (z "9")) (x "1"))`)
	require.NoError(t, err)

	assert.True(t, FromStore(s, a).EqualUnordered(FromStore(s, b)))
	assert.False(t, FromStore(s, a).Equal(FromStore(s, b)))
	assert.False(t, FromStore(s, a).EqualUnordered(FromStore(s, c)))
}

func TestGenerate_UnrelatedTrees(t *testing.T) {
	t.Parallel()
	f := diffFixture(t,
		`(a (b (c "1") (d "2")) (e "3"))`,
		`(v (w (x "1") (y "2")) (z "3"))`, false)
	script := f.generate(DefaultOptions)

	counts := Counts(script)
	assert.Equal(t, 1, counts[Update])
	assert.Equal(t, 4, counts[Insert])
	assert.Equal(t, 4, counts[Delete])
	assert.Zero(t, counts[Move])

	assert.Equal(t, Update, script[0].Kind)
	assert.True(t, script[0].Path.IsRoot())
	assert.Equal(t, "a", script[0].OldType)
	assert.Equal(t, "v", script[0].Type)

	// Deletes come last and every deleted node is a leaf when it goes.
	for _, a := range script[len(script)-4:] {
		assert.Equal(t, Delete, a.Kind)
	}
	f.replays(t, script)
}

func TestGenerate_InsertsCarryDestinationNodes(t *testing.T) {
	t.Parallel()
	f := diffFixture(t, `(r)`, `(r (a (b "1")))`, false)
	script := f.generate(DefaultOptions)
	require.Len(t, script, 2)
	for _, a := range script {
		require.Equal(t, Insert, a.Kind)
		assert.Equal(t, a.Node, f.dst.Original(decompressed.Resolve(f.dst, a.Origin)))
	}
	assert.Equal(t, "a", script[0].Type)
	assert.False(t, script[0].HasLabel)
	assert.Equal(t, "b", script[1].Type)
	assert.Equal(t, "1", script[1].Label)
	assert.Equal(t, treepath.Encode([]uint32{0, 0}), script[1].Path)
}

func TestGenerate_PanicsWithoutRootMapping(t *testing.T) {
	t.Parallel()
	s := hast.NewStore()
	a := s.Build(hast.T("a"))
	b := s.Build(hast.T("b"))
	assert.Panics(t, func() {
		Generate(s, decompressed.NewPostOrder(s, a), decompressed.NewPostOrder(s, b), mapping.New(1, 1), DefaultOptions)
	})
}

// =============================================================================
// Apply
// =============================================================================

func parseTree(t *testing.T, src string) *Tree {
	t.Helper()
	s := hast.NewStore()
	id, err := s.ParseSexp(src)
	require.NoError(t, err)
	return FromStore(s, id)
}

func TestApply_HandWrittenScript(t *testing.T) {
	t.Parallel()
	tree := parseTree(t, `(r (a) (b))`)
	script := []Action{
		{Kind: Insert, Parent: treepath.Root, Index: 2, Type: "c"},
		{Kind: Move, Path: treepath.Encode([]uint32{0}), Parent: treepath.Root, Index: 1},
		{Kind: Update, Path: treepath.Encode([]uint32{0}), Type: "b", Label: "x", HasLabel: true},
		{Kind: Delete, Path: treepath.Encode([]uint32{2})},
	}
	require.NoError(t, Apply(tree, script))
	assert.Equal(t, `(r (b "x") (a))`, tree.String())
}

func TestApply_MoveAcrossParents(t *testing.T) {
	t.Parallel()
	tree := parseTree(t, `(r (a (x "1")) (b))`)
	require.NoError(t, Apply(tree, []Action{
		{Kind: Move, Path: treepath.Encode([]uint32{0, 0}), Parent: treepath.Encode([]uint32{1}), Index: 0},
	}))
	assert.Equal(t, `(r (a) (b (x "1")))`, tree.String())
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		action Action
	}{
		{"delete root", Action{Kind: Delete, Path: treepath.Root}},
		{"delete inner node", Action{Kind: Delete, Path: treepath.Encode([]uint32{0})}},
		{"path off the tree", Action{Kind: Update, Path: treepath.Encode([]uint32{5})}},
		{"insert past end", Action{Kind: Insert, Parent: treepath.Root, Index: 3, Type: "z"}},
		{"move under itself", Action{Kind: Move, Path: treepath.Encode([]uint32{0}), Parent: treepath.Encode([]uint32{0, 0}), Index: 0}},
		{"move root", Action{Kind: Move, Path: treepath.Root, Parent: treepath.Encode([]uint32{1}), Index: 0}},
		{"move index", Action{Kind: Move, Path: treepath.Encode([]uint32{0, 0}), Parent: treepath.Encode([]uint32{1}), Index: 1}},
		{"unknown kind", Action{Kind: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := parseTree(t, `(r (a (x "1")) (b))`)
			err := Apply(tree, []Action{tt.action})
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "actions: step 0")
		})
	}
}

// =============================================================================
// Kind and Tree helpers
// =============================================================================

func TestKind_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, k := range []Kind{Insert, Delete, Update, Move} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("rename")
	assert.Error(t, err)
	assert.Equal(t, "Kind(7)", Kind(7).String())
}

func TestTree_PathAndResolve(t *testing.T) {
	t.Parallel()
	tree := parseTree(t, `(r (a (x "1") (y "2")) (b))`)
	y := tree.Root.Children[0].Children[1]
	p := y.Path()
	assert.Equal(t, treepath.Encode([]uint32{0, 1}), p)

	got, err := tree.Resolve(p)
	require.NoError(t, err)
	assert.Same(t, y, got)

	root, err := tree.Resolve(treepath.Root)
	require.NoError(t, err)
	assert.Same(t, tree.Root, root)
}

func TestTree_FromArenaMatchesFromStore(t *testing.T) {
	t.Parallel()
	s := hast.NewStore()
	id, err := s.ParseSexp(`(r (a (x "1") (y "2")) (b))`)
	require.NoError(t, err)
	fromArena := FromArena(s, decompressed.NewPostOrder(s, id))
	fromStore := FromStore(s, id)
	assert.True(t, fromArena.Equal(fromStore))
	assert.Equal(t, hast.Format(s, id), fromStore.String())
}
