package arbor

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPairs_OrderAndRecording(t *testing.T) {
	e := newTestEngine(t, WithParallelism(3))
	dir := t.TempDir()

	var pairs []Pair
	for i := range 6 {
		src := writeFile(t, dir, fmt.Sprintf("v1/f%d.go", i), oldGo)
		dst := writeFile(t, dir, fmt.Sprintf("v2/f%d.go", i), fmt.Sprintf("package main\n\nfunc a%d() int {\n\treturn %d\n}\n\nfunc keep() {}\n", i, i))
		pairs = append(pairs, Pair{Src: src, Dst: dst})
	}

	reports, err := e.DiffPairs(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, reports, len(pairs))
	for i, rep := range reports {
		assert.Equal(t, pairs[i].Src, rep.SrcPath)
		assert.Equal(t, pairs[i].Dst, rep.DstPath)
		assert.NotEmpty(t, rep.RunID)
		assert.True(t, hasRename(rep.Script(), "a", fmt.Sprintf("a%d", i)), "pair %d: %v", i, rep.Script())
		assertReplays(t, e, rep)
	}

	runs, err := e.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, len(pairs))
}

func TestDiffPairs_MatchesSerialDiffs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.py", "def f(a, b):\n    return a + b\n")
	b := writeFile(t, dir, "b.py", "def g(a, b):\n    total = a + b\n    return total\n")

	serial := newTestEngine(t)
	want, err := serial.DiffFiles(context.Background(), a, b)
	require.NoError(t, err)

	parallel := newTestEngine(t, WithParallelism(4))
	got, err := parallel.DiffPairs(context.Background(), []Pair{{a, b}, {a, b}, {a, b}})
	require.NoError(t, err)
	for _, rep := range got {
		require.Len(t, rep.Script(), len(want.Script()))
		for i := range want.Script() {
			assert.Equal(t, want.Script()[i].String(), rep.Script()[i].String())
		}
	}
}

func TestDiffPairs_FailureRecordsNothing(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", oldGo)
	b := writeFile(t, dir, "b.go", newGo)

	_, err := e.DiffPairs(context.Background(), []Pair{
		{Src: a, Dst: b},
		{Src: a, Dst: filepath.Join(dir, "missing.go")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pair 1")

	runs, err := e.Runs(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestDiffPairs_Empty(t *testing.T) {
	e := newTestEngine(t)
	reports, err := e.DiffPairs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, reports)
}

func TestDiffPairs_CanceledContext(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.go", oldGo)
	b := writeFile(t, dir, "b.go", newGo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.DiffPairs(ctx, []Pair{{Src: a, Dst: b}})
	require.Error(t, err)
}
