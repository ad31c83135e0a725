package scripts_test

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor"
	"github.com/jward/arbor/scripts"
)

func newEngine(t *testing.T) *arbor.Engine {
	t.Helper()
	e, err := arbor.New(filepath.Join(t.TempDir(), "test.db"), arbor.WithScriptsFS(scripts.FS))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func diff(t *testing.T, e *arbor.Engine, lang, src, dst string) *arbor.Report {
	t.Helper()
	rep, err := e.DiffSources(context.Background(), lang, []byte(src), []byte(dst))
	require.NoError(t, err)
	return rep
}

func TestEmbeddedScripts(t *testing.T) {
	names, err := fs.Glob(scripts.FS, "*.risor")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"churn.risor", "moves.risor", "renames.risor"}, names)
}

func TestRenames(t *testing.T) {
	e := newEngine(t)
	rep := diff(t, e, "go",
		"package main\n\nfunc a() int {\n\treturn 1\n}\n",
		"package main\n\nfunc b() int {\n\treturn 1\n}\n")

	got, err := e.ScriptValue(context.Background(), "renames.risor", rep)
	require.NoError(t, err)
	renames, ok := got.([]any)
	require.True(t, ok, "got %T", got)
	require.Len(t, renames, 1)

	r := renames[0].(map[string]any)
	assert.Equal(t, "a", r["from"])
	assert.Equal(t, "b", r["to"])
	assert.Equal(t, "identifier", r["type"])
}

func TestRenames_NoChanges(t *testing.T) {
	e := newEngine(t)
	src := "x = 1\n"
	got, err := e.ScriptValue(context.Background(), "renames.risor", diff(t, e, "python", src, src))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChurn(t *testing.T) {
	e := newEngine(t)
	rep := diff(t, e, "python",
		"def f(a):\n    return a\n",
		"def f(a):\n    print(a)\n    return a\n")

	got, err := e.ScriptValue(context.Background(), "churn.risor", rep)
	require.NoError(t, err)
	byType, ok := got.(map[string]any)
	require.True(t, ok, "got %T", got)

	var total int64
	for _, n := range byType {
		total += n.(int64)
	}
	assert.EqualValues(t, len(rep.Script()), total)
	assert.Contains(t, byType, "expression_statement")
}

func TestMoves(t *testing.T) {
	e := newEngine(t)
	rep := diff(t, e, "python",
		"def f():\n    return 1\n\ndef g():\n    return 2\n",
		"def g():\n    return 2\n\ndef f():\n    return 1\n")

	got, err := e.ScriptValue(context.Background(), "moves.risor", rep)
	require.NoError(t, err)
	report, ok := got.(map[string]any)
	require.True(t, ok, "got %T", got)
	assert.EqualValues(t, rep.Counts()[arbor.Move], report["moves"])
	assert.EqualValues(t, len(rep.Script()), report["total"])
	assert.Positive(t, report["moves"])
}
