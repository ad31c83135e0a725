package arbor

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// languageCase is a function rename from "total" to "sum" in one language,
// plus an unchanged neighbour.
type languageCase struct {
	lang string
	ext  string
	src  string
}

var languageCases = []languageCase{
	{"go", ".go", "package m\n\nfunc total(a, b int) int {\n\treturn a + b\n}\n\nfunc other() int {\n\treturn 2\n}\n"},
	{"python", ".py", "def total(a, b):\n    return a + b\n\ndef other():\n    return 2\n"},
	{"java", ".java", "class M {\n    int total(int a, int b) {\n        return a + b;\n    }\n\n    int other() {\n        return 2;\n    }\n}\n"},
	{"javascript", ".js", "function total(a, b) {\n  return a + b;\n}\n\nfunction other() {\n  return 2;\n}\n"},
	{"typescript", ".ts", "function total(a: number, b: number): number {\n  return a + b;\n}\n\nfunction other(): number {\n  return 2;\n}\n"},
	{"rust", ".rs", "fn total(a: i32, b: i32) -> i32 {\n    a + b\n}\n\nfn other() -> i32 {\n    2\n}\n"},
	{"c", ".c", "int total(int a, int b) {\n    return a + b;\n}\n\nint other(void) {\n    return 2;\n}\n"},
	{"cpp", ".cpp", "int total(int a, int b) {\n    return a + b;\n}\n\nint other() {\n    return 2;\n}\n"},
	{"ruby", ".rb", "def total(a, b)\n  a + b\nend\n\ndef other\n  2\nend\n"},
	{"php", ".php", "<?php\nfunction total($a, $b) {\n    return $a + $b;\n}\n\nfunction other() {\n    return 2;\n}\n"},
}

func (c languageCase) renamed() string {
	return strings.Replace(c.src, "total", "sum", 1)
}

// TestIntegration_RenameEveryLanguage runs the full pipeline (parse, diff,
// record, replay) on a function rename in every supported language.
func TestIntegration_RenameEveryLanguage(t *testing.T) {
	require.Len(t, languageCases, len(Languages()))

	for _, c := range languageCases {
		t.Run(c.lang, func(t *testing.T) {
			e := newTestEngine(t)
			dir := t.TempDir()
			oldPath := writeFile(t, dir, "old/m"+c.ext, c.src)
			newPath := writeFile(t, dir, "new/m"+c.ext, c.renamed())

			rep, err := e.DiffFiles(context.Background(), oldPath, newPath)
			require.NoError(t, err)
			assert.Equal(t, c.lang, rep.Language)
			assert.True(t, hasRename(rep.Script(), "total", "sum"), "script: %v", rep.Script())
			assert.Zero(t, rep.Counts()[Delete], "script: %v", rep.Script())
			assert.Zero(t, rep.Counts()[Insert], "script: %v", rep.Script())
			assertReplays(t, e, rep)
		})
	}
}

// TestIntegration_EveryStrategyEveryLanguage checks that every strategy
// yields a replayable script for every language.
func TestIntegration_EveryStrategyEveryLanguage(t *testing.T) {
	for _, s := range Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			e := newTestEngine(t, WithStrategy(s))
			for _, c := range languageCases {
				rep, err := e.DiffSources(context.Background(), c.lang, []byte(c.src), []byte(c.renamed()))
				require.NoError(t, err, c.lang)
				assertReplays(t, e, rep)
			}
		})
	}
}

// TestIntegration_VersionHistory diffs an evolving file three times and
// checks its recorded history and the stored trees.
func TestIntegration_VersionHistory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	generations := []string{
		"def f():\n    return 1\n",
		"def f():\n    return 2\n",
		"def f():\n    return 2\n\ndef g():\n    return 3\n",
	}
	var reports []*Report
	for i := 1; i < len(generations); i++ {
		prev := writeFile(t, dir, filepath.Join("gen", "prev.py"), generations[i-1])
		next := writeFile(t, dir, filepath.Join("gen", "next.py"), generations[i])
		rep, err := e.DiffFiles(ctx, prev, next)
		require.NoError(t, err)
		assertReplays(t, e, rep)
		reports = append(reports, rep)
	}

	prevVersions, err := e.Versions(filepath.Join(dir, "gen", "prev.py"))
	require.NoError(t, err)
	assert.Len(t, prevVersions, 2)

	// the second diff's source is the first diff's destination
	a, err := e.VersionTree(reports[0].DstVersion)
	require.NoError(t, err)
	b, err := e.VersionTree(reports[1].SrcVersion)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, prevVersions[1].RootNodeID, mustVersion(t, e, reports[0].DstVersion).RootNodeID)

	runs, err := e.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, reports[1].RunID, runs[0].ID, "newest first")
	assert.Positive(t, runs[0].Inserts)
	assert.Zero(t, runs[0].Deletes)
}

func mustVersion(t *testing.T, e *Engine, id int64) *Version {
	t.Helper()
	v, err := e.Store().VersionByID(id)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}
