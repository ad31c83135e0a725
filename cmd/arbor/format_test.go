package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/arbor"
)

const (
	oldGo = "package main\n\nfunc a() int {\n\treturn 1\n}\n"
	newGo = "package main\n\nfunc b() int {\n\treturn 1\n}\n"
)

func newTestEngine(t *testing.T) *arbor.Engine {
	t.Helper()
	e, err := arbor.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// =============================================================================
// Conversion
// =============================================================================

func TestReportToCLI(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	dir := t.TempDir()
	rep, err := e.DiffFiles(context.Background(),
		writeFile(t, dir, "a.go", oldGo), writeFile(t, dir, "b.go", newGo))
	require.NoError(t, err)

	d := reportToCLI(rep)
	assert.Equal(t, rep.RunID, d.RunID)
	assert.Equal(t, "go", d.Language)
	assert.Equal(t, "gumtree", d.Strategy)
	require.NotNil(t, d.SrcVersion)
	assert.Equal(t, rep.SrcVersion, *d.SrcVersion)
	assert.Equal(t, 1, d.Counts.Updates)
	assert.Equal(t, len(rep.Script()), d.Counts.Total())
	require.Len(t, d.Actions, len(rep.Script()))

	var update *CLIAction
	for i := range d.Actions {
		if d.Actions[i].Kind == "update" {
			update = &d.Actions[i]
		}
	}
	require.NotNil(t, update)
	require.NotNil(t, update.OldLabel)
	require.NotNil(t, update.Label)
	assert.Equal(t, "a", *update.OldLabel)
	assert.Equal(t, "b", *update.Label)
	assert.Nil(t, update.Parent, "updates carry no placement")
}

func TestReportToCLI_InMemorySourcesHaveNoVersions(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	rep, err := e.DiffSources(context.Background(), "go", []byte(oldGo), []byte(newGo))
	require.NoError(t, err)

	d := reportToCLI(rep)
	assert.Nil(t, d.SrcVersion)
	assert.Nil(t, d.DstVersion)
}

func TestActionToCLI_Insert(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	rep, err := e.DiffSources(context.Background(), "python", []byte("x = 1\n"), []byte("x = 1\ny = 2\n"))
	require.NoError(t, err)

	var found bool
	for _, a := range rep.Script() {
		if a.Kind != arbor.Insert {
			continue
		}
		c := actionToCLI(a)
		require.NotNil(t, c.Parent)
		require.NotNil(t, c.Index)
		assert.Equal(t, a.Index, *c.Index)
		assert.Nil(t, c.OldLabel)
		found = true
	}
	assert.True(t, found, "script: %v", rep.Script())
}

func TestPairFiles(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "a.go", oldGo)
	writeFile(t, dst, "a.go", newGo)
	writeFile(t, src, "pkg/b.py", "x = 1\n")
	writeFile(t, dst, "pkg/b.py", "x = 2\n")
	writeFile(t, src, "only_src.go", oldGo)
	writeFile(t, src, "README.md", "# a\n")
	writeFile(t, dst, "README.md", "# b\n")

	pairs, err := pairFiles(e, src, dst)
	require.NoError(t, err)
	assert.Equal(t, []arbor.Pair{
		{Src: filepath.Join(src, "a.go"), Dst: filepath.Join(dst, "a.go")},
		{Src: filepath.Join(src, "pkg", "b.py"), Dst: filepath.Join(dst, "pkg", "b.py")},
	}, pairs)
}

// =============================================================================
// Text output
// =============================================================================

func TestWriteResultText_Diff(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := writeResultText(&buf, CLIResult{Results: CLIDiff{
		RunID:    "r1",
		Src:      "a.go",
		Dst:      "b.go",
		Language: "go",
		Strategy: "gumtree",
		Counts:   CLICounts{Updates: 1},
		Actions:  []CLIAction{{Kind: "update", Text: `update 1.0 "a" -> "b"`}},
	}})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "a.go -> b.go (go)")
	assert.Contains(t, out, "0 inserts, 0 deletes, 1 updates, 0 moves")
	assert.Contains(t, out, `  update 1.0 "a" -> "b"`)
}

func TestWriteResultText_Runs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := writeResultText(&buf, CLIResult{Results: []CLIRun{{
		ID:        "r1",
		Strategy:  "gumtree_lazy",
		Counts:    CLICounts{Inserts: 2, Moves: 1},
		CreatedAt: time.Now(),
	}}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "gumtree_lazy")
}

func TestWriteResultText_RunDetail(t *testing.T) {
	t.Parallel()
	src, dst := int64(1), int64(2)
	var buf bytes.Buffer
	err := writeResultText(&buf, CLIResult{Results: CLIRunDetail{
		CLIRun: CLIRun{
			ID:         "r1",
			Strategy:   "gumtree",
			SrcVersion: &src,
			DstVersion: &dst,
			PhasesMS:   map[string]float64{"subtree": 1, "prepare": 2},
		},
		Actions: []CLIAction{{Text: "delete 0"}},
	}})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Versions: 1 -> 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("prepare")), bytes.Index(buf.Bytes(), []byte("subtree")))
	assert.Contains(t, out, "Actions (1):\n  delete 0")
}

func TestWriteResultText_Strategies(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, writeResultText(&buf, CLIResult{Results: []CLIStrategy{{Name: "lexical", Scorer: "lexical"}}}))
	assert.Contains(t, buf.String(), "NAME")
	assert.Contains(t, buf.String(), "lexical")
}

func TestWriteResultText_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, writeResultText(&buf, CLIResult{}))
	assert.Empty(t, buf.String())
}

func TestWriteResultText_Unsupported(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := writeResultText(&buf, CLIResult{Results: 42})
	assert.ErrorContains(t, err, "unsupported result type")
}
