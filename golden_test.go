package arbor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format. Each case directory holds before/ and after/ trees
// and a golden.json keyed by file name. Expectations are checked against
// the default strategy; every strategy must replay.
type goldenFile struct {
	Files map[string]goldenExpect `json:"files"`
}

type goldenExpect struct {
	Updates    []goldenUpdate `json:"updates,omitempty"`
	MaxActions *int           `json:"max_actions,omitempty"`
	MinInserts int            `json:"min_inserts,omitempty"`
	MinMoves   int            `json:"min_moves,omitempty"`
	MaxInserts *int           `json:"max_inserts,omitempty"`
	MaxDeletes *int           `json:"max_deletes,omitempty"`
}

type goldenUpdate struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TestGolden walks testdata/{language}/ directories and runs golden tests
// for all languages that have testdata.
func TestGolden(t *testing.T) {
	langDirs, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, langDir := range langDirs {
		if !langDir.IsDir() {
			continue
		}
		lang := langDir.Name()
		langRoot := filepath.Join("testdata", lang)
		cases, err := os.ReadDir(langRoot)
		if err != nil {
			continue
		}

		for _, c := range cases {
			if !c.IsDir() {
				continue
			}
			testDir := filepath.Join(langRoot, c.Name())
			goldenPath := filepath.Join(testDir, "golden.json")
			if _, err := os.Stat(goldenPath); err != nil {
				continue
			}

			t.Run(lang+"/"+c.Name(), func(t *testing.T) {
				runGoldenTest(t, testDir, goldenPath)
			})
		}
	}
}

func runGoldenTest(t *testing.T, testDir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))
	require.NotEmpty(t, golden.Files)

	names := make([]string, 0, len(golden.Files))
	for name := range golden.Files {
		names = append(names, name)
	}
	slices.Sort(names)
	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, Pair{
			Src: filepath.Join(testDir, "before", name),
			Dst: filepath.Join(testDir, "after", name),
		})
	}

	for _, s := range Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			e := newTestEngine(t, WithStrategy(s))
			reports, err := e.DiffPairs(context.Background(), pairs)
			require.NoError(t, err)
			require.Len(t, reports, len(pairs))

			for i, rep := range reports {
				assertReplays(t, e, rep)
				if s == Gumtree {
					verifyExpect(t, names[i], rep, golden.Files[names[i]])
				}
			}
			verifyRecorded(t, e, len(pairs))
		})
	}
}

func verifyExpect(t *testing.T, name string, rep *Report, exp goldenExpect) {
	t.Helper()
	script := rep.Script()
	counts := rep.Counts()

	for _, u := range exp.Updates {
		assert.True(t, hasRename(script, u.From, u.To), "%s: missing update %s -> %s in %v", name, u.From, u.To, script)
	}
	if exp.MaxActions != nil {
		assert.LessOrEqual(t, len(script), *exp.MaxActions, "%s: %v", name, script)
	}
	if exp.MaxInserts != nil {
		assert.LessOrEqual(t, counts[Insert], *exp.MaxInserts, "%s: %v", name, script)
	}
	if exp.MaxDeletes != nil {
		assert.LessOrEqual(t, counts[Delete], *exp.MaxDeletes, "%s: %v", name, script)
	}
	assert.GreaterOrEqual(t, counts[Insert], exp.MinInserts, "%s: %v", name, script)
	assert.GreaterOrEqual(t, counts[Move], exp.MinMoves, "%s: %v", name, script)
}

// verifyRecorded checks that every pair produced a run with both versions
// and that the stored scripts match the run counts.
func verifyRecorded(t *testing.T, e *Engine, pairs int) {
	t.Helper()
	db := e.Store().DB()

	var runs, versions int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM diff_runs WHERE src_version_id IS NOT NULL AND dst_version_id IS NOT NULL`,
	).Scan(&runs))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM versions`).Scan(&versions))
	assert.Equal(t, pairs, runs)
	assert.Equal(t, 2*pairs, versions)

	var mismatched int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM diff_runs r
		 WHERE r.inserts + r.deletes + r.updates + r.moves !=
		       (SELECT COUNT(*) FROM actions a WHERE a.run_id = r.id)`,
	).Scan(&mismatched))
	assert.Zero(t, mismatched)
}
