package arbor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatch runs Watch in the background and returns a channel of the
// reports it produces and one for its result.
func startWatch(t *testing.T, ctx context.Context, e *Engine, path string, fn func(*Report) error) (<-chan *Report, <-chan error) {
	t.Helper()
	reports := make(chan *Report, 8)
	done := make(chan error, 1)
	go func() {
		done <- e.Watch(ctx, path, func(rep *Report) error {
			reports <- rep
			if fn != nil {
				return fn(rep)
			}
			return nil
		})
	}()
	return reports, done
}

// saveUntilReport rewrites path until the watcher reports, since the
// watch may not be installed when the first write lands.
func saveUntilReport(t *testing.T, path, content string, reports <-chan *Report) *Report {
	t.Helper()
	var rep *Report
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(content), 0o644)
		select {
		case rep = <-reports:
			return true
		case <-time.After(300 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)
	return rep
}

func TestWatch_DiffsEachSave(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "main.go", oldGo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reports, done := startWatch(t, ctx, e, path, nil)

	rep := saveUntilReport(t, path, newGo, reports)
	assert.Equal(t, path, rep.SrcPath)
	assert.True(t, hasRename(rep.Script(), "a", "b"), "script: %v", rep.Script())
	assertReplays(t, e, rep)

	rep = saveUntilReport(t, path, oldGo, reports)
	assert.True(t, hasRename(rep.Script(), "b", "a"), "script: %v", rep.Script())

	cancel()
	require.NoError(t, <-done)

	versions, err := e.Versions(path)
	require.NoError(t, err)
	assert.Len(t, versions, 4)
}

func TestWatch_HandlerErrorStops(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "main.go", oldGo)
	stop := errors.New("stop")

	reports, done := startWatch(t, context.Background(), e, path, func(*Report) error { return stop })
	saveUntilReport(t, path, newGo, reports)
	assert.ErrorIs(t, <-done, stop)
}

func TestWatch_UnsupportedLanguage(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "notes.txt", "hello\n")
	err := e.Watch(context.Background(), path, func(*Report) error { return nil })
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestWatch_MissingFile(t *testing.T) {
	e := newTestEngine(t)
	err := e.Watch(context.Background(), filepath.Join(t.TempDir(), "gone.go"), func(*Report) error { return nil })
	require.Error(t, err)
}

func TestDiffRevision(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "main.go", newGo)

	rep, err := e.DiffRevision(context.Background(), path, []byte(oldGo))
	require.NoError(t, err)
	assert.True(t, hasRename(rep.Script(), "a", "b"), "script: %v", rep.Script())
	assert.Positive(t, rep.SrcVersion)
	assertReplays(t, e, rep)
}

func TestDiffRevision_ReusesUnchangedNodes(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "main.go", newGo)
	ctx := context.Background()

	rep, err := e.DiffRevision(ctx, path, []byte(oldGo))
	require.NoError(t, err)
	seen := e.nodes.Len()
	// the rename only adds the changed spine of the new revision
	assert.Less(t, seen, rep.Result.Src.Len()+rep.Result.Dst.Len())

	for i := range 4 {
		prev, cur := oldGo, newGo
		if i%2 == 1 {
			prev, cur = newGo, oldGo
		}
		require.NoError(t, os.WriteFile(path, []byte(cur), 0o644))
		_, err := e.DiffRevision(ctx, path, []byte(prev))
		require.NoError(t, err)
		assert.Equal(t, seen, e.nodes.Len(), "revision %d", i)
	}
}
