package arbor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is how long a file must stay quiet after a change before
// it is diffed.
const watchDebounce = 100 * time.Millisecond

// Watch diffs path against its previous contents each time it changes on
// disk, until ctx is done. Each diff is recorded as by DiffRevision and
// passed to fn; an error from fn or from the diff ends the watch. Saves
// that leave the contents unchanged are ignored. Watch returns nil when
// ctx is canceled.
//
// Every revision is parsed into the engine's node store, which only grows.
// Identical subtrees are shared, so a save adds the nodes it changed and
// their ancestors, and returning to earlier contents adds nothing.
func (e *Engine) Watch(ctx context.Context, path string, fn func(*Report) error) error {
	if _, err := e.parser.Language(path); err != nil {
		return fmt.Errorf("arbor: %w", err)
	}
	prev, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("arbor: read file: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("arbor: create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: a rename over the target drops a file watch.
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("arbor: watch %s: %w", filepath.Dir(target), err)
	}
	e.logger.Info("watching", "path", target)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			timerC = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "path", target, "err", err)

		case <-timerC:
			timerC = nil
			cur, err := os.ReadFile(target)
			if err != nil {
				// mid-replace; the next event retries
				e.logger.Debug("watched file unreadable", "path", target, "err", err)
				continue
			}
			if bytes.Equal(cur, prev) {
				continue
			}
			rep, err := e.diffRevision(ctx, path, prev, cur)
			if err != nil {
				return err
			}
			prev = cur
			if err := fn(rep); err != nil {
				return err
			}
		}
	}
}
