package arbor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pair names the two files of one diff.
type Pair struct {
	Src string
	Dst string
}

// DiffPairs diffs many file pairs with a two-phase pipeline:
//
//	Phase A (parallel): read, parse and diff, bounded by WithParallelism.
//	Phase B (serial):   record versions and runs in input order.
//
// Reports come back in input order. The first failing pair cancels the
// rest and nothing is recorded.
func (e *Engine) DiffPairs(ctx context.Context, pairs []Pair) ([]*Report, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	// ---- Phase A: parallel diff ----
	inputs := make([]*pairInput, len(pairs))
	reports := make([]*Report, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.parallelism, len(pairs)))
	for i, p := range pairs {
		g.Go(func() error {
			in, err := e.readPair(p.Src, p.Dst)
			if err != nil {
				return fmt.Errorf("pair %d: %w", i, err)
			}
			if err := e.parsePair(gctx, in); err != nil {
				return fmt.Errorf("pair %d: %w", i, err)
			}
			rep, err := e.diff(gctx, in.src.root, in.dst.root)
			if err != nil {
				return fmt.Errorf("pair %d: %w", i, err)
			}
			rep.SrcPath, rep.DstPath, rep.Language = p.Src, p.Dst, in.lang
			inputs[i], reports[i] = in, rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("arbor: diff pairs: %w", err)
	}

	// ---- Phase B: serial commit ----
	for i, rep := range reports {
		if err := e.record(rep, inputs[i]); err != nil {
			return nil, fmt.Errorf("arbor: diff pairs: pair %d: %w", i, err)
		}
	}
	e.logger.Info("diffed pairs", "pairs", len(pairs), "parallelism", min(e.parallelism, len(pairs)))
	return reports, nil
}
