package algorithms

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jward/arbor/internal/actions"
	"github.com/jward/arbor/internal/decompressed"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/mapping"
	"github.com/jward/arbor/internal/matchers"
)

// ErrLazyMismatch is returned by CheckLazyEquivalence when the lazy and
// eager pipelines disagree.
var ErrLazyMismatch = errors.New("lazy and eager diffs differ")

// Phase names one stage of a pipeline.
type Phase uint8

const (
	PhasePrepare Phase = iota
	PhaseSubtree
	PhaseBottomUp
	PhaseScript
	numPhases
)

var phaseNames = [...]string{"prepare", "subtree", "bottom_up", "script"}

func (p Phase) String() string { return phaseNames[p] }

// Phases lists the pipeline stages in order.
func Phases() []Phase { return []Phase{PhasePrepare, PhaseSubtree, PhaseBottomUp, PhaseScript} }

// Result is the outcome of one diff.
type Result struct {
	Strategy Strategy
	Src      decompressed.Arena
	Dst      decompressed.Arena
	Mappings *mapping.Store
	// Script is nil when the config skips script generation.
	Script []actions.Action

	// Timings and Allocs are per phase. Allocs is the growth of the
	// process-wide cumulative heap allocation counter, so concurrent work
	// shows up in it.
	Timings [numPhases]time.Duration
	Allocs  [numPhases]uint64
	Total   time.Duration
}

// Counts tallies the script by kind.
func (r *Result) Counts() map[actions.Kind]int { return actions.Counts(r.Script) }

// Diff runs the pipeline cfg selects on the trees rooted at src and dst.
// The context is checked between phases only.
func Diff(ctx context.Context, acc hast.Accessor, src, dst hast.NodeID, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy := cfg.Strategy()
	log := cfg.logger().With("strategy", strategy.String())

	ctx, span := startDiffSpan(ctx, strategy, int(acc.Node(src).Size), int(acc.Node(dst).Size))
	defer span.End()

	res := &Result{Strategy: strategy}
	start := time.Now()
	var pair *matchers.Pair

	steps := [numPhases]func(){
		PhasePrepare: func() {
			if cfg.Lazy {
				res.Src, res.Dst = decompressed.NewLazy(acc, src), decompressed.NewLazy(acc, dst)
			} else {
				res.Src, res.Dst = decompressed.NewPostOrder(acc, src), decompressed.NewPostOrder(acc, dst)
			}
			pair = matchers.NewPair(acc, res.Src, res.Dst)
			res.Mappings = pair.Mappings
		},
		PhaseSubtree: func() {
			matchers.Subtree{MinHeight: cfg.MinHeight, Stable: cfg.Stable}.Match(pair)
			if cfg.Scorer == LexicalScorer {
				matchers.Statements{Threshold: cfg.LabelThreshold}.Match(pair)
			}
		},
		PhaseBottomUp: func() {
			matchers.BottomUp{
				Threshold: cfg.SimThreshold,
				Adaptive:  cfg.AdaptiveThreshold,
				Stable:    cfg.Stable,
				Scorer:    newScorer(pair, cfg),
				Recovery:  newRecovery(cfg),
			}.Match(pair)
		},
		PhaseScript: func() {
			if cfg.SkipScript {
				return
			}
			res.Script = actions.Generate(acc, res.Src, res.Dst, res.Mappings,
				actions.Options{EmitReorderMoves: cfg.EmitReorderMoves})
		},
	}

	var ms runtime.MemStats
	for _, ph := range Phases() {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("algorithms: diff: %w", err)
		}
		_, phaseSpan := tracer.Start(ctx, "algorithms."+ph.String())
		runtime.ReadMemStats(&ms)
		before := ms.TotalAlloc
		t0 := time.Now()

		steps[ph]()

		res.Timings[ph] = time.Since(t0)
		runtime.ReadMemStats(&ms)
		res.Allocs[ph] = ms.TotalAlloc - before
		phaseSpan.End()
		log.Debug("diff phase", "phase", ph.String(), "duration", res.Timings[ph], "alloc_bytes", res.Allocs[ph])
	}
	res.Total = time.Since(start)

	span.SetAttributes(
		attribute.Int("arbor.mappings", res.Mappings.Len()),
		attribute.Int("arbor.actions", len(res.Script)),
	)
	recordDiffMetrics(ctx, strategy, res.Total, res.Mappings.Len(), len(res.Script))
	log.Info("diff complete",
		"src_size", res.Src.Len(),
		"dst_size", res.Dst.Len(),
		"mappings", res.Mappings.Len(),
		"actions", len(res.Script),
		"duration", res.Total,
	)
	return res, nil
}

func newScorer(p *matchers.Pair, cfg Config) matchers.Scorer {
	var s matchers.Scorer = matchers.NewExactScorer(p, cfg.Similarity)
	if cfg.Hybrid {
		s = &matchers.HybridScorer{
			Src:       p.Src,
			Threshold: cfg.SizeThreshold,
			Small:     s,
			Large:     matchers.NewHiddenScorer(p, cfg.Similarity),
		}
	}
	if cfg.Scorer == LexicalScorer {
		s = matchers.NewLexicalScorer(p, s)
	}
	return s
}

// newRecovery hands small pairs to the edit distance matcher in the hybrid
// pipeline only.
func newRecovery(cfg Config) matchers.Recovery {
	r := matchers.Recovery{Stable: cfg.Stable}
	if cfg.Hybrid {
		r.OptimalSize = cfg.OptimalSize
	}
	return r
}

// CheckLazyEquivalence runs cfg eagerly and lazily and reports whether the
// mappings and scripts agree.
func CheckLazyEquivalence(ctx context.Context, acc hast.Accessor, src, dst hast.NodeID, cfg Config) error {
	cfg.Lazy = false
	eager, err := Diff(ctx, acc, src, dst, cfg)
	if err != nil {
		return err
	}
	cfg.Lazy = true
	lazy, err := Diff(ctx, acc, src, dst, cfg)
	if err != nil {
		return err
	}
	if !eager.Mappings.Equal(lazy.Mappings) {
		return fmt.Errorf("algorithms: %w: mappings (%d eager, %d lazy pairs)",
			ErrLazyMismatch, eager.Mappings.Len(), lazy.Mappings.Len())
	}
	if !slices.EqualFunc(eager.Script, lazy.Script, sameAction) {
		return fmt.Errorf("algorithms: %w: scripts (%d eager, %d lazy actions)",
			ErrLazyMismatch, len(eager.Script), len(lazy.Script))
	}
	return nil
}

func sameAction(a, b actions.Action) bool {
	return a.Kind == b.Kind && a.Index == b.Index && a.Node == b.Node &&
		a.Path.Equal(b.Path) && a.Parent.Equal(b.Parent) && a.Origin.Equal(b.Origin) &&
		a.Type == b.Type && a.Label == b.Label && a.HasLabel == b.HasLabel &&
		a.OldType == b.OldType && a.OldLabel == b.OldLabel
}
