package algorithms

import (
	"fmt"
	"log/slog"

	"github.com/jward/arbor/internal/matchers"
)

// ScorerKind selects the bottom-up scoring family.
type ScorerKind uint8

const (
	// StructuralScorer scores on shared mapped descendants only.
	StructuralScorer ScorerKind = iota
	// LexicalScorer adds a statement text pre-pass and blends text
	// similarity into the structural score.
	LexicalScorer
)

func (k ScorerKind) String() string {
	if k == LexicalScorer {
		return "lexical"
	}
	return "structural"
}

// Config parameterizes one diff.
type Config struct {
	// MinHeight is the smallest subtree height the top-down phase pairs.
	MinHeight int
	// SimThreshold is the minimum bottom-up score for a container link.
	SimThreshold float64
	// SizeThreshold is the descendant count above which the hybrid
	// pipeline scores on collapsed views.
	SizeThreshold int
	// LabelThreshold is the minimum text similarity for lexical statement
	// links.
	LabelThreshold float64
	// AdaptiveThreshold replaces SimThreshold per candidate pair with
	// 1/(1+ln n), n the descendants of both containers together.
	AdaptiveThreshold bool
	// OptimalSize is the descendant count below which the hybrid pipeline
	// recovers children by tree edit distance. Zero disables it.
	OptimalSize int

	Lazy   bool
	Stable bool
	Hybrid bool
	Scorer ScorerKind

	Similarity       matchers.Similarity
	EmitReorderMoves bool
	// SkipScript stops after matching.
	SkipScript bool

	// Logger receives one Debug record per phase. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig is the plain greedy, eager, structural pipeline.
func DefaultConfig() Config {
	return Config{
		MinHeight:        matchers.DefaultMinHeight,
		SimThreshold:     matchers.DefaultThreshold,
		SizeThreshold:    matchers.DefaultSizeThreshold,
		LabelThreshold:   matchers.DefaultLabelThreshold,
		OptimalSize:      matchers.DefaultOptimalSize,
		Similarity:       matchers.Chawathe,
		EmitReorderMoves: true,
	}
}

// Strategy names the pipeline c selects. Tunables do not affect the name.
func (c Config) Strategy() Strategy {
	switch {
	case c.Scorer == LexicalScorer:
		return Lexical
	case c.Hybrid && c.Lazy:
		return GumtreeHybridLazy
	case c.Hybrid:
		return GumtreeHybrid
	case c.Stable && c.Lazy:
		return GumtreeStableLazy
	case c.Stable:
		return GumtreeStable
	case c.Lazy:
		return GumtreeLazy
	}
	return Gumtree
}

// Validate rejects out-of-range tunables.
func (c Config) Validate() error {
	if c.MinHeight < 1 {
		return fmt.Errorf("algorithms: min height %d must be at least 1", c.MinHeight)
	}
	if c.SimThreshold < 0 || c.SimThreshold > 1 {
		return fmt.Errorf("algorithms: similarity threshold %v outside [0, 1]", c.SimThreshold)
	}
	if c.LabelThreshold < 0 || c.LabelThreshold > 1 {
		return fmt.Errorf("algorithms: label threshold %v outside [0, 1]", c.LabelThreshold)
	}
	if c.Hybrid && c.SizeThreshold < 0 {
		return fmt.Errorf("algorithms: size threshold %d is negative", c.SizeThreshold)
	}
	if c.OptimalSize < 0 {
		return fmt.Errorf("algorithms: optimal size %d is negative", c.OptimalSize)
	}
	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// WithStrategy returns c with the pipeline switches of s and c's tunables.
func (c Config) WithStrategy(s Strategy) Config {
	sc := s.Config()
	c.Lazy, c.Stable, c.Hybrid, c.Scorer = sc.Lazy, sc.Stable, sc.Hybrid, sc.Scorer
	return c
}
