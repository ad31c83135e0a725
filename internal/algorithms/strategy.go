// Package algorithms composes the matching phases into named diff
// pipelines: decompress, match subtrees, match bottom-up, generate the
// edit script.
package algorithms

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownStrategy is returned by ParseStrategy for names it does not know.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy names one of the fixed pipelines.
type Strategy uint8

const (
	Gumtree Strategy = iota
	GumtreeLazy
	GumtreeStable
	GumtreeStableLazy
	GumtreeHybrid
	GumtreeHybridLazy
	Lexical
)

var strategyNames = [...]string{
	Gumtree:           "gumtree",
	GumtreeLazy:       "gumtree_lazy",
	GumtreeStable:     "gumtree_stable",
	GumtreeStableLazy: "gumtree_stable_lazy",
	GumtreeHybrid:     "gumtree_hybrid",
	GumtreeHybridLazy: "gumtree_hybrid_lazy",
	Lexical:           "lexical",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "Strategy(" + strconv.Itoa(int(s)) + ")"
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("algorithms: %w: %q", ErrUnknownStrategy, name)
}

// Strategies lists every strategy in declaration order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategyNames))
	for i := range out {
		out[i] = Strategy(i)
	}
	return out
}

// Config returns DefaultConfig with the strategy's pipeline switches set.
func (s Strategy) Config() Config {
	c := DefaultConfig()
	switch s {
	case GumtreeLazy:
		c.Lazy = true
	case GumtreeStable:
		c.Stable = true
	case GumtreeStableLazy:
		c.Stable, c.Lazy = true, true
	case GumtreeHybrid:
		c.Hybrid = true
	case GumtreeHybridLazy:
		c.Hybrid, c.Lazy = true, true
	case Lexical:
		c.Scorer = LexicalScorer
	}
	return c
}
