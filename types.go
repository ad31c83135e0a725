package arbor

import (
	"github.com/jward/arbor/internal/actions"
	"github.com/jward/arbor/internal/algorithms"
	"github.com/jward/arbor/internal/matchers"
	"github.com/jward/arbor/internal/parse"
	"github.com/jward/arbor/internal/store"
)

var (
	// ErrRunNotFound is returned by Run and DeleteRun for unknown run ids.
	ErrRunNotFound = store.ErrRunNotFound

	// ErrUnsupportedLanguage is returned for files and language names no
	// grammar is registered for.
	ErrUnsupportedLanguage = parse.ErrUnsupportedLanguage

	// ErrUnknownStrategy is returned for pipeline names ParseStrategy does
	// not know.
	ErrUnknownStrategy = algorithms.ErrUnknownStrategy
)

// Public type aliases for internal types used in the Engine API.

type Store = store.Store
type File = store.File
type Version = store.Version
type DiffRun = store.DiffRun

type Action = actions.Action
type Kind = actions.Kind

type Strategy = algorithms.Strategy
type Config = algorithms.Config
type Result = algorithms.Result
type Similarity = matchers.Similarity

const (
	Insert = actions.Insert
	Delete = actions.Delete
	Update = actions.Update
	Move   = actions.Move
)

const (
	Gumtree           = algorithms.Gumtree
	GumtreeLazy       = algorithms.GumtreeLazy
	GumtreeStable     = algorithms.GumtreeStable
	GumtreeStableLazy = algorithms.GumtreeStableLazy
	GumtreeHybrid     = algorithms.GumtreeHybrid
	GumtreeHybridLazy = algorithms.GumtreeHybridLazy
	Lexical           = algorithms.Lexical
)

// Languages lists the supported language names, sorted.
func Languages() []string { return parse.Languages() }

// Report is the outcome of one Engine diff.
type Report struct {
	// RunID identifies the recorded run.
	RunID    string
	SrcPath  string
	DstPath  string
	Language string
	// SrcVersion and DstVersion are zero for diffs of in-memory sources.
	SrcVersion int64
	DstVersion int64

	Result *Result
}

// Script is the edit script, nil when the config skips it.
func (r *Report) Script() []Action { return r.Result.Script }

// Counts tallies the script by kind.
func (r *Report) Counts() map[Kind]int { return r.Result.Counts() }

// Strategies lists every named pipeline.
func Strategies() []Strategy { return algorithms.Strategies() }

// ParseStrategy resolves a pipeline name such as "gumtree_stable".
func ParseStrategy(name string) (Strategy, error) { return algorithms.ParseStrategy(name) }

// DefaultConfig is the plain greedy pipeline with default tunables.
func DefaultConfig() Config { return algorithms.DefaultConfig() }
