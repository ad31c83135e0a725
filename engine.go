package arbor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"

	"github.com/jward/arbor/internal/algorithms"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/parse"
	arborrt "github.com/jward/arbor/internal/runtime"
	"github.com/jward/arbor/internal/store"
)

// ErrLanguageMismatch is returned when the two sides of a file diff map to
// different languages.
var ErrLanguageMismatch = errors.New("source and destination languages differ")

// Engine orchestrates the arbor pipeline: parsing, diffing, recording
// versions and runs, and scripted post-processing.
type Engine struct {
	store   *store.Store
	nodes   *hast.Store
	parser  *parse.Parser
	runtime *arborrt.Runtime
	logger  *slog.Logger

	config      algorithms.Config
	languages   map[string]string
	parallelism int
	scriptsDir  string
	scriptsFS   fs.FS
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy selects the diff pipeline, keeping any tunables set by
// WithConfig.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		e.config = e.config.WithStrategy(s)
	}
}

// WithConfig replaces the diff configuration wholesale.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger sets the logger for the Engine and everything it drives.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallelism bounds the number of concurrent diffs in DiffPairs.
// Values below 1 mean runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithLanguages maps extra file extensions to language names.
func WithLanguages(m map[string]string) Option {
	return func(e *Engine) {
		if e.languages == nil {
			e.languages = make(map[string]string, len(m))
		}
		for ext, lang := range m {
			e.languages[ext] = lang
		}
	}
}

// WithScriptsDir sets the directory RunScript resolves relative script
// paths and imports against.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from disk. This enables embedding scripts via
// go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: migrate: %w", err)
	}

	e := &Engine{
		store:  s,
		nodes:  hast.NewStore(),
		config: algorithms.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = runtime.NumCPU()
	}
	if err := e.config.Validate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("arbor: %w", err)
	}
	e.config.Logger = e.logger

	e.parser = parse.New(e.nodes, parse.WithLanguages(e.languages), parse.WithLogger(e.logger))

	rtOpts := []arborrt.RuntimeOption{
		arborrt.WithLogger(e.logger),
		arborrt.WithConfig(e.config),
		arborrt.WithNodes(e.nodes),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, arborrt.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = arborrt.NewRuntime(s, e.scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Config returns the diff configuration in effect.
func (e *Engine) Config() Config {
	return e.config
}

// Language reports the language DiffFiles would parse path as, honouring
// WithLanguages overrides.
func (e *Engine) Language(path string) (string, bool) {
	lang, err := e.parser.Language(path)
	return lang, err == nil
}

// DiffSources diffs two in-memory sources of one language and records the
// run without file versions.
func (e *Engine) DiffSources(ctx context.Context, language string, src, dst []byte) (*Report, error) {
	a, err := e.parser.Parse(ctx, language, src)
	if err != nil {
		return nil, fmt.Errorf("arbor: parse source: %w", err)
	}
	b, err := e.parser.Parse(ctx, language, dst)
	if err != nil {
		return nil, fmt.Errorf("arbor: parse destination: %w", err)
	}
	rep, err := e.diff(ctx, a, b)
	if err != nil {
		return nil, err
	}
	rep.Language = language
	if err := e.record(rep, nil); err != nil {
		return nil, err
	}
	return rep, nil
}

// DiffFiles diffs two files on disk. Both are recorded as versions of
// their paths, so repeated diffs of an evolving file build its history.
func (e *Engine) DiffFiles(ctx context.Context, srcPath, dstPath string) (*Report, error) {
	in, err := e.readPair(srcPath, dstPath)
	if err != nil {
		return nil, err
	}
	if err := e.parsePair(ctx, in); err != nil {
		return nil, err
	}
	rep, err := e.diff(ctx, in.src.root, in.dst.root)
	if err != nil {
		return nil, err
	}
	rep.SrcPath, rep.DstPath, rep.Language = srcPath, dstPath, in.lang
	if err := e.record(rep, in); err != nil {
		return nil, err
	}
	return rep, nil
}

// DiffRevision diffs an earlier revision of a file, given as bytes, against
// the file's current contents. Both are recorded as versions of path.
func (e *Engine) DiffRevision(ctx context.Context, path string, prev []byte) (*Report, error) {
	cur, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: read file: %w", err)
	}
	return e.diffRevision(ctx, path, prev, cur)
}

func (e *Engine) diffRevision(ctx context.Context, path string, prev, cur []byte) (*Report, error) {
	lang, err := e.parser.Language(path)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	in := &pairInput{
		lang: lang,
		src:  side{path: path, src: prev},
		dst:  side{path: path, src: cur},
	}
	if err := e.parsePair(ctx, in); err != nil {
		return nil, err
	}
	rep, err := e.diff(ctx, in.src.root, in.dst.root)
	if err != nil {
		return nil, err
	}
	rep.SrcPath, rep.DstPath, rep.Language = path, path, lang
	if err := e.record(rep, in); err != nil {
		return nil, err
	}
	return rep, nil
}

// CheckLazy runs the configured strategy eagerly and lazily on two files
// and reports any disagreement. Nothing is recorded.
func (e *Engine) CheckLazy(ctx context.Context, srcPath, dstPath string) error {
	in, err := e.readPair(srcPath, dstPath)
	if err != nil {
		return err
	}
	if err := e.parsePair(ctx, in); err != nil {
		return err
	}
	return algorithms.CheckLazyEquivalence(ctx, e.nodes, in.src.root, in.dst.root, e.config)
}

// side is one parsed input of a diff.
type side struct {
	path string
	src  []byte
	tag  string
	root hast.NodeID
}

type pairInput struct {
	lang     string
	src, dst side
}

func (e *Engine) readPair(srcPath, dstPath string) (*pairInput, error) {
	srcLang, err := e.parser.Language(srcPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	dstLang, err := e.parser.Language(dstPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	if srcLang != dstLang {
		return nil, fmt.Errorf("arbor: %w: %s is %s, %s is %s", ErrLanguageMismatch, srcPath, srcLang, dstPath, dstLang)
	}
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: read file: %w", err)
	}
	dst, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("arbor: read file: %w", err)
	}
	return &pairInput{
		lang: srcLang,
		src:  side{path: srcPath, src: src},
		dst:  side{path: dstPath, src: dst},
	}, nil
}

func (e *Engine) parsePair(ctx context.Context, in *pairInput) error {
	var err error
	if in.src.root, err = e.parser.Parse(ctx, in.lang, in.src.src); err != nil {
		return fmt.Errorf("arbor: parse %s: %w", in.src.path, err)
	}
	if in.dst.root, err = e.parser.Parse(ctx, in.lang, in.dst.src); err != nil {
		return fmt.Errorf("arbor: parse %s: %w", in.dst.path, err)
	}
	return nil
}

func (e *Engine) diff(ctx context.Context, src, dst hast.NodeID) (*Report, error) {
	res, err := algorithms.Diff(ctx, e.nodes, src, dst, e.config)
	if err != nil {
		return nil, fmt.Errorf("arbor: %w", err)
	}
	return &Report{Result: res}, nil
}

// record persists rep as a run. With in set, both sides are stored as
// file versions first.
func (e *Engine) record(rep *Report, in *pairInput) error {
	run := runFromResult(rep.Result)
	if in != nil {
		srcVersion, err := e.saveVersion(in.src, in.lang)
		if err != nil {
			return err
		}
		dstVersion, err := e.saveVersion(in.dst, in.lang)
		if err != nil {
			return err
		}
		run.SrcVersionID, run.DstVersionID = &srcVersion, &dstVersion
		rep.SrcVersion, rep.DstVersion = srcVersion, dstVersion
	}
	if err := e.store.InsertRun(run, rep.Result.Script); err != nil {
		return fmt.Errorf("arbor: record run: %w", err)
	}
	rep.RunID = run.ID
	return nil
}

func (e *Engine) saveVersion(s side, lang string) (int64, error) {
	fileID, err := e.store.UpsertFile(s.path, lang)
	if err != nil {
		return 0, fmt.Errorf("arbor: record file: %w", err)
	}
	row, err := e.store.SaveTree(e.nodes, s.root)
	if err != nil {
		return 0, fmt.Errorf("arbor: save tree: %w", err)
	}
	id, err := e.store.InsertVersion(&store.Version{
		FileID:     fileID,
		RootNodeID: row,
		SourceHash: store.ComputeSourceHash(s.src),
		Tag:        s.tag,
	})
	if err != nil {
		return 0, fmt.Errorf("arbor: record version: %w", err)
	}
	return id, nil
}

func runFromResult(res *algorithms.Result) *store.DiffRun {
	counts := res.Counts()
	return &store.DiffRun{
		Strategy: res.Strategy.String(),
		SrcSize:  res.Src.Len(),
		DstSize:  res.Dst.Len(),
		Mappings: res.Mappings.Len(),
		Inserts:  counts[Insert],
		Deletes:  counts[Delete],
		Updates:  counts[Update],
		Moves:    counts[Move],
		Prepare:  res.Timings[algorithms.PhasePrepare],
		Subtree:  res.Timings[algorithms.PhaseSubtree],
		BottomUp: res.Timings[algorithms.PhaseBottomUp],
		Script:   res.Timings[algorithms.PhaseScript],
		Total:    res.Total,
	}
}

// Runs returns recorded runs, newest first. limit <= 0 returns all.
func (e *Engine) Runs(limit int) ([]*DiffRun, error) {
	return e.store.Runs(limit)
}

// Run returns a recorded run and its script.
func (e *Engine) Run(id string) (*DiffRun, []Action, error) {
	run, err := e.store.Run(id)
	if err != nil {
		return nil, nil, err
	}
	script, err := e.store.RunActions(id)
	if err != nil {
		return nil, nil, err
	}
	return run, script, nil
}

// DeleteRun removes a recorded run.
func (e *Engine) DeleteRun(id string) error {
	return e.store.DeleteRun(id)
}

// Versions lists the recorded versions of a file, oldest first.
func (e *Engine) Versions(path string) ([]*Version, error) {
	return e.store.VersionsByFile(path)
}

// VersionTree loads a recorded version and renders it as an s-expression.
func (e *Engine) VersionTree(id int64) (string, error) {
	v, err := e.store.VersionByID(id)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("arbor: version %d not found", id)
	}
	root, err := e.store.LoadTree(e.nodes, v.RootNodeID)
	if err != nil {
		return "", fmt.Errorf("arbor: %w", err)
	}
	return hast.Format(e.nodes, root), nil
}

// RunScript executes a Risor script over rep. Besides the result globals
// the script sees run_id, src_path, dst_path and language.
func (e *Engine) RunScript(ctx context.Context, scriptPath string, rep *Report) error {
	return e.runtime.RunScript(ctx, scriptPath, e.scriptGlobals(rep))
}

// ScriptValue is RunScript returning the value of the script's last
// expression.
func (e *Engine) ScriptValue(ctx context.Context, scriptPath string, rep *Report) (any, error) {
	return e.runtime.EvalScript(ctx, scriptPath, e.scriptGlobals(rep))
}

// EvalScript is RunScript for inline source, returning the value of the
// last expression.
func (e *Engine) EvalScript(ctx context.Context, source string, rep *Report) (any, error) {
	return e.runtime.Eval(ctx, source, e.scriptGlobals(rep))
}

func (e *Engine) scriptGlobals(rep *Report) map[string]any {
	globals := arborrt.ResultGlobals(e.nodes, rep.Result)
	globals["run_id"] = rep.RunID
	globals["src_path"] = rep.SrcPath
	globals["dst_path"] = rep.DstPath
	globals["language"] = rep.Language
	return globals
}
