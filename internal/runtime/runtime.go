// Package runtime runs Risor scripts over diff results. Scripts see the
// result as plain maps and lists, can parse and diff snippets of their own,
// and can query recorded runs when a Store is attached.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/arbor/internal/algorithms"
	"github.com/jward/arbor/internal/hast"
	"github.com/jward/arbor/internal/parse"
	"github.com/jward/arbor/internal/store"
)

// Runtime embeds a Risor VM with diff host functions and optional Store
// access.
type Runtime struct {
	store      *store.Store
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
	config     algorithms.Config

	nodes  *hast.Store
	parser *parse.Parser
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger sets the logger behind the script "log" global.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithConfig sets the pipeline diff_src uses when no strategy is named.
func WithConfig(cfg algorithms.Config) RuntimeOption {
	return func(r *Runtime) {
		r.config = cfg
	}
}

// WithNodes shares a node store with the caller so snippets parsed by
// scripts deduplicate against it.
func WithNodes(nodes *hast.Store) RuntimeOption {
	return func(r *Runtime) {
		r.nodes = nodes
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts
// directory. s may be nil.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
		config:     algorithms.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.nodes == nil {
		r.nodes = hast.NewStore()
	}
	if r.config.Logger == nil {
		r.config.Logger = r.logger
	}
	r.parser = parse.New(r.nodes, parse.WithLogger(r.logger))
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	_, err = r.eval(ctx, src, scriptPath, extraGlobals)
	return err
}

// EvalScript is RunScript returning the value of the script's last
// expression converted to Go.
func (r *Runtime) EvalScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	obj, err := r.eval(ctx, src, scriptPath, extraGlobals)
	if err != nil || obj == nil {
		return nil, err
	}
	return obj.Interface(), nil
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	_, err := r.eval(ctx, source, "<inline>", extraGlobals)
	return err
}

// Eval is RunSource returning the value of the script's last expression
// converted to Go.
func (r *Runtime) Eval(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	obj, err := r.eval(ctx, source, "<inline>", extraGlobals)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.Interface(), nil
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (object.Object, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	obj, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return obj, nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse_src": makeParseSrcFn(r),
		"diff_src":  makeDiffSrcFn(r),
		"languages": languagesObject(),
		"log":       mustProxy(&logObject{logger: r.logger.With("source", "script")}),
	}

	if r.store != nil {
		globals["runs"] = makeRunsFn(r.store)
		globals["run"] = makeRunFn(r.store)
		globals["run_actions"] = makeRunActionsFn(r.store)
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func languagesObject() object.Object {
	langs := parse.Languages()
	items := make([]object.Object, len(langs))
	for i, l := range langs {
		items[i] = object.NewString(l)
	}
	return object.NewList(items)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
