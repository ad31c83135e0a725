package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
	"github.com/jward/arbor/scripts"
)

var (
	flagDB        string
	flagFormat    string
	flagConfig    string
	flagAlgorithm string
	flagVerbose   bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "arbor",
	Short:         "Structural diffs of source code",
	Long:          "Arbor parses both sides of a change with tree-sitter, matches their syntax trees, and reports the insert, delete, update and move actions between them. Runs are recorded in a SQLite database.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		if flagAlgorithm != "" {
			if _, err := arbor.ParseStrategy(flagAlgorithm); err != nil {
				return err
			}
		}
		return nil
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .arbor/arbor.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (default: .arbor/config.yaml relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagAlgorithm, "algorithm", "", "diff strategy, overrides the config file (see 'arbor strategies')")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log diff phases to stderr")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(strategiesCmd)
}

// openEngine builds an Engine from the flags, the config file and the
// repository the working directory belongs to. script, when set, is a
// --script value; scripts that exist on disk are resolved against their
// directory, anything else against the embedded scripts. extra options
// are applied last.
func openEngine(script string, extra ...arbor.Option) (*arbor.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	dbPath := resolveDBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	fc, err := arbor.LoadConfig(resolveConfigPath(repoRoot))
	if err != nil {
		return nil, err
	}
	opts, err := fc.Options()
	if err != nil {
		return nil, err
	}
	if flagAlgorithm != "" {
		s, err := arbor.ParseStrategy(flagAlgorithm)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arbor.WithStrategy(s))
	}
	opts = append(opts, arbor.WithLogger(newLogger(flagVerbose)))

	if script != "" {
		if dir, ok := scriptDir(script); ok {
			opts = append(opts, arbor.WithScriptsDir(dir))
		} else {
			opts = append(opts, arbor.WithScriptsFS(scripts.FS))
		}
	}

	opts = append(opts, extra...)

	engine, err := arbor.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// scriptDir returns the directory of a --script value naming a file on
// disk.
func scriptDir(script string) (string, bool) {
	abs, err := filepath.Abs(script)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(abs); err != nil || info.IsDir() {
		return "", false
	}
	return filepath.Dir(abs), true
}

// scriptName is the path RunScript is given for a --script value: the base
// name for files on disk, otherwise the embedded name with its extension.
func scriptName(script string) string {
	if _, ok := scriptDir(script); ok {
		return filepath.Base(script)
	}
	if !strings.HasSuffix(script, ".risor") {
		return script + ".risor"
	}
	return script
}

// newLogger returns a text logger on stderr; verbose lowers the level to
// debug so each diff phase is logged.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".arbor", "arbor.db")
}

// resolveConfigPath returns the config path from the --config flag or the
// default. A missing default file means built-in defaults.
func resolveConfigPath(repoRoot string) string {
	if flagConfig != "" {
		return flagConfig
	}
	return filepath.Join(repoRoot, ".arbor", "config.yaml")
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}
