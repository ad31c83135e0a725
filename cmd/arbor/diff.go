package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var (
	flagScript string
	flagRoot   string
	flagJobs   int
)

var diffCmd = &cobra.Command{
	Use:   "diff <src> <dst>",
	Short: "Structurally diff two files",
	Long:  "Parses both files, matches their syntax trees and prints the edit script. Both files are recorded as versions.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var checkLazyCmd = &cobra.Command{
	Use:   "check-lazy <src> <dst>",
	Short: "Check that the lazy and eager pipelines agree on two files",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckLazy,
}

var patchCmd = &cobra.Command{
	Use:   "patch [file|-]",
	Short: "Structurally diff the files a unified diff touches",
	Long:  "Applies each file diff of a unified patch to the file under --root and diffs the pre- and post-patch versions. Reads stdin when no file or '-' is given. Files in unsupported languages are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPatch,
}

var batchCmd = &cobra.Command{
	Use:   "batch <src-dir> <dst-dir>",
	Short: "Diff every file present in both directory trees",
	Long:  "Pairs files by their path relative to each directory and diffs the pairs in parallel. Files in unsupported languages are skipped.",
	Args:  cobra.ExactArgs(2),
	RunE:  runBatch,
}

func init() {
	for _, cmd := range []*cobra.Command{diffCmd, patchCmd, batchCmd} {
		cmd.Flags().StringVar(&flagScript, "script", "", "Risor script to run over each diff: a file path or an embedded script name (renames, churn, moves)")
	}
	patchCmd.Flags().StringVar(&flagRoot, "root", ".", "directory the patch paths are relative to")
	batchCmd.Flags().IntVar(&flagJobs, "jobs", 0, "parallel diffs (default: config parallelism, else CPU count)")

	rootCmd.AddCommand(checkLazyCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	e, err := openEngine(flagScript)
	if err != nil {
		return outputError("diff", err)
	}
	defer e.Close()

	src, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("diff", err)
	}
	dst, err := resolveFilePath(args[1])
	if err != nil {
		return outputError("diff", err)
	}

	ctx := cmd.Context()
	rep, err := e.DiffFiles(ctx, src, dst)
	if err != nil {
		return outputError("diff", err)
	}
	d, err := diffResult(ctx, e, rep)
	if err != nil {
		return outputError("diff", err)
	}

	one := 1
	return outputResult(CLIResult{
		Command:    "diff",
		Results:    d,
		TotalCount: &one,
	})
}

func runCheckLazy(cmd *cobra.Command, args []string) error {
	e, err := openEngine("")
	if err != nil {
		return outputError("check-lazy", err)
	}
	defer e.Close()

	if err := e.CheckLazy(cmd.Context(), args[0], args[1]); err != nil {
		return outputError("check-lazy", err)
	}
	return outputResult(CLIResult{
		Command: "check-lazy",
		Results: map[string]any{
			"strategy":   e.Config().Strategy().String(),
			"equivalent": true,
		},
	})
}

func runPatch(cmd *cobra.Command, args []string) error {
	patch, err := readPatch(args, cmd.InOrStdin())
	if err != nil {
		return outputError("patch", err)
	}
	root, err := filepath.Abs(flagRoot)
	if err != nil {
		return outputError("patch", fmt.Errorf("resolving root %q: %w", flagRoot, err))
	}

	e, err := openEngine(flagScript)
	if err != nil {
		return outputError("patch", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	reports, err := e.DiffPatch(ctx, root, patch)
	if err != nil {
		return outputError("patch", err)
	}
	return outputDiffs(ctx, "patch", e, reports)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// readPatch reads the patch named by args, or stdin for no argument or "-".
func readPatch(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading patch from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading patch: %w", err)
	}
	return data, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	var opts []arbor.Option
	if flagJobs > 0 {
		opts = append(opts, arbor.WithParallelism(flagJobs))
	}
	e, err := openEngine(flagScript, opts...)
	if err != nil {
		return outputError("batch", err)
	}
	defer e.Close()

	srcDir, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("batch", err)
	}
	dstDir, err := resolveFilePath(args[1])
	if err != nil {
		return outputError("batch", err)
	}
	pairs, err := pairFiles(e, srcDir, dstDir)
	if err != nil {
		return outputError("batch", err)
	}

	ctx := cmd.Context()
	reports, err := e.DiffPairs(ctx, pairs)
	if err != nil {
		return outputError("batch", err)
	}
	return outputDiffs(ctx, "batch", e, reports)
}

// pairFiles pairs each supported file under srcDir with the file at the
// same relative path under dstDir, in walk order.
func pairFiles(e *arbor.Engine, srcDir, dstDir string) ([]arbor.Pair, error) {
	var pairs []arbor.Pair
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != srcDir && d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.Language(path); !ok {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstDir, rel)
		if info, err := os.Stat(dst); err != nil || !info.Mode().IsRegular() {
			return nil
		}
		pairs = append(pairs, arbor.Pair{Src: path, Dst: dst})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", srcDir, err)
	}
	return pairs, nil
}

func outputDiffs(ctx context.Context, command string, e *arbor.Engine, reports []*arbor.Report) error {
	diffs := make([]CLIDiff, 0, len(reports))
	for _, rep := range reports {
		d, err := diffResult(ctx, e, rep)
		if err != nil {
			return outputError(command, err)
		}
		diffs = append(diffs, d)
	}
	total := len(diffs)
	return outputResult(CLIResult{
		Command:    command,
		Results:    diffs,
		TotalCount: &total,
	})
}

// diffResult converts rep and runs the --script over it.
func diffResult(ctx context.Context, e *arbor.Engine, rep *arbor.Report) (CLIDiff, error) {
	d := reportToCLI(rep)
	if flagScript == "" {
		return d, nil
	}
	v, err := e.ScriptValue(ctx, scriptName(flagScript), rep)
	if err != nil {
		return d, fmt.Errorf("running script: %w", err)
	}
	d.Script = v
	return d, nil
}

// reportToCLI converts an arbor.Report to a CLIDiff.
func reportToCLI(rep *arbor.Report) CLIDiff {
	res := rep.Result
	d := CLIDiff{
		RunID:    rep.RunID,
		Src:      rep.SrcPath,
		Dst:      rep.DstPath,
		Language: rep.Language,
		Strategy: res.Strategy.String(),
		SrcSize:  res.Src.Len(),
		DstSize:  res.Dst.Len(),
		Mappings: res.Mappings.Len(),
		Counts:   countsFrom(rep.Counts()),
		TotalMS:  ms(res.Total),
		Actions:  actionsToCLI(rep.Script()),
	}
	if rep.SrcVersion != 0 {
		d.SrcVersion = &rep.SrcVersion
	}
	if rep.DstVersion != 0 {
		d.DstVersion = &rep.DstVersion
	}
	return d
}

func countsFrom(c map[arbor.Kind]int) CLICounts {
	return CLICounts{
		Inserts: c[arbor.Insert],
		Deletes: c[arbor.Delete],
		Updates: c[arbor.Update],
		Moves:   c[arbor.Move],
	}
}

func actionsToCLI(script []arbor.Action) []CLIAction {
	out := make([]CLIAction, 0, len(script))
	for _, a := range script {
		out = append(out, actionToCLI(a))
	}
	return out
}

// actionToCLI converts an edit action, keeping only the fields its kind
// carries.
func actionToCLI(a arbor.Action) CLIAction {
	c := CLIAction{
		Kind:   a.Kind.String(),
		Path:   a.Path.String(),
		Origin: a.Origin.String(),
		Type:   a.Type,
		Text:   a.String(),
	}
	switch a.Kind {
	case arbor.Insert, arbor.Move:
		parent := a.Parent.String()
		index := a.Index
		c.Parent = &parent
		c.Index = &index
	case arbor.Update:
		old := a.OldLabel
		c.OldType = a.OldType
		c.OldLabel = &old
	}
	if a.HasLabel {
		label := a.Label
		c.Label = &label
	}
	return c
}
