package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var flagLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded diff runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run and its edit script",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var versionsCmd = &cobra.Command{
	Use:   "versions <file>",
	Short: "List the recorded versions of a file, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

var treeCmd = &cobra.Command{
	Use:   "tree <version-id>",
	Short: "Print a recorded version's syntax tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the diff strategies",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

func init() {
	runsCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum runs to list (0 for all)")
}

func runRuns(cmd *cobra.Command, args []string) error {
	e, err := openEngine("")
	if err != nil {
		return outputError("runs", err)
	}
	defer e.Close()

	runs, err := e.Runs(flagLimit)
	if err != nil {
		return outputError("runs", err)
	}
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, runToCLI(r))
	}
	total := len(out)
	return outputResult(CLIResult{
		Command:    "runs",
		Results:    out,
		TotalCount: &total,
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := openEngine("")
	if err != nil {
		return outputError("show", err)
	}
	defer e.Close()

	run, script, err := e.Run(args[0])
	if err != nil {
		return outputError("show", err)
	}
	one := 1
	return outputResult(CLIResult{
		Command: "show",
		Results: CLIRunDetail{
			CLIRun:  runToCLI(run),
			Actions: actionsToCLI(script),
		},
		TotalCount: &one,
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := openEngine("")
	if err != nil {
		return outputError("delete", err)
	}
	defer e.Close()

	if err := e.DeleteRun(args[0]); err != nil {
		return outputError("delete", err)
	}
	return outputResult(CLIResult{
		Command: "delete",
		Results: map[string]any{"id": args[0], "deleted": true},
	})
}

func runVersions(cmd *cobra.Command, args []string) error {
	e, err := openEngine("")
	if err != nil {
		return outputError("versions", err)
	}
	defer e.Close()

	// patch records repository-relative paths, diff and batch absolute ones.
	versions, err := e.Versions(args[0])
	if err != nil {
		return outputError("versions", err)
	}
	if len(versions) == 0 {
		abs, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("versions", err)
		}
		if versions, err = e.Versions(abs); err != nil {
			return outputError("versions", err)
		}
	}
	out := make([]CLIVersion, 0, len(versions))
	for _, v := range versions {
		out = append(out, CLIVersion{
			ID:         v.ID,
			Tag:        v.Tag,
			SourceHash: v.SourceHash,
			RootNodeID: v.RootNodeID,
			CreatedAt:  v.CreatedAt,
		})
	}
	total := len(out)
	return outputResult(CLIResult{
		Command:    "versions",
		Results:    out,
		TotalCount: &total,
	})
}

func runTree(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return outputError("tree", fmt.Errorf("invalid version id %q: must be a positive integer", args[0]))
	}

	e, err := openEngine("")
	if err != nil {
		return outputError("tree", err)
	}
	defer e.Close()

	tree, err := e.VersionTree(id)
	if err != nil {
		return outputError("tree", err)
	}
	return outputResult(CLIResult{
		Command: "tree",
		Results: CLITree{Version: id, Tree: tree},
	})
}

func runStrategies(cmd *cobra.Command, args []string) error {
	strategies := arbor.Strategies()
	out := make([]CLIStrategy, 0, len(strategies))
	for _, s := range strategies {
		cfg := s.Config()
		out = append(out, CLIStrategy{
			Name:   s.String(),
			Lazy:   cfg.Lazy,
			Stable: cfg.Stable,
			Hybrid: cfg.Hybrid,
			Scorer: cfg.Scorer.String(),
		})
	}
	total := len(out)
	return outputResult(CLIResult{
		Command:    "strategies",
		Results:    out,
		TotalCount: &total,
	})
}

// runToCLI converts a recorded run to a CLIRun.
func runToCLI(r *arbor.DiffRun) CLIRun {
	return CLIRun{
		ID:         r.ID,
		Strategy:   r.Strategy,
		SrcVersion: r.SrcVersionID,
		DstVersion: r.DstVersionID,
		SrcSize:    r.SrcSize,
		DstSize:    r.DstSize,
		Mappings:   r.Mappings,
		Counts: CLICounts{
			Inserts: r.Inserts,
			Deletes: r.Deletes,
			Updates: r.Updates,
			Moves:   r.Moves,
		},
		PhasesMS: map[string]float64{
			"prepare":   ms(r.Prepare),
			"subtree":   ms(r.Subtree),
			"bottom_up": ms(r.BottomUp),
			"script":    ms(r.Script),
		},
		TotalMS:   ms(r.Total),
		CreatedAt: r.CreatedAt,
	}
}

// ms converts a duration to fractional milliseconds.
func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
