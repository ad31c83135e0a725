package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// formatDiffText formats a CLIDiff as a header, a counts line and one
// line per action.
func formatDiffText(w io.Writer, d CLIDiff) {
	if d.Src != "" || d.Dst != "" {
		fmt.Fprintf(w, "%s -> %s (%s)\n", d.Src, d.Dst, d.Language)
	}
	fmt.Fprintf(w, "run %s  strategy %s  nodes %d/%d  mapped %d  %.2fms\n",
		d.RunID, d.Strategy, d.SrcSize, d.DstSize, d.Mappings, d.TotalMS)
	fmt.Fprintf(w, "%d inserts, %d deletes, %d updates, %d moves\n",
		d.Counts.Inserts, d.Counts.Deletes, d.Counts.Updates, d.Counts.Moves)
	formatActionsText(w, d.Actions)
	if d.Script != nil {
		fmt.Fprintf(w, "script: %v\n", d.Script)
	}
}

// formatActionsText formats actions one per line, indented.
func formatActionsText(w io.Writer, acts []CLIAction) {
	for _, a := range acts {
		fmt.Fprintf(w, "  %s\n", a.Text)
	}
}

// formatRunsText formats CLIRun results as aligned columns.
func formatRunsText(w io.Writer, runs []CLIRun) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTRATEGY\tNODES\tMAPPED\tACTIONS\tTOTAL\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d\t%d\t%.2fms\t%s\n",
			r.ID, r.Strategy, r.SrcSize, r.DstSize, r.Mappings, r.Counts.Total(), r.TotalMS,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

// formatRunDetailText formats a run, its phase timings and its script.
func formatRunDetailText(w io.Writer, r CLIRunDetail) {
	fmt.Fprintf(w, "Run: %s\n", r.ID)
	fmt.Fprintf(w, "Strategy: %s\n", r.Strategy)
	if r.SrcVersion != nil && r.DstVersion != nil {
		fmt.Fprintf(w, "Versions: %d -> %d\n", *r.SrcVersion, *r.DstVersion)
	}
	fmt.Fprintf(w, "Nodes: %d/%d, %d mapped\n", r.SrcSize, r.DstSize, r.Mappings)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Phases:")
	phases := make([]string, 0, len(r.PhasesMS))
	for p := range r.PhasesMS {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	for _, p := range phases {
		fmt.Fprintf(w, "  %s: %.2fms\n", p, r.PhasesMS[p])
	}
	fmt.Fprintf(w, "  total: %.2fms\n", r.TotalMS)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Actions (%d):\n", len(r.Actions))
	formatActionsText(w, r.Actions)
}

// formatVersionsText formats CLIVersion results as aligned columns.
func formatVersionsText(w io.Writer, versions []CLIVersion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTAG\tHASH\tROOT\tCREATED")
	for _, v := range versions {
		hash := v.SourceHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			v.ID, v.Tag, hash, v.RootNodeID, v.CreatedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}

// formatStrategiesText formats CLIStrategy results as aligned columns.
func formatStrategiesText(w io.Writer, strategies []CLIStrategy) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCORER\tLAZY\tSTABLE\tHYBRID")
	for _, s := range strategies {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%t\n", s.Name, s.Scorer, s.Lazy, s.Stable, s.Hybrid)
	}
	tw.Flush()
}

// formatMapText formats a flat map as sorted "key: value" lines.
func formatMapText(w io.Writer, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %v\n", k, m[k])
	}
}

// outputResultText renders a CLIResult in human-readable text format.
func outputResultText(result CLIResult) error {
	return writeResultText(os.Stdout, result)
}

func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIDiff:
		formatDiffText(w, v)
	case []CLIDiff:
		for i, d := range v {
			if i > 0 {
				fmt.Fprintln(w)
			}
			formatDiffText(w, d)
		}
	case []CLIRun:
		formatRunsText(w, v)
	case CLIRunDetail:
		formatRunDetailText(w, v)
	case []CLIVersion:
		formatVersionsText(w, v)
	case CLITree:
		fmt.Fprintln(w, v.Tree)
	case []CLIStrategy:
		formatStrategiesText(w, v)
	case map[string]any:
		formatMapText(w, v)
	case nil:
		// No output for nil results.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
