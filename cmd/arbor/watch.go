package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/arbor"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Diff a file against its previous contents each time it is saved",
	Long:  "Watches a file and prints one diff result per change until interrupted. Every revision is recorded as a version of the file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagScript, "script", "", "Risor script to run over each diff: a file path or an embedded script name (renames, churn, moves)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := resolveFilePath(args[0])
	if err != nil {
		return outputError("watch", err)
	}
	e, err := openEngine(flagScript)
	if err != nil {
		return outputError("watch", err)
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = e.Watch(ctx, path, func(rep *arbor.Report) error {
		d, err := diffResult(ctx, e, rep)
		if err != nil {
			return err
		}
		one := 1
		return outputResult(CLIResult{
			Command:    "watch",
			Results:    d,
			TotalCount: &one,
		})
	})
	if err != nil {
		return outputError("watch", err)
	}
	return nil
}
