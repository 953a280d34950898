package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// NewRootCommand creates the root distill command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "distill",
		Short: "Batch document extraction via an external tool",
		Long: `Distill walks a directory tree for documents, drives an external
extraction tool over each one, and captures the tool's output as a JSON
companion file next to the document.

Documents that already have a companion file are skipped, so repeated
runs only process what is new. A failed document never stops the run;
distill reports it and moves on to the next one.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	rootCmd.AddCommand(NewRunCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewHistoryCommand())

	return rootCmd
}
