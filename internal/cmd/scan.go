package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/distill/internal/discover"
	"github.com/harrison/distill/internal/sidecar"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "List candidate documents and their companion status",
		Long: `Scan walks the directory tree the same way run does and reports every
candidate document it finds, marking which ones already have a companion
file (done) and which ones a run would process (pending). Nothing is
executed and nothing on disk changes.

Examples:
  distill scan                 List all candidates under the current directory
  distill scan ~/contracts     List candidates under a specific tree
  distill scan --pending       Show only the documents a run would process`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScanCommand,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file (default .distill/config.yaml)")
	cmd.Flags().String("doc-ext", "", "Document extension to discover (e.g. .pdf)")
	cmd.Flags().String("sidecar-ext", "", "Companion-file extension (e.g. .json)")
	cmd.Flags().Bool("pending", false, "Show only documents without a companion file")

	return cmd
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	result, err := discover.Scan(root, discover.Options{
		Extension:   cfg.DocExt,
		ExcludeDirs: cfg.ExcludeDirs,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()

	if result.Count() == 0 {
		fmt.Fprintf(out, "No %s documents found under %s\n", cfg.DocExt, root)
		return nil
	}

	pendingOnly, _ := cmd.Flags().GetBool("pending")
	colorOutput := isatty.IsTerminal(os.Stdout.Fd())

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(out, "Documents under %s\n\n", root)

	pending := 0
	shown := 0
	for _, doc := range result.Candidates {
		hasCompanion := sidecar.Exists(sidecar.Path(doc, cfg.SidecarExt))
		if !hasCompanion {
			pending++
		}
		if pendingOnly && hasCompanion {
			continue
		}
		shown++

		display := doc
		if rel, relErr := filepath.Rel(root, doc); relErr == nil {
			display = rel
		}

		status := "pending"
		if hasCompanion {
			status = "done"
		}
		line := fmt.Sprintf("  %-7s  %s", status, display)
		if colorOutput {
			if hasCompanion {
				line = color.GreenString(line)
			} else {
				line = color.YellowString(line)
			}
		}
		fmt.Fprintln(out, line)
	}

	if pendingOnly && shown == 0 {
		fmt.Fprintln(out, "  (no pending documents)")
	}

	fmt.Fprintf(out, "\n%d documents: %d pending, %d done\n",
		result.Count(), pending, result.Count()-pending)

	return nil
}
