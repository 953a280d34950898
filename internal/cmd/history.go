package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/distill/internal/config"
	"github.com/harrison/distill/internal/journal"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Long: `History lists the most recent runs recorded in the journal, newest
first, with the outcome counts of each run.

The journal is a record, not a gate: whether a document is processed
is decided only by the companion files on disk.

Examples:
  distill history              Show the last 20 runs
  distill history --limit 5    Show the last 5 runs`,
		Args: cobra.NoArgs,
		RunE: runHistoryCommand,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file (default .distill/config.yaml)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	return cmd
}

func runHistoryCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")

	dbPath := cfg.Journal.DBPath
	if dbPath == "" {
		dbPath, err = config.GetJournalDBPath()
		if err != nil {
			return fmt.Errorf("failed to resolve journal path: %w", err)
		}
	}

	out := cmd.OutOrStdout()

	// Reading history must not create an empty database.
	if _, statErr := os.Stat(dbPath); os.IsNotExist(statErr) {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintf(out, "Journal path: %s\n", dbPath)
		return nil
	}

	store, err := journal.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	colorOutput := isatty.IsTerminal(os.Stdout.Fd())

	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(out, "Run history (%d most recent)\n\n", len(runs))

	for _, line := range formatRuns(runs, colorOutput) {
		fmt.Fprintln(out, line)
	}

	return nil
}

// formatRuns renders runs as an aligned table, one line per run. Rows are
// colored by outcome: red when anything errored, yellow when the tool
// rejected documents, green otherwise.
func formatRuns(runs []*journal.Run, colorOutput bool) []string {
	widths := map[string]int{
		"started":  len("STARTED"),
		"run":      len("RUN"),
		"root":     len("ROOT"),
		"total":    len("TOTAL"),
		"skip":     len("SKIP"),
		"ok":       len("OK"),
		"fail":     len("FAIL"),
		"err":      len("ERR"),
		"duration": len("DURATION"),
	}

	type tableRow struct {
		started, runID, root        string
		total, skip, ok, fail, errs string
		duration                    string
		hasFailures, hasErrors      bool
	}

	rows := make([]tableRow, 0, len(runs))
	for _, r := range runs {
		row := tableRow{
			started:     r.StartedAt.Format("2006-01-02 15:04:05"),
			runID:       shortRunID(r.RunID),
			root:        r.Root,
			total:       strconv.Itoa(r.Total),
			skip:        strconv.Itoa(r.Skipped),
			ok:          strconv.Itoa(r.Succeeded),
			fail:        strconv.Itoa(r.Failed),
			errs:        strconv.Itoa(r.Errored),
			duration:    r.Duration.Round(time.Millisecond).String(),
			hasFailures: r.Failed > 0,
			hasErrors:   r.Errored > 0,
		}

		if len(row.started) > widths["started"] {
			widths["started"] = len(row.started)
		}
		if len(row.runID) > widths["run"] {
			widths["run"] = len(row.runID)
		}
		if len(row.root) > widths["root"] {
			widths["root"] = len(row.root)
		}
		if len(row.total) > widths["total"] {
			widths["total"] = len(row.total)
		}
		if len(row.skip) > widths["skip"] {
			widths["skip"] = len(row.skip)
		}
		if len(row.ok) > widths["ok"] {
			widths["ok"] = len(row.ok)
		}
		if len(row.fail) > widths["fail"] {
			widths["fail"] = len(row.fail)
		}
		if len(row.errs) > widths["err"] {
			widths["err"] = len(row.errs)
		}
		if len(row.duration) > widths["duration"] {
			widths["duration"] = len(row.duration)
		}

		rows = append(rows, row)
	}

	format := fmt.Sprintf("%%-%ds  %%-%ds  %%-%ds  %%-%ds  %%-%ds  %%-%ds  %%-%ds  %%-%ds  %%-%ds",
		widths["started"], widths["run"], widths["root"], widths["total"],
		widths["skip"], widths["ok"], widths["fail"], widths["err"], widths["duration"])

	lines := make([]string, 0, len(rows)+2)
	header := fmt.Sprintf(format, "STARTED", "RUN", "ROOT", "TOTAL", "SKIP", "OK", "FAIL", "ERR", "DURATION")
	lines = append(lines, header)
	lines = append(lines, strings.Repeat("-", len(header)))

	for _, row := range rows {
		line := fmt.Sprintf(format, row.started, row.runID, row.root, row.total,
			row.skip, row.ok, row.fail, row.errs, row.duration)
		if colorOutput {
			switch {
			case row.hasErrors:
				line = color.RedString(line)
			case row.hasFailures:
				line = color.YellowString(line)
			default:
				line = color.GreenString(line)
			}
		}
		lines = append(lines, line)
	}

	return lines
}

// shortRunID trims a UUID to its first block for display.
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
