package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/distill/internal/config"
	"github.com/harrison/distill/internal/extract"
	"github.com/harrison/distill/internal/filelock"
	"github.com/harrison/distill/internal/journal"
	"github.com/harrison/distill/internal/logger"
	"github.com/harrison/distill/internal/pipeline"
)

// multiLogger fans every log call out to all destinations, typically the
// console and the run log file.
type multiLogger struct {
	loggers []pipeline.Logger
}

func (m *multiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *multiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *multiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *multiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *multiLogger) LogSummary(total, skipped, succeeded, failed, errored int, duration time.Duration) {
	for _, l := range m.loggers {
		l.LogSummary(total, skipped, succeeded, failed, errored, duration)
	}
}

func (m *multiLogger) LogProgress(done, total int) {
	for _, l := range m.loggers {
		l.LogProgress(done, total)
	}
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [directory]",
		Short: "Process pending documents under a directory tree",
		Long: `Run discovers documents under the given directory (default "."), skips
the ones whose companion file already exists, and drives the extraction
tool over the rest, one document at a time.

A document the tool rejects is reported and left without a companion;
the run carries on with the remaining documents and still finishes with
exit status 0. Only a setup problem or an unreadable directory tree
fails the command itself.

Examples:
  distill run                        Process the current directory
  distill run ~/contracts            Process a specific tree
  distill run --timeout 5m           Give up on any one document after 5 minutes
  distill run --command mytool       Drive a different extraction tool
  distill run --prompt-file p.md     Use custom extraction instructions`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file (default .distill/config.yaml)")
	cmd.Flags().String("command", "", "External extraction tool to invoke")
	cmd.Flags().String("doc-ext", "", "Document extension to discover (e.g. .pdf)")
	cmd.Flags().String("sidecar-ext", "", "Companion-file extension (e.g. .json)")
	cmd.Flags().String("timeout", "", "Maximum time per document (e.g. 90s, 5m; 0 = unlimited)")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().String("prompt-file", "", "Markdown file overriding the built-in instructions")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.Flags().Bool("no-journal", false, "Skip recording this run in the history journal")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	logLevel := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logLevel = "debug"
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), logLevel)
	var log pipeline.Logger = consoleLog

	fileLog, fileErr := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, logLevel)
	if fileErr != nil {
		consoleLog.LogWarn(fmt.Sprintf("file logging disabled: %v", fileErr))
	} else {
		defer fileLog.Close()
		log = &multiLogger{loggers: []pipeline.Logger{consoleLog, fileLog}}
	}

	unlock, err := acquireRunLock()
	if err != nil {
		return err
	}
	defer unlock()

	runner, err := buildRunner(cfg, log)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(runner, pipeline.Options{
		DocExt:      cfg.DocExt,
		SidecarExt:  cfg.SidecarExt,
		ExcludeDirs: cfg.ExcludeDirs,
	}, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := orch.Run(ctx, root)

	noJournal, _ := cmd.Flags().GetBool("no-journal")
	if summary != nil && cfg.Journal.Enabled && !noJournal {
		recordRun(cfg, summary, log)
	}

	if runErr != nil {
		return runErr
	}

	if fileLog != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nRun log: %s\n", fileLog.RunFile())
	}

	return nil
}

// loadMergedConfig loads the configuration and overlays any flags the user
// set on this invocation. It works for every subcommand: flags a command
// does not define simply never report as changed.
func loadMergedConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var commandPtr, docExtPtr, sidecarExtPtr, logDirPtr, promptFilePtr *string
	var timeoutPtr *time.Duration

	if cmd.Flags().Changed("command") {
		v, _ := cmd.Flags().GetString("command")
		commandPtr = &v
	}
	if cmd.Flags().Changed("doc-ext") {
		v, _ := cmd.Flags().GetString("doc-ext")
		docExtPtr = &v
	}
	if cmd.Flags().Changed("sidecar-ext") {
		v, _ := cmd.Flags().GetString("sidecar-ext")
		sidecarExtPtr = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}
	if cmd.Flags().Changed("prompt-file") {
		v, _ := cmd.Flags().GetString("prompt-file")
		promptFilePtr = &v
	}
	if cmd.Flags().Changed("timeout") {
		raw, _ := cmd.Flags().GetString("timeout")
		d, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", raw, parseErr)
		}
		timeoutPtr = &d
	}

	cfg.MergeWithFlags(commandPtr, docExtPtr, sidecarExtPtr, timeoutPtr, logDirPtr, promptFilePtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// acquireRunLock takes the single-instance lock and returns its release
// function. A held lock means another distill process is mid-run.
func acquireRunLock() (func(), error) {
	lockPath, err := config.GetRunLockPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve lock path: %w", err)
	}

	lock := filelock.NewFileLock(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another distill instance is already running (lock held at %s)", lock.Path())
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to release run lock: %v\n", err)
		}
	}, nil
}

// buildRunner assembles the extraction pipeline from configuration.
func buildRunner(cfg *config.Config, log pipeline.Logger) (*extract.JobRunner, error) {
	instructions := extract.DefaultInstructions
	schemaJSON := extract.DefaultSchema

	if cfg.PromptFile != "" {
		loaded, fence, err := extract.LoadPromptFile(cfg.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt file: %w", err)
		}
		instructions = loaded
		// A custom prompt describes its own output shape. Only a schema
		// fenced inside it knows that shape; the built-in one does not.
		schemaJSON = fence
	}

	adapter := extract.NewAdapter()
	adapter.Command = cfg.Command
	adapter.QuietFlag = cfg.QuietFlag
	adapter.Instructions = instructions
	adapter.Timeout = cfg.Timeout
	adapter.Logger = log

	if schemaJSON != "" {
		schema, err := extract.CompileSchema(schemaJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to compile output schema: %w", err)
		}
		adapter.Schema = schema
	}

	return extract.NewJobRunner(adapter, cfg.SidecarExt, log), nil
}

// recordRun appends the run summary to the history journal. Journal
// problems never fail a run that already finished its real work.
func recordRun(cfg *config.Config, summary *pipeline.Summary, log pipeline.Logger) {
	dbPath := cfg.Journal.DBPath
	if dbPath == "" {
		resolved, err := config.GetJournalDBPath()
		if err != nil {
			log.LogWarn(fmt.Sprintf("journal disabled for this run: %v", err))
			return
		}
		dbPath = resolved
	}

	store, err := journal.NewStore(dbPath)
	if err != nil {
		log.LogWarn(fmt.Sprintf("journal disabled for this run: %v", err))
		return
	}
	defer store.Close()

	// The run context may already be canceled after an interruption; the
	// journal write still has to land.
	ctx := context.Background()

	run := &journal.Run{
		RunID:     summary.RunID,
		Root:      summary.Root,
		StartedAt: summary.StartedAt,
		Duration:  summary.Duration,
		Total:     summary.Total,
		Skipped:   summary.Skipped,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Errored:   summary.Errored,
	}
	if err := store.RecordRun(ctx, run); err != nil {
		log.LogWarn(fmt.Sprintf("failed to record run in journal: %v", err))
		return
	}

	if _, err := store.Prune(ctx, cfg.Journal.KeepRuns); err != nil {
		log.LogWarn(fmt.Sprintf("failed to prune journal: %v", err))
	}
}
