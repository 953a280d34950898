package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/distill/internal/logger"
	"github.com/harrison/distill/internal/pipeline"
	"github.com/harrison/distill/internal/sidecar"
	"github.com/harrison/distill/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Process pending documents, then keep watching for new ones",
		Long: `Watch starts with the same sweep as run, then stays in the foreground
and processes documents as they appear under the directory tree. A
document being copied in is picked up once it has stopped changing.

The companion-file gate applies to every event, so a document that
already has a companion is never reprocessed. Stop with Ctrl-C.

Examples:
  distill watch                    Watch the current directory
  distill watch ~/inbox            Watch a drop folder
  distill watch --debounce 2s      Wait longer for slow copies to settle`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchCommand,
	}

	cmd.Flags().StringP("config", "c", "", "Path to config file (default .distill/config.yaml)")
	cmd.Flags().String("command", "", "External extraction tool to invoke")
	cmd.Flags().String("doc-ext", "", "Document extension to discover (e.g. .pdf)")
	cmd.Flags().String("sidecar-ext", "", "Companion-file extension (e.g. .json)")
	cmd.Flags().String("timeout", "", "Maximum time per document (e.g. 90s, 5m; 0 = unlimited)")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().String("prompt-file", "", "Markdown file overriding the built-in instructions")
	cmd.Flags().String("debounce", "", "Quiet period before a changed document is processed (e.g. 500ms)")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.Flags().Bool("no-journal", false, "Skip recording the initial sweep in the history journal")

	return cmd
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadMergedConfig(cmd)
	if err != nil {
		return err
	}

	debounce := time.Duration(0)
	if cmd.Flags().Changed("debounce") {
		raw, _ := cmd.Flags().GetString("debounce")
		d, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return fmt.Errorf("invalid debounce format %q: %w", raw, parseErr)
		}
		debounce = d
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

	// Clear the backlog first so watching starts from a settled tree.
	summary, runErr := orch.Run(ctx, root)

	noJournal, _ := cmd.Flags().GetBool("no-journal")
	if summary != nil && cfg.Journal.Enabled && !noJournal {
		recordRun(cfg, summary, log)
	}
	if runErr != nil {
		return runErr
	}

	w, err := watch.NewWatcher(root, watch.Options{
		Extension:     cfg.DocExt,
		ExcludeDirs:   cfg.ExcludeDirs,
		DebounceDelay: debounce,
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	log.LogInfo(fmt.Sprintf("watching %s for new %s documents (Ctrl-C to stop)", w.Root(), cfg.DocExt))

	processed := 0
	for {
		select {
		case <-ctx.Done():
			log.LogInfo(fmt.Sprintf("watch stopped after processing %d documents", processed))
			if fileLog != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nRun log: %s\n", fileLog.RunFile())
			}
			return nil
		case watchErr := <-w.Errors():
			log.LogWarn(fmt.Sprintf("watcher error: %v", watchErr))
		case event := <-w.Events():
			// The gate holds in watch mode too: a companion may have
			// appeared since the event fired.
			if sidecar.Exists(sidecar.Path(event.Path, cfg.SidecarExt)) {
				log.LogInfo(fmt.Sprintf("skipping %s: companion already present", event.Path))
				continue
			}
			runner.Run(ctx, event.Path)
			processed++
		}
	}
}
