// Package pipeline sequences one run: discovery, idempotency gating, and one
// extraction job per pending document, first to last.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/distill/internal/discover"
	"github.com/harrison/distill/internal/extract"
	"github.com/harrison/distill/internal/logger"
	"github.com/harrison/distill/internal/sidecar"
)

// Logger defines the interface for logging run progress and results.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSummary(total, skipped, succeeded, failed, errored int, duration time.Duration)
	LogProgress(done, total int)
}

// Runner drives a single document to a terminal outcome.
type Runner interface {
	Run(ctx context.Context, doc string) extract.JobResult
}

// Options configures an Orchestrator.
type Options struct {
	// DocExt is the document extension to discover.
	DocExt string
	// SidecarExt is the companion-file extension.
	SidecarExt string
	// ExcludeDirs lists directory names never descended during discovery.
	ExcludeDirs []string
}

// Summary aggregates the outcomes of one run.
type Summary struct {
	// RunID uniquely identifies the run in logs and the journal.
	RunID string
	// Root is the directory tree the run covered.
	Root string
	// StartedAt is when the run began.
	StartedAt time.Time
	// Total is the number of discovered candidate documents.
	Total int
	// Skipped counts documents whose companion already existed.
	Skipped int
	// Succeeded counts documents whose companion was written this run.
	Succeeded int
	// Failed counts documents the tool rejected with a non-zero exit.
	Failed int
	// Errored counts documents whose job could not reach a verdict.
	Errored int
	// Duration is the wall-clock time of the whole run.
	Duration time.Duration
	// Results holds one entry per candidate, in processing order.
	Results []extract.JobResult
}

// Orchestrator coordinates a run over one directory tree. Documents are
// processed strictly one at a time, and a bad document never stops the rest.
type Orchestrator struct {
	runner      Runner
	docExt      string
	sidecarExt  string
	excludeDirs []string
	logger      Logger
}

// NewOrchestrator creates an Orchestrator.
// The log parameter is optional and can be nil.
func NewOrchestrator(runner Runner, opts Options, log Logger) *Orchestrator {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	docExt := opts.DocExt
	if docExt == "" {
		docExt = ".pdf"
	}
	sidecarExt := opts.SidecarExt
	if sidecarExt == "" {
		sidecarExt = ".json"
	}

	return &Orchestrator{
		runner:      runner,
		docExt:      docExt,
		sidecarExt:  sidecarExt,
		excludeDirs: opts.ExcludeDirs,
		logger:      log,
	}
}

// Run performs one complete pass over root. Per-document failures are
// recorded in the Summary and logged, never escalated; the returned error is
// non-nil only for a fault that prevents the run itself (inaccessible root)
// or an interruption via ctx.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Summary, error) {
	started := time.Now()
	summary := &Summary{
		RunID:     uuid.New().String(),
		Root:      root,
		StartedAt: started,
	}

	o.logger.LogInfo(fmt.Sprintf("run %s: discovering %s documents under %s", summary.RunID, o.docExt, root))

	discovered, err := discover.Scan(root, discover.Options{
		Extension:   o.docExt,
		ExcludeDirs: o.excludeDirs,
		Logger:      o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	summary.Total = discovered.Count()
	o.logger.LogInfo(fmt.Sprintf("discovered %d candidate documents in %s",
		summary.Total, discovered.Elapsed.Round(time.Millisecond)))

	if summary.Total == 0 {
		o.logger.LogWarn("no candidate documents found, nothing to do")
		summary.Duration = time.Since(started)
		o.logger.LogSummary(0, 0, 0, 0, 0, summary.Duration)
		return summary, nil
	}

	for i, doc := range discovered.Candidates {
		// Stop between documents on interruption; the in-flight job has
		// already reached its own terminal outcome
		select {
		case <-ctx.Done():
			o.logger.LogWarn(fmt.Sprintf("run interrupted after %d of %d documents", i, summary.Total))
			summary.Duration = time.Since(started)
			return summary, ctx.Err()
		default:
		}

		companion := sidecar.Path(doc, o.sidecarExt)
		if sidecar.Exists(companion) {
			o.logger.LogInfo(fmt.Sprintf("skipping %s: companion already present", doc))
			summary.Skipped++
			summary.Results = append(summary.Results, extract.JobResult{
				Document:  doc,
				Companion: companion,
				Outcome:   extract.OutcomeSkipped,
			})
			o.logger.LogProgress(i+1, summary.Total)
			continue
		}

		result := o.runner.Run(ctx, doc)
		switch result.Outcome {
		case extract.OutcomeSucceeded:
			summary.Succeeded++
		case extract.OutcomeFailed:
			summary.Failed++
		default:
			summary.Errored++
		}
		summary.Results = append(summary.Results, result)
		o.logger.LogProgress(i+1, summary.Total)
	}

	summary.Duration = time.Since(started)
	o.logger.LogInfo("processing complete")
	o.logger.LogSummary(summary.Total, summary.Skipped, summary.Succeeded,
		summary.Failed, summary.Errored, summary.Duration)

	return summary, nil
}
