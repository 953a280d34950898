package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/distill/internal/logger"
	"github.com/harrison/distill/internal/sidecar"
)

// Outcome is the terminal classification of one document's processing attempt.
type Outcome string

const (
	// OutcomeSkipped means the companion file already existed.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeSucceeded means the tool exited zero and the companion was written.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed means the tool exited non-zero; no companion remains.
	OutcomeFailed Outcome = "failed"
	// OutcomeErrored means the job could not run to a verdict (spawn or
	// I/O failure); it never aborts the surrounding run.
	OutcomeErrored Outcome = "errored"
)

// JobResult records the terminal state of one document job.
type JobResult struct {
	// Document is the absolute path of the processed document.
	Document string

	// Companion is the derived output path for the document.
	Companion string

	// Outcome classifies how the job ended.
	Outcome Outcome

	// ExitCode is the tool's exit status; meaningful for Succeeded and Failed.
	ExitCode int

	// Duration is the wall-clock time of the extraction round-trip.
	Duration time.Duration

	// Err carries the failure when Outcome is Errored.
	Err error
}

// JobRunner drives one complete job per document: extraction, then
// write-or-cleanup of the companion file according to the exit status.
type JobRunner struct {
	extractor  Extractor
	sidecarExt string
	logger     Logger
}

// NewJobRunner creates a JobRunner.
// The log parameter is optional and can be nil.
func NewJobRunner(extractor Extractor, sidecarExt string, log Logger) *JobRunner {
	if extractor == nil {
		panic("extractor cannot be nil")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &JobRunner{
		extractor:  extractor,
		sidecarExt: sidecarExt,
		logger:     log,
	}
}

// Run processes a single document to a terminal outcome. It never returns an
// error: failures are folded into the JobResult so a batch can keep going.
func (r *JobRunner) Run(ctx context.Context, doc string) JobResult {
	companion := sidecar.Path(doc, r.sidecarExt)
	result := JobResult{
		Document:  doc,
		Companion: companion,
	}

	r.logger.LogInfo(fmt.Sprintf("extracting: %s", doc))

	res, err := r.extractor.Extract(ctx, doc)
	if err != nil {
		result.Outcome = OutcomeErrored
		result.Err = err
		r.logger.LogError(fmt.Sprintf("extraction errored for %s: %v", doc, err))
		return result
	}

	result.ExitCode = res.ExitCode
	result.Duration = res.Duration

	if res.ExitCode != 0 {
		result.Outcome = OutcomeFailed
		r.logger.LogError(fmt.Sprintf("extraction failed for %s (exit %d)", doc, res.ExitCode))

		// A partial companion can be left over from a prior interrupted
		// run; clear it so a failed document never looks done
		if err := sidecar.Remove(companion); err != nil {
			r.logger.LogWarn(fmt.Sprintf("failed to remove companion %s: %v", companion, err))
		}
		return result
	}

	if err := sidecar.Write(companion, res.Output); err != nil {
		result.Outcome = OutcomeErrored
		result.Err = err
		r.logger.LogError(fmt.Sprintf("failed to write companion %s: %v", companion, err))
		return result
	}

	result.Outcome = OutcomeSucceeded
	r.logger.LogInfo(fmt.Sprintf("wrote %s (%d bytes, %s)",
		companion, len(res.Output), res.Duration.Round(time.Millisecond)))
	return result
}
