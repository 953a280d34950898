// Package extract drives the external extraction tool: one subprocess
// round-trip per document, plus the per-document job that persists or cleans
// up the companion file according to the tool's exit status.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Logger defines the interface for logging extraction activity.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// Result holds the raw outcome of one extraction round-trip.
// The caller decides what to do with the output based on ExitCode.
type Result struct {
	// Output contains the raw bytes captured from the tool's stdout.
	Output []byte

	// ExitCode is the tool's exit status. Zero means success.
	ExitCode int

	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
}

// Extractor is the boundary the job runner drives. It lets tests stub the
// external tool.
type Extractor interface {
	Extract(ctx context.Context, doc string) (*Result, error)
}

// Adapter invokes the external extraction tool once per document.
// It follows the http.Client pattern: create once, use many times.
// Thread-safe for concurrent use; all fields are read-only after setup.
type Adapter struct {
	// Command is the extraction tool binary.
	// Defaults to "claude" (found in PATH).
	Command string

	// QuietFlag is the single argument passed to the tool, putting it in
	// quiet/print mode. Empty means the tool is launched with no arguments.
	QuietFlag string

	// Instructions is the instruction block written ahead of each file
	// reference. Defaults to DefaultInstructions if empty.
	Instructions string

	// Schema, when set, validates captured output as a diagnostic signal.
	// Validation failures are logged, never enforced.
	Schema *jsonschema.Schema

	// Timeout bounds each invocation. Zero means no limit, matching the
	// tool's reference behavior of waiting indefinitely.
	Timeout time.Duration

	// Stderr receives the tool's diagnostic stream live, unmodified.
	// Defaults to os.Stderr.
	Stderr io.Writer

	// Logger receives per-invocation progress and diagnostics.
	// Can be nil for silent operation.
	Logger Logger
}

// NewAdapter creates an Adapter with default settings.
func NewAdapter() *Adapter {
	return &Adapter{
		Command:      "claude",
		QuietFlag:    "-p",
		Instructions: DefaultInstructions,
		Stderr:       os.Stderr,
	}
}

// Extract performs one round-trip with the external tool for doc:
// write the payload to stdin, close stdin, drain stdout to EOF, then await
// the exit status. That order is load-bearing: the tool only terminates
// after observing end-of-input, and draining before the wait keeps a large
// output from deadlocking against process exit.
//
// A non-zero exit status is returned in the Result, not as an error; errors
// are reserved for failures to run the tool at all (spawn, pipe, read).
func (a *Adapter) Extract(ctx context.Context, doc string) (*Result, error) {
	start := time.Now()

	command := a.Command
	if command == "" {
		command = "claude"
	}

	var args []string
	if a.QuietFlag != "" {
		args = append(args, a.QuietFlag)
	}

	instructions := a.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}
	payload := BuildPayload(instructions, doc)

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = a.stderr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	a.logDebug(fmt.Sprintf("invoking %s for %s (%d byte payload)", command, doc, len(payload)))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	// End-of-input is the tool's signal to begin finishing; leaving stdin
	// open hangs the process. On either failure the tool may still be
	// mid-write on stdout, so drain it before Wait or Wait never returns.
	if _, err := io.WriteString(stdin, payload); err != nil {
		stdin.Close()
		io.Copy(io.Discard, stdout)
		cmd.Wait()
		return nil, fmt.Errorf("failed to write payload to %s: %w", command, err)
	}
	if err := stdin.Close(); err != nil {
		io.Copy(io.Discard, stdout)
		cmd.Wait()
		return nil, fmt.Errorf("failed to close stdin of %s: %w", command, err)
	}

	output, readErr := io.ReadAll(stdout)

	waitErr := cmd.Wait()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read output of %s: %w", command, readErr)
	}

	result := &Result{
		Output:   output,
		Duration: time.Since(start),
	}

	if waitErr != nil {
		// The run was cut short by the timeout or a cancellation, not by
		// the tool's own verdict
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction of %s aborted: %w", doc, ctx.Err())
		}

		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("failed to await %s: %w", command, waitErr)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	a.logDebug(fmt.Sprintf("%s exited %d for %s in %s (%d bytes captured)",
		command, result.ExitCode, doc, result.Duration.Round(time.Millisecond), len(result.Output)))

	if result.ExitCode == 0 {
		a.diagnoseOutput(doc, result.Output)
	}

	return result, nil
}

// previewLimit caps the length of output previews in diagnostic warnings.
const previewLimit = 200

// diagnoseOutput checks the captured output against the expected shape:
// first that it is a single JSON value, then against the configured schema.
// Both checks only ever log; the output is persisted regardless.
func (a *Adapter) diagnoseOutput(doc string, output []byte) {
	var value interface{}
	if err := json.Unmarshal(output, &value); err != nil {
		a.logWarn(fmt.Sprintf("output for %s is not a single JSON value: %v (preview: %q)",
			doc, err, preview(output)))
		return
	}

	if a.Schema == nil {
		return
	}
	if err := a.Schema.Validate(value); err != nil {
		a.logWarn(fmt.Sprintf("output for %s does not match the expected schema: %v", doc, err))
	}
}

// preview returns the head of the output for warning messages.
func preview(output []byte) string {
	if len(output) <= previewLimit {
		return string(output)
	}
	return string(output[:previewLimit]) + "...(truncated)"
}

func (a *Adapter) stderr() io.Writer {
	if a.Stderr != nil {
		return a.Stderr
	}
	return os.Stderr
}

func (a *Adapter) logDebug(message string) {
	if a.Logger != nil {
		a.Logger.LogDebug(message)
	}
}

func (a *Adapter) logWarn(message string) {
	if a.Logger != nil {
		a.Logger.LogWarn(message)
	}
}
