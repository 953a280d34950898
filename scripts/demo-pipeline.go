//go:build ignore
// +build ignore

// Demo script to show the extraction pipeline and its idempotency gate in action
// Run with: go run scripts/demo-pipeline.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/distill/internal/extract"
	"github.com/harrison/distill/internal/logger"
	"github.com/harrison/distill/internal/pipeline"
)

// pickyTool accepts every document except flaky.pdf.
const pickyTool = `#!/bin/sh
input=$(cat)
case "$input" in
  *flaky.pdf) echo "flaky.pdf: cannot read document" >&2; exit 3 ;;
esac
printf '{"title":"demo document","doc_type":"invoice"}'
`

// fixedTool accepts everything.
const fixedTool = `#!/bin/sh
cat >/dev/null
printf '{"title":"demo document","doc_type":"invoice"}'
`

func main() {
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Distill Pipeline Demo")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	workDir, err := os.MkdirTemp("", "distill-demo-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create demo directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(workDir)

	tree := filepath.Join(workDir, "documents")
	for _, doc := range []string{"invoices/a.pdf", "invoices/flaky.pdf", "reports/q3.pdf"} {
		path := filepath.Join(tree, doc)
		mustWrite(path, "%PDF-1.4 demo", 0644)
	}

	tool := filepath.Join(workDir, "tool.sh")
	mustWrite(tool, pickyTool, 0755)

	log := logger.NewConsoleLogger(os.Stdout, "info")
	orch := newOrchestrator(tool, log)
	ctx := context.Background()

	// Demo 1: First run processes everything, the bad document fails in
	// isolation and ends up without a companion file.
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("Demo 1: First run (one document the tool rejects)")
	fmt.Println(strings.Repeat("-", 60))

	summary, err := orch.Run(ctx, tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nOutcomes: %d succeeded, %d failed, %d skipped\n\n",
		summary.Succeeded, summary.Failed, summary.Skipped)

	// Demo 2: Second run skips every document that already has a companion
	// and retries only the failed one.
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("Demo 2: Second run (companion gate skips finished work)")
	fmt.Println(strings.Repeat("-", 60))

	summary, err = orch.Run(ctx, tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nOutcomes: %d succeeded, %d failed, %d skipped\n\n",
		summary.Succeeded, summary.Failed, summary.Skipped)

	// Demo 3: Once the tool stops rejecting the document, the next run
	// picks up exactly the missing companion.
	fmt.Println(strings.Repeat("-", 60))
	fmt.Println("Demo 3: Third run after the tool is fixed")
	fmt.Println(strings.Repeat("-", 60))

	mustWrite(tool, fixedTool, 0755)

	summary, err = orch.Run(ctx, tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nOutcomes: %d succeeded, %d failed, %d skipped\n\n",
		summary.Succeeded, summary.Failed, summary.Skipped)

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Demo Complete!")
	fmt.Println(strings.Repeat("=", 60))
}

func newOrchestrator(tool string, log pipeline.Logger) *pipeline.Orchestrator {
	adapter := extract.NewAdapter()
	adapter.Command = tool
	adapter.Logger = log

	runner := extract.NewJobRunner(adapter, ".json", log)
	return pipeline.NewOrchestrator(runner, pipeline.Options{}, log)
}

func mustWrite(path, content string, mode os.FileMode) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", filepath.Dir(path), err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
}
