// Package discover enumerates candidate document files beneath a root
// directory.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/distill/internal/logger"
)

// Logger defines the interface for logging discovery progress.
type Logger interface {
	LogDebug(message string)
	LogWarn(message string)
}

// Options configures a discovery pass
type Options struct {
	// Extension is the document extension to match (e.g. ".pdf"), compared
	// case-insensitively against the end of the file name. Empty matches
	// every regular file.
	Extension string
	// ExcludeDirs is a list of directory names to exclude (e.g., ".git", "node_modules")
	ExcludeDirs []string
	// Logger receives per-directory and per-candidate debug lines plus
	// warnings for unreadable subtrees. Nil disables logging.
	Logger Logger
}

// Result contains the outcome of one discovery pass
type Result struct {
	// Candidates contains the absolute paths of matched documents, in the
	// order the walk yielded them
	Candidates []string
	// Elapsed is the wall-clock duration of the walk
	Elapsed time.Duration
}

// Count returns the number of discovered candidates.
func (r *Result) Count() int {
	return len(r.Candidates)
}

// Scan walks the tree rooted at root and collects candidate documents.
// Excluded directories are not descended. Unreadable subdirectories are
// logged and skipped; only an inaccessible root is an error.
func Scan(root string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	// Validate root exists and is a directory
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	// Normalize the extension for case-insensitive suffix matching
	ext := strings.ToLower(opts.Extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	// Create excluded dirs map
	excludeMap := make(map[string]bool)
	for _, name := range opts.ExcludeDirs {
		excludeMap[name] = true
	}

	result := &Result{
		Candidates: make([]string, 0),
	}
	start := time.Now()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// An error on the root itself means discovery cannot proceed
			if path == root {
				return err
			}
			log.LogWarn(fmt.Sprintf("skipping unreadable path %s: %v", path, err))
			return nil // Continue walking
		}

		// Handle directories
		if d.IsDir() {
			// The root is walked even if its own name is excluded
			if path != root && excludeMap[d.Name()] {
				log.LogDebug(fmt.Sprintf("excluding directory: %s", path))
				return filepath.SkipDir
			}
			log.LogDebug(fmt.Sprintf("scanning directory: %s", path))
			return nil
		}

		// Candidates are regular files only (symlinks are not followed)
		if !d.Type().IsRegular() {
			return nil
		}

		if ext != "" && !strings.HasSuffix(strings.ToLower(d.Name()), ext) {
			return nil
		}

		// Convert to absolute path
		absPath, err := filepath.Abs(path)
		if err != nil {
			log.LogWarn(fmt.Sprintf("failed to resolve path %s: %v", path, err))
			return nil
		}

		log.LogDebug(fmt.Sprintf("found candidate: %s", absPath))
		result.Candidates = append(result.Candidates, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory tree: %w", err)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}
