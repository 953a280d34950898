package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetDistillHome returns the distill home directory
// Priority order:
//  1. DISTILL_HOME environment variable (if set)
//  2. Repository root (detected by finding a .distill-root marker or
//     the distill go.mod)
//  3. Current working directory (fallback)
//
// The directory is created if it doesn't exist
func GetDistillHome() (string, error) {
	// Try env var first
	if home := os.Getenv("DISTILL_HOME"); home != "" {
		return home, nil
	}

	// Try to find the repo root by looking for a marker or go.mod
	repoRoot, err := findDistillRepoRoot()
	if err == nil && repoRoot != "" {
		distillHome := filepath.Join(repoRoot, ".distill")
		// Ensure directory exists
		if err := os.MkdirAll(distillHome, 0755); err != nil {
			return "", fmt.Errorf("create distill home directory: %w", err)
		}
		return distillHome, nil
	}

	// Fallback to current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	distillHome := filepath.Join(cwd, ".distill")

	// Ensure directory exists
	if err := os.MkdirAll(distillHome, 0755); err != nil {
		return "", fmt.Errorf("create distill home directory: %w", err)
	}

	return distillHome, nil
}

// findDistillRepoRoot finds the repository root by looking for a
// .distill-root marker file, or a go.mod containing the distill module path
func findDistillRepoRoot() (string, error) {
	// Start from current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		// First check for .distill-root marker file (highest priority)
		markerPath := filepath.Join(current, ".distill-root")
		if _, err := os.Stat(markerPath); err == nil {
			return current, nil
		}

		// Check for go.mod with the distill module path
		goModPath := filepath.Join(current, "go.mod")
		if data, err := os.ReadFile(goModPath); err == nil {
			if strings.Contains(string(data), "github.com/harrison/distill") {
				return current, nil
			}
		}

		// Move up one directory
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root
			break
		}
		current = parent
	}

	return "", fmt.Errorf("distill repository root not found (looking for .distill-root or go.mod with github.com/harrison/distill)")
}

// GetRunLockPath returns the path of the lock file that keeps runs
// single-instance: $DISTILL_HOME/run.lock
func GetRunLockPath() (string, error) {
	home, err := GetDistillHome()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, "run.lock"), nil
}

// GetJournalDBPath returns the absolute path to the run-history database
// Always returns: $DISTILL_HOME/history/runs.db
func GetJournalDBPath() (string, error) {
	home, err := GetDistillHome()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, "history", "runs.db"), nil
}

// GetHistoryDir returns the run-history directory path
func GetHistoryDir() (string, error) {
	home, err := GetDistillHome()
	if err != nil {
		return "", err
	}

	historyDir := filepath.Join(home, "history")

	// Ensure directory exists
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}

	return historyDir, nil
}
