// Package sidecar derives companion output paths for documents and manages
// the companion files themselves: existence probing, atomic writes, cleanup.
package sidecar

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/distill/internal/filelock"
)

// Path derives the companion file path for a document: same directory, same
// base name with the final extension replaced by ext. Pure and total; a
// document without an extension simply gains ext.
func Path(doc, ext string) string {
	return strings.TrimSuffix(doc, filepath.Ext(doc)) + ext
}

// Exists reports whether a companion file is already present at path.
// Anything other than a regular file (missing, directory, stat error) counts
// as absent, so doubtful cases fall toward re-processing.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Write persists the captured output to the companion path atomically
// (temp file + rename). An existing companion is overwritten.
func Write(path string, data []byte) error {
	return filelock.AtomicWrite(path, data)
}

// Remove deletes the companion file at path if one exists. A missing file is
// not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
