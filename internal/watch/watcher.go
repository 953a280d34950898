// Package watch emits document paths as they are created or rewritten under
// a directory tree, for continuous processing.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is the default delay for coalescing rapid writes.
// A document being copied in arrives as a create followed by many writes;
// one event fires once the file has been quiet for this long.
const DefaultDebounceDelay = 500 * time.Millisecond

// Event reports a document that appeared or changed.
type Event struct {
	Path      string
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// Extension is the document extension to report, e.g. ".pdf".
	// Empty matches every file.
	Extension string
	// ExcludeDirs lists directory names never watched.
	ExcludeDirs []string
	// DebounceDelay overrides DefaultDebounceDelay when positive.
	DebounceDelay time.Duration
}

// Watcher watches a directory tree for document changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	events    chan Event
	errors    chan error
	done      chan struct{}
	root      string
	extension string
	excluded  map[string]struct{}

	mu            sync.Mutex
	debounceDelay time.Duration
	debounceMap   map[string]*time.Timer
	closed        bool
}

// NewWatcher creates a Watcher over root and starts delivering events.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ext := strings.ToLower(opts.Extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	excluded := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = struct{}{}
	}

	delay := opts.DebounceDelay
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}

	w := &Watcher{
		watcher:       watcher,
		events:        make(chan Event, 100),
		errors:        make(chan error, 10),
		done:          make(chan struct{}),
		root:          abs,
		extension:     ext,
		excluded:      excluded,
		debounceDelay: delay,
		debounceMap:   make(map[string]*time.Timer),
	}

	if err := w.addRecursive(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory tree: %w", err)
	}

	go w.processEvents()

	return w, nil
}

// addRecursive adds the directory and all its subdirectories to the watcher,
// skipping excluded names.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directory vanished mid-walk
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != w.root {
			if _, skip := w.excluded[d.Name()]; skip {
				return filepath.SkipDir
			}
		}

		if err := w.watcher.Add(path); err != nil {
			if os.IsPermission(err) {
				return nil
			}
			return err
		}

		return nil
	})
}

// processEvents converts fsnotify events into document Events.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Error channel full, drop the error
			}
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	// Newly created directories are added to the watcher so documents
	// dropped inside them are seen too
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if _, skip := w.excluded[filepath.Base(path)]; skip {
				return
			}
			if err := w.addRecursive(path); err != nil {
				select {
				case w.errors <- err:
				default:
				}
			}
			return
		}
	}

	if !w.matchesExtension(path) {
		return
	}

	// Only created or rewritten documents matter. Removes, renames and
	// chmods never create work for the pipeline.
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.debounce(path)
	}
}

// matchesExtension checks if the file name carries the watched extension.
func (w *Watcher) matchesExtension(path string) bool {
	if w.extension == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filepath.Base(path)), w.extension)
}

// debounce coalesces rapid create and write events for the same file.
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if timer, exists := w.debounceMap[path]; exists {
		timer.Stop()
	}

	w.debounceMap[path] = time.AfterFunc(w.debounceDelay, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()

		w.sendEvent(path)
	})
}

// sendEvent delivers an Event to the events channel.
func (w *Watcher) sendEvent(path string) {
	event := Event{
		Path:      path,
		Timestamp: time.Now(),
	}

	select {
	case w.events <- event:
	case <-w.done:
	default:
		// Events channel full, drop the event
	}
}

// Events returns the channel for receiving document events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the absolute root directory being watched.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	for _, timer := range w.debounceMap {
		timer.Stop()
	}
	w.debounceMap = nil
	w.mu.Unlock()

	close(w.done)

	return w.watcher.Close()
}
