// Package watcher re-runs a cruise whenever source files below the watched
// roots change.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/cruiser/internal/cruise"
	"github.com/zheng/cruiser/internal/gather"
)

// RunFunc performs one cruise.
type RunFunc func() (*cruise.Result, error)

// Watcher watches for file changes and triggers a new cruise
type Watcher struct {
	roots        []string
	run          RunFunc
	fsWatcher    *fsnotify.Watcher
	extensions   map[string]bool
	includeTests bool

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Serializes cruises started by overlapping timers
	runMu sync.Mutex

	// Callbacks
	onCruiseStart func(changed []string)
	onCruiseDone  func(res *cruise.Result, duration time.Duration)
	onError       func(error)

	// Control
	done chan struct{}
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithExtensions limits the events that trigger a cruise to files with one
// of exts. Default gather.DefaultExtensions.
func WithExtensions(exts []string) WatcherOption {
	return func(w *Watcher) {
		if len(exts) == 0 {
			return
		}
		w.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			w.extensions[ext] = true
		}
	}
}

// WithIncludeTests makes changes to test files trigger a cruise
func WithIncludeTests(include bool) WatcherOption {
	return func(w *Watcher) {
		w.includeTests = include
	}
}

// WithOnCruiseStart sets the callback for when a cruise starts
func WithOnCruiseStart(fn func(changed []string)) WatcherOption {
	return func(w *Watcher) {
		w.onCruiseStart = fn
	}
}

// WithOnCruiseDone sets the callback for when a cruise completes
func WithOnCruiseDone(fn func(res *cruise.Result, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onCruiseDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher over roots. File roots are watched through their
// directory.
func New(roots []string, run RunFunc, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		roots:         roots,
		run:           run,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond, // Default debounce
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}
	WithExtensions(gather.DefaultExtensions)(w)

	for _, opt := range opts {
		opt(w)
	}

	// Add all directories to watch
	if err := w.addDirs(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all directories below the roots to the watcher
func (w *Watcher) addDirs() error {
	for _, root := range w.roots {
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := w.fsWatcher.Add(filepath.Dir(root)); err != nil {
				return err
			}
			continue
		}

		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			// Skip hidden directories and common non-source directories
			if path != root && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata"
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)

	w.pendingMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.pendingMu.Unlock()

	return w.fsWatcher.Close()
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skipDir(info.Name()) {
				w.fsWatcher.Add(event.Name)
			}
			return
		}
	}

	if !w.relevant(event.Name) {
		return
	}

	// Add to pending files and reset debounce timer
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerCruise)
}

func (w *Watcher) relevant(name string) bool {
	if !w.extensions[filepath.Ext(name)] {
		return false
	}
	return w.includeTests || !gather.IsTestFile(name)
}

// triggerCruise runs the cruise after debounce
func (w *Watcher) triggerCruise() {
	select {
	case <-w.done:
		return
	default:
	}

	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	w.runMu.Lock()
	defer w.runMu.Unlock()

	if w.onCruiseStart != nil {
		w.onCruiseStart(files)
	}

	startTime := time.Now()

	res, err := w.run()
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("cruise failed: %w", err))
		}
		return
	}

	if w.onCruiseDone != nil {
		w.onCruiseDone(res, time.Since(startTime))
	}
}
