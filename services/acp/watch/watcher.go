// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-indexes a tree when its files change.
//
// The watcher batches filesystem events behind a debounce window so a
// burst of saves triggers one re-index, not one per keystroke, and a
// token-bucket cap bounds how often the handler can fire during event
// storms. The cache file itself is always ignored; without that the
// index write would re-trigger the watcher forever.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/acp/services/acp/cache"
)

// Change is one filesystem change event.
type Change struct {
	// Path is relative to the watched root when possible, absolute
	// otherwise.
	Path string

	// Op is the type of change.
	Op Op

	// Time is when the change was detected.
	Time time.Time
}

// Op is the type of file operation.
type Op int

const (
	// OpCreate indicates a file was created.
	OpCreate Op = iota

	// OpWrite indicates a file was modified.
	OpWrite

	// OpRemove indicates a file was deleted.
	OpRemove

	// OpRename indicates a file was renamed.
	OpRename
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Handler receives one debounced, deduplicated batch of changes.
// A typical handler re-scans the tree and swaps in a fresh cache.
type Handler func(ctx context.Context, changes []Change)

// Options configures the watcher.
type Options struct {
	// Debounce is how long to wait for more changes before triggering.
	// Default: 750ms.
	Debounce time.Duration

	// IgnorePatterns are names or globs to skip, matched against path
	// bases and path substrings. The cache file and its temp files are
	// always ignored regardless of this list.
	IgnorePatterns []string

	// BufferSize is the size of the change buffer channel. Events
	// arriving while the buffer is full are dropped; the eventual
	// re-scan reads the tree, not the event log, so nothing is lost.
	// Default: 1024.
	BufferSize int

	// RateLimit caps handler invocations. Debounced batches that
	// arrive faster than this are merged and retried on the next
	// window. Default: one per 2s.
	RateLimit rate.Limit

	// RateBurst is the token bucket size. Default: 1.
	RateBurst int

	// Logger receives watch errors and drop notices. Default:
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Debounce:       750 * time.Millisecond,
		IgnorePatterns: []string{".git", "node_modules", ".idea", "__pycache__", "*.swp", "*.tmp"},
		BufferSize:     1024,
		RateLimit:      rate.Every(2 * time.Second),
		RateBurst:      1,
	}
}

// Watcher watches one tree and fires a handler on quiet periods.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single
// goroutine, never concurrently with itself.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	ignores  []string
	limiter  *rate.Limiter
	logger   *slog.Logger

	changes  chan Change
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, handler Handler, opts *Options) (*Watcher, error) {
	defaults := DefaultOptions()
	if opts == nil {
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaults.Debounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = defaults.RateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaults.RateBurst
	}
	if opts.IgnorePatterns == nil {
		opts.IgnorePatterns = defaults.IgnorePatterns
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// The index must never watch itself.
	ignores := append([]string{cache.DefaultFileName, ".acp.cache-*.tmp"}, opts.IgnorePatterns...)

	return &Watcher{
		root:     root,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.Debounce,
		ignores:  ignores,
		limiter:  rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		logger:   opts.Logger.With("component", "acp.watch"),
		changes:  make(chan Change, opts.BufferSize),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching root and all subdirectories.
//
// Description:
//
//	Registers the directory tree with fsnotify and spawns the event
//	processor and the debounce loop. New directories created while
//	watching are registered as they appear. Both goroutines exit when
//	Stop is called or the context is cancelled.
//
// Inputs:
//
//	ctx - Cancels watching; pending batches are dropped on cancel
//	      because the next explicit index covers them anyway.
//
// Outputs:
//
//	error - Non-nil if the tree could not be registered.
//
// Thread Safety: Safe to call concurrently; only the first call starts.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	w.logger.Info("watching for changes",
		"root", w.root,
		"debounce", w.debounce,
	)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether the watcher is active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// addRecursive registers a directory and all subdirectories.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// shouldIgnore checks a path against the ignore list.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range w.ignores {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if strings.Contains(path, string(filepath.Separator)+pattern+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// processEvents converts fsnotify events into buffered changes.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			change := Change{
				Path: w.relPath(event.Name),
				Op:   convertOp(event.Op),
				Time: time.Now(),
			}

			select {
			case w.changes <- change:
			default:
				// The re-scan reads the tree, not this log, so a full
				// buffer only costs trigger latency.
				w.logger.Debug("change buffer full, dropping event", "path", change.Path)
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							"path", event.Name,
							"error", err,
						)
					}
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// relPath renders a path relative to the root for display.
func (w *Watcher) relPath(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// convertOp maps fsnotify operations onto Op.
func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// debounceLoop batches changes and fires the handler on quiet periods.
//
// The rate limiter gates every firing: when a window closes faster
// than the cap allows, the batch is kept and retried one debounce
// later, merging with whatever arrives in between.
func (w *Watcher) debounceLoop(ctx context.Context) {
	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-w.done:
			stopTimer()
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			if !w.limiter.Allow() {
				timer.Reset(w.debounce)
				continue
			}

			deduped := deduplicate(batch)
			batch = batch[:0]
			stopTimer()

			if len(deduped) > 0 && w.handler != nil {
				w.logger.Debug("changes settled, triggering handler", "count", len(deduped))
				w.handler(ctx, deduped)
			}
		}
	}
}

// deduplicate keeps the most recent change per path, preserving
// first-seen order.
func deduplicate(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	result := make([]Change, 0, len(changes))

	for _, change := range changes {
		if idx, ok := seen[change.Path]; ok {
			result[idx] = change
		} else {
			seen[change.Path] = len(result)
			result = append(result, change)
		}
	}
	return result
}
