// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default scanner limits.
const (
	// DefaultMaxFileSize bounds how large a source file may be before
	// it is skipped with an IO warning. 10MB covers generated code.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultFileTimeout bounds a single file read. Slow media (NFS,
	// FUSE) must not stall the whole scan.
	DefaultFileTimeout = 5 * time.Second
)

// DefaultExcludes are glob patterns never scanned. VCS metadata and
// dependency trees cannot carry meaningful @acp annotations.
var DefaultExcludes = []string{
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/target/**",
	"**/dist/**",
	"**/.idea/**",
	"**/.vscode/**",
}

// Option is a functional option for configuring Scanner.
type Option func(*Scanner)

// Scanner extracts annotation records from a source tree.
//
// Thread Safety: Scanner is safe for concurrent use.
type Scanner struct {
	extensions  map[string]bool
	matcher     *globMatcher
	prefixes    map[string]string
	workers     int
	fileTimeout time.Duration
	maxFileSize int64
	logger      *slog.Logger
}

// New creates a Scanner with the given options.
//
// Default configuration:
//   - extensions: DefaultExtensions (the built-in language table)
//   - excludes: DefaultExcludes
//   - workers: GOMAXPROCS
//   - fileTimeout: 5s
//   - maxFileSize: 10MB
func New(opts ...Option) *Scanner {
	s := &Scanner{
		prefixes:    make(map[string]string),
		workers:     runtime.GOMAXPROCS(0),
		fileTimeout: DefaultFileTimeout,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.extensions == nil {
		s.extensions = make(map[string]bool)
		for _, ext := range DefaultExtensions() {
			s.extensions[ext] = true
		}
	}
	for ext := range s.prefixes {
		s.extensions[ext] = true
	}

	if s.matcher == nil {
		s.matcher = newGlobMatcher(nil, DefaultExcludes)
	}
	if s.workers < 1 {
		s.workers = 1
	}

	return s
}

// WithExtensions restricts scanning to the given file extensions.
// Extensions are normalized to a leading dot and lower case.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			s.extensions[normalizeExt(ext)] = true
		}
	}
}

// WithIncludes sets include glob patterns (doublestar syntax). Empty
// means every file with a matching extension is considered.
func WithIncludes(patterns ...string) Option {
	return func(s *Scanner) {
		if s.matcher == nil {
			s.matcher = newGlobMatcher(patterns, DefaultExcludes)
		} else {
			s.matcher = newGlobMatcher(patterns, s.matcher.excludes)
		}
	}
}

// WithExcludes sets exclude glob patterns (doublestar syntax).
func WithExcludes(patterns ...string) Option {
	return func(s *Scanner) {
		if s.matcher == nil {
			s.matcher = newGlobMatcher(nil, patterns)
		} else {
			s.matcher = newGlobMatcher(s.matcher.includes, patterns)
		}
	}
}

// WithCommentPrefix registers or overrides the comment prefix for an
// extension, adding it to the scanned set.
func WithCommentPrefix(ext, prefix string) Option {
	return func(s *Scanner) {
		s.prefixes[normalizeExt(ext)] = prefix
	}
}

// WithWorkers sets the worker pool size for per-file extraction.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		s.workers = n
	}
}

// WithFileTimeout sets the per-file read timeout. Zero disables it.
func WithFileTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.fileTimeout = d
	}
}

// WithMaxFileSize sets the maximum file size in bytes. Zero disables
// the limit.
func WithMaxFileSize(bytes int64) Option {
	return func(s *Scanner) {
		s.maxFileSize = bytes
	}
}

// WithLogger sets the logger used for scan progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Scan walks a source tree and extracts all annotation records.
//
// Description:
//
//	Collects candidate files (extension and glob filtered), fans them
//	out to a bounded worker pool, and merges the per-file results.
//	Ordering is re-established by a final sort on (path, line), never
//	by worker arrival order. Each file's extraction is independent;
//	there is no cross-file state.
//
// Inputs:
//
//	ctx - Context for cancellation. Workers check it between files.
//	root - Path to the project root directory.
//
// Outputs:
//
//	*ScanResult - The scan outcome. Never nil unless error is non-nil.
//	error - Non-nil only if root is invalid or cannot be accessed.
//
// Behavior:
//
//   - Unreadable, oversized, binary, and timed-out files are skipped
//     with IO warnings; the scan continues.
//   - Cancellation sets Incomplete=true and returns the partial result.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidRoot)
	}

	ctx, span := startScanSpan(ctx, absRoot)
	defer span.End()

	result := &ScanResult{Root: absRoot}

	paths, walkWarnings, walkErr := s.collectFiles(ctx, absRoot)
	result.Warnings = append(result.Warnings, walkWarnings...)
	if walkErr != nil {
		if ctx.Err() != nil {
			result.Incomplete = true
			s.finish(ctx, result, start)
			return result, nil
		}
		return nil, walkErr
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, path := range paths {
		// Cooperative cancellation between files.
		if gctx.Err() != nil {
			result.Incomplete = true
			break
		}
		g.Go(func() error {
			records, warnings, skipped := s.scanFile(gctx, absRoot, path)
			mu.Lock()
			defer mu.Unlock()
			result.Records = append(result.Records, records...)
			result.Warnings = append(result.Warnings, warnings...)
			if skipped {
				result.FilesSkipped++
			} else {
				result.FilesScanned++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return nil, err
	}
	if ctx.Err() != nil {
		result.Incomplete = true
	}

	s.finish(ctx, result, start)
	return result, nil
}

// finish sorts the result deterministically and records metrics.
func (s *Scanner) finish(ctx context.Context, result *ScanResult, start time.Time) {
	sort.SliceStable(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineNumber < b.LineNumber
	})
	sort.SliceStable(result.Warnings, func(i, j int) bool {
		a, b := result.Warnings[i], result.Warnings[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Line < b.Line
	})
	result.Duration = time.Since(start)

	recordScanComplete(ctx, result.Duration, len(result.Records))
	s.logger.Info("scan complete",
		"root", result.Root,
		"files_scanned", result.FilesScanned,
		"files_skipped", result.FilesSkipped,
		"records", len(result.Records),
		"warnings", len(result.Warnings),
		"duration_ms", result.Duration.Milliseconds(),
		"incomplete", result.Incomplete)
}

// collectFiles walks the tree and returns candidate files in path order.
func (s *Scanner) collectFiles(ctx context.Context, root string) ([]string, []Warning, error) {
	var (
		paths    []string
		warnings []Warning
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			warnings = append(warnings, Warning{
				Kind:    WarningIO,
				Path:    rel,
				Message: "cannot access",
				Err:     err,
			})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel != "." && s.matcher.excludeDir(rel) {
				return fs.SkipDir
			}
			return nil
		}

		if !s.extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if !s.matcher.matchFile(rel) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, warnings, err
	}

	sort.Strings(paths)
	return paths, warnings, nil
}

// scanFile reads and parses one file. The bool return is true when the
// file was skipped by an IO warning.
func (s *Scanner) scanFile(ctx context.Context, root, path string) ([]AnnotationRecord, []Warning, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	lang, ok := languageFor(path, s.prefixes)
	if !ok {
		return nil, nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		recordScanFile(ctx, true)
		return nil, []Warning{ioWarning(ctx, rel, "stat failed", err)}, true
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		recordScanFile(ctx, true)
		return nil, []Warning{ioWarning(ctx, rel, fmt.Sprintf("%d bytes", info.Size()), ErrFileTooLarge)}, true
	}

	data, err := s.readFile(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, false
		}
		recordScanFile(ctx, true)
		return nil, []Warning{ioWarning(ctx, rel, "read failed", err)}, true
	}
	if looksBinary(data) {
		recordScanFile(ctx, true)
		return nil, []Warning{ioWarning(ctx, rel, "skipped", ErrBinaryContent)}, true
	}

	records, warnings := parseFile(rel, data, lang)
	for _, w := range warnings {
		recordScanWarning(ctx, w.Kind)
	}
	recordScanFile(ctx, false)
	return records, warnings, false
}

// readFile reads a file under the per-file timeout.
//
// The read runs in its own goroutine so a hung filesystem cannot stall
// the worker past the deadline; the buffered channel lets the goroutine
// finish and be collected after a timeout.
func (s *Scanner) readFile(ctx context.Context, path string) ([]byte, error) {
	if s.fileTimeout <= 0 {
		return os.ReadFile(path)
	}

	tctx, cancel := context.WithTimeout(ctx, s.fileTimeout)
	defer cancel()

	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := os.ReadFile(path)
		ch <- readResult{data, err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, ErrReadTimeout
		}
		return nil, context.Canceled
	}
}

// ioWarning builds an IO warning and records the metric.
func ioWarning(ctx context.Context, path, message string, err error) Warning {
	recordScanWarning(ctx, WarningIO)
	return Warning{
		Kind:    WarningIO,
		Path:    path,
		Message: message,
		Err:     err,
	}
}
