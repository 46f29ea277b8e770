// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package acpd provides the ACP query service daemon.
//
// The daemon serves constraint queries over one published cache snapshot
// and rebuilds that snapshot on demand via the reindex endpoint.
//
// # Design Principles
//
//   - Snapshot isolation: the published snapshot is swapped with an
//     atomic pointer store. Requests in flight keep the engine they
//     acquired; they never observe a half-built index.
//   - One reindex at a time: concurrent reindex requests are rejected
//     with ErrReindexInProgress instead of queueing, so event storms
//     from callers cannot pile up scans.
//   - Failures are responses: no operation terminates the daemon.
//
// # Thread Safety
//
// Service is safe for concurrent use.
package acpd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/gitinfo"
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
	"github.com/AleutianAI/acp/services/acp/telemetry"
)

// ServiceVersion is the ACP daemon version.
const ServiceVersion = "0.1.0"

// Config configures the daemon service.
type Config struct {
	// Root is the project root to scan. Required.
	Root string

	// CachePath is where the cache file is written and loaded.
	// Default: <Root>/.acp.cache.json.
	CachePath string

	// ScannerOptions configure the annotation scanner.
	ScannerOptions []scanner.Option

	// Resolver reads git metadata for the root. Default: gitinfo.Resolve.
	Resolver gitinfo.Resolver

	// Archive, when set, stores each indexed snapshot by commit hash.
	Archive *badgerstore.Archive

	// Logger is the service logger. Default: slog.Default().
	Logger *slog.Logger
}

// Service owns the published query snapshot and the reindex pipeline.
type Service struct {
	root      string
	cachePath string
	scanner   *scanner.Scanner
	resolver  gitinfo.Resolver
	archive   *badgerstore.Archive
	logger    *slog.Logger

	engine    atomic.Pointer[query.Engine]
	reindexMu sync.Mutex
}

// NewService creates the daemon service.
//
// Description:
//
//	Validates the configuration and constructs the scanner once; the
//	service starts with no published snapshot. Call LoadFromDisk or
//	Reindex to publish one.
//
// Inputs:
//
//	cfg - Service configuration. Root is required.
//
// Outputs:
//
//	*Service - The configured service.
//	error - Non-nil if Root is empty.
func NewService(cfg Config) (*Service, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("project root must not be empty")
	}

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = cache.DefaultPath(cfg.Root)
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = gitinfo.Resolve
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		root:      cfg.Root,
		cachePath: cachePath,
		scanner:   scanner.New(cfg.ScannerOptions...),
		resolver:  resolver,
		archive:   cfg.Archive,
		logger:    logger.With("component", "acpd"),
	}, nil
}

// Root returns the project root the service scans.
func (s *Service) Root() string {
	return s.root
}

// CachePath returns the cache file location.
func (s *Service) CachePath() string {
	return s.cachePath
}

// Archive returns the snapshot archive, or nil when disabled.
func (s *Service) Archive() *badgerstore.Archive {
	return s.archive
}

// Engine returns the current published snapshot.
//
// The returned engine stays valid for the caller's whole request even
// if a reindex publishes a newer snapshot meanwhile.
func (s *Service) Engine() (*query.Engine, error) {
	eng := s.engine.Load()
	if eng == nil {
		return nil, ErrNoSnapshot
	}
	return eng, nil
}

// Indexed reports whether a snapshot has been published.
func (s *Service) Indexed() bool {
	return s.engine.Load() != nil
}

// Bootstrap returns the fixed-ceiling bootstrap line for the current
// snapshot. Works before the first index; the line then points at the
// indexer instead of the query surface.
func (s *Service) Bootstrap() string {
	if eng := s.engine.Load(); eng != nil {
		return query.Bootstrap(eng.Cache())
	}
	return query.Bootstrap(nil)
}

// LoadFromDisk publishes the snapshot persisted at the cache path.
//
// Outputs:
//
//	error - fs.ErrNotExist when no cache file exists yet,
//	        cache.ErrCacheCorrupt for unreadable caches.
func (s *Service) LoadFromDisk(ctx context.Context) error {
	c, err := cache.Load(s.cachePath)
	if err != nil {
		return err
	}
	if err := s.publish(c); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "published snapshot from disk",
		"path", s.cachePath,
		"files", len(c.Files),
		"commit", c.GitCommit,
	)
	return nil
}

// Reindex scans the root, builds a fresh cache, persists it, and
// publishes the new snapshot.
//
// Description:
//
//	Runs the full pipeline: git metadata, scan, build, atomic save,
//	optional archive put, snapshot swap. Only one reindex runs at a
//	time; a second caller gets ErrReindexInProgress immediately rather
//	than queueing behind the first.
//
//	Missing git metadata downgrades to a warning: the snapshot is
//	built without commit/branch stamps and is not archived.
//
// Inputs:
//
//	ctx - Context for cancellation. A cancelled scan aborts the
//	      reindex without touching the published snapshot.
//
// Outputs:
//
//	*ReindexResponse - Counts, warnings, and metadata of the new snapshot.
//	error - ErrReindexInProgress, scan/persist failures.
//
// Thread Safety: Safe for concurrent use.
func (s *Service) Reindex(ctx context.Context) (*ReindexResponse, error) {
	if !s.reindexMu.TryLock() {
		recordReindex(ctx, 0, 0, ErrReindexInProgress)
		return nil, ErrReindexInProgress
	}
	defer s.reindexMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "acp.daemon", "Service.Reindex")
	defer span.End()

	start := time.Now()

	info, err := s.resolver(ctx, s.root)
	if err != nil {
		s.logger.WarnContext(ctx, "git metadata unavailable", "error", err)
		info = gitinfo.Info{}
	}

	result, err := s.scanner.Scan(ctx, s.root)
	if err != nil {
		telemetry.RecordError(span, err)
		recordReindex(ctx, time.Since(start), 0, err)
		return nil, fmt.Errorf("scanning %s: %w", s.root, err)
	}
	if result.Incomplete {
		telemetry.RecordError(span, ctx.Err())
		recordReindex(ctx, time.Since(start), 0, ctx.Err())
		return nil, fmt.Errorf("scan cancelled: %w", ctx.Err())
	}

	built := cache.Build(ctx, result.Records, cache.Metadata{
		GitCommit: info.Commit,
		GitBranch: info.Branch,
	})

	if err := built.Cache.Save(s.cachePath); err != nil {
		telemetry.RecordError(span, err)
		recordReindex(ctx, time.Since(start), 0, err)
		return nil, fmt.Errorf("persisting cache: %w", err)
	}

	archived := false
	if s.archive != nil && built.Cache.GitCommit != "" {
		if _, err := s.archive.Put(ctx, built.Cache); err != nil {
			s.logger.WarnContext(ctx, "snapshot archive put failed", "error", err)
		} else {
			archived = true
		}
	}

	if err := s.publish(built.Cache); err != nil {
		telemetry.RecordError(span, err)
		recordReindex(ctx, time.Since(start), 0, err)
		return nil, err
	}

	warnings := make([]scanner.Warning, 0, len(result.Warnings)+len(built.Warnings))
	warnings = append(warnings, result.Warnings...)
	warnings = append(warnings, built.Warnings...)

	symbols := 0
	for _, entry := range built.Cache.Files {
		symbols += len(entry.Symbols)
	}

	duration := time.Since(start)
	recordReindex(ctx, duration, len(built.Cache.Files), nil)

	s.logger.InfoContext(ctx, "reindex complete",
		"files_scanned", result.FilesScanned,
		"files_indexed", len(built.Cache.Files),
		"warnings", len(warnings),
		"duration_ms", duration.Milliseconds(),
		"commit", built.Cache.GitCommit,
		"archived", archived,
		"trace_id", telemetry.TraceID(ctx),
	)

	return &ReindexResponse{
		FilesScanned: result.FilesScanned,
		FilesSkipped: result.FilesSkipped,
		FilesIndexed: len(built.Cache.Files),
		Symbols:      symbols,
		Warnings:     warnings,
		DurationMs:   duration.Milliseconds(),
		GitCommit:    built.Cache.GitCommit,
		GitBranch:    built.Cache.GitBranch,
		Archived:     archived,
	}, nil
}

// publish swaps the served snapshot. Readers holding the previous
// engine keep it; new requests see the new one.
func (s *Service) publish(c *cache.Cache) error {
	eng, err := query.NewEngine(c)
	if err != nil {
		return err
	}
	s.engine.Store(eng)
	return nil
}
