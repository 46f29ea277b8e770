// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AleutianAI/acp/cmd/acp/config"
	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/gitinfo"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runIndex scans the tree, builds the cache, and persists it.
//
// Description:
//
//	Runs the full index pipeline: scanner over the root, builder over
//	the records, atomic save to the cache path. Git metadata is
//	attached when the root is a repository; its absence downgrades to
//	a warning. With --archive (or archive.enabled in .acp.yaml) the
//	snapshot is also stored under its commit hash.
//
// Outputs:
//
//	Prints a summary and any warnings. Exits 1 on scan or save
//	failure, and when the scan was interrupted partway.
func runIndex(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := rootArg(args)

	if indexInitConfig {
		path, err := config.WriteDefault(root)
		switch {
		case errors.Is(err, fs.ErrExist):
			ux.Info(fmt.Sprintf("Config already exists at %s", path))
		case err != nil:
			ux.Error(fmt.Sprintf("Failed to write config: %v", err))
			os.Exit(1)
		default:
			ux.Success(fmt.Sprintf("Wrote default config to %s", path))
		}
	}

	cfg := projectConfig(root)

	ux.Title(fmt.Sprintf("Indexing %s", root))

	sc := scanner.New(scannerOptions(cfg)...)
	result, err := sc.Scan(ctx, root)
	if err != nil {
		ux.Error(fmt.Sprintf("Scan failed: %v", err))
		os.Exit(1)
	}

	var meta cache.Metadata
	info, err := gitinfo.Resolve(ctx, root)
	switch {
	case errors.Is(err, gitinfo.ErrNoRepository):
		ux.Warning("Not a git repository; indexing without revision metadata")
	case err != nil:
		ux.Warning(fmt.Sprintf("Could not read git metadata: %v", err))
	default:
		meta.GitCommit = info.Commit
		meta.GitBranch = info.Branch
	}

	build := cache.Build(ctx, result.Records, meta)

	outPath := indexOutput
	if outPath == "" {
		outPath = cfg.Cache.Path
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(root, outPath)
	}
	if err := build.Cache.Save(outPath); err != nil {
		ux.Error(fmt.Sprintf("Failed to save cache: %v", err))
		os.Exit(1)
	}

	warnings := append(result.Warnings, build.Warnings...)
	printWarnings(warnings)

	ux.Success(fmt.Sprintf("Indexed %d files: %d annotated, %d warnings in %v",
		result.FilesScanned, len(build.Cache.Files), len(warnings),
		result.Duration.Round(time.Millisecond)))
	ux.Muted(fmt.Sprintf("Cache written to %s", outPath))

	if indexArchive || cfg.Archive.Enabled {
		archiveSnapshot(ctx, cfg, root, build.Cache)
	}

	if result.Incomplete {
		ux.Warning("Scan interrupted; the cache reflects a partial tree")
		os.Exit(1)
	}
}

// archiveSnapshot stores the cache under its commit hash. Archive
// problems are reported but never fail the index; the cache file on
// disk is already the source of truth.
func archiveSnapshot(ctx context.Context, cfg config.ProjectConfig, root string, c *cache.Cache) {
	dir := cfg.Archive.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	db, err := badgerstore.Open(badgerstore.DefaultConfig(dir))
	if err != nil {
		ux.Warning(fmt.Sprintf("Snapshot archive unavailable: %v", err))
		return
	}
	defer db.Close()

	var opts []badgerstore.ArchiveOption
	if cfg.Archive.Keep > 0 {
		opts = append(opts, badgerstore.WithKeep(cfg.Archive.Keep))
	}
	arch, err := badgerstore.NewArchive(db, opts...)
	if err != nil {
		ux.Warning(fmt.Sprintf("Snapshot archive unavailable: %v", err))
		return
	}

	meta, err := arch.Put(ctx, c)
	switch {
	case errors.Is(err, badgerstore.ErrNoCommit):
		ux.Warning("No commit hash; snapshot not archived")
	case err != nil:
		ux.Warning(fmt.Sprintf("Snapshot archive failed: %v", err))
	default:
		ux.Muted(fmt.Sprintf("Archived snapshot %s (%d files)", shortCommit(meta.Commit), meta.Files))
	}
}
