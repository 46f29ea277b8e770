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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AleutianAI/acp/cmd/acp/config"
	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
)

// =============================================================================
// SHARED COMMAND HELPERS
// =============================================================================

// rootArg resolves the optional [root] positional to an absolute path.
func rootArg(args []string) string {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		ux.Error(fmt.Sprintf("Cannot resolve %s: %v", root, err))
		os.Exit(1)
	}
	return abs
}

// projectConfig reads .acp.yaml at root, exiting on a malformed file.
// A missing file yields the defaults.
func projectConfig(root string) config.ProjectConfig {
	cfg, err := config.Read(root)
	if err != nil {
		ux.Error(fmt.Sprintf("Bad project config: %v", err))
		os.Exit(1)
	}
	return cfg
}

// scannerOptions converts the project config into scanner options,
// routing scan progress through the process logger.
func scannerOptions(cfg config.ProjectConfig) []scanner.Option {
	return append(cfg.ScannerOptions(), scanner.WithLogger(slog.Default()))
}

// resolveCachePath picks the cache file for query-side commands: the
// --cache flag when given, otherwise the config at the working
// directory.
func resolveCachePath() string {
	if cachePath != "" {
		return cachePath
	}
	cfg, err := config.Read(".")
	if err != nil || cfg.Cache.Path == "" {
		return cache.DefaultFileName
	}
	return cfg.Cache.Path
}

// loadCacheOrExit loads and validates the cache file, translating the
// failure modes into actionable messages.
func loadCacheOrExit(path string) *cache.Cache {
	c, err := cache.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ux.Error(fmt.Sprintf("No cache found at %s", path))
		ux.Info("Run 'acp index' to build one.")
		os.Exit(1)
	case errors.Is(err, cache.ErrCacheCorrupt):
		ux.Error(fmt.Sprintf("Cache at %s failed validation: %v", path, err))
		ux.Info("Re-run 'acp index' to rebuild it.")
		os.Exit(1)
	case err != nil:
		ux.Error(fmt.Sprintf("Failed to load cache: %v", err))
		os.Exit(1)
	}
	return c
}

// loadEngineOrExit builds a query engine over the resolved cache.
func loadEngineOrExit() *query.Engine {
	eng, err := query.NewEngine(loadCacheOrExit(resolveCachePath()))
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open cache: %v", err))
		os.Exit(1)
	}
	return eng
}

// openArchiveOrExit opens the snapshot archive at dir. The caller must
// call the returned closer.
func openArchiveOrExit(dir string) (*badgerstore.Archive, func()) {
	db, err := badgerstore.Open(badgerstore.DefaultConfig(dir))
	if err != nil {
		ux.Error(fmt.Sprintf("Cannot open archive at %s: %v", dir, err))
		os.Exit(1)
	}
	arch, err := badgerstore.NewArchive(db, badgerstore.WithLogger(slog.Default()))
	if err != nil {
		_ = db.Close()
		ux.Error(fmt.Sprintf("Cannot open archive at %s: %v", dir, err))
		os.Exit(1)
	}
	return arch, func() { _ = db.Close() }
}

// resolveArchiveDir picks the archive directory: the --dir flag when
// given, otherwise the config at the working directory.
func resolveArchiveDir() string {
	if snapshotsDir != "" {
		return snapshotsDir
	}
	cfg, err := config.Read(".")
	if err != nil || cfg.Archive.Dir == "" {
		return config.DefaultConfig().Archive.Dir
	}
	return cfg.Archive.Dir
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// printWarnings shows scan and build warnings, truncated past a page.
func printWarnings(warnings []scanner.Warning) {
	const maxShown = 20
	for i, w := range warnings {
		if i == maxShown {
			ux.Muted(fmt.Sprintf("... and %d more warnings", len(warnings)-maxShown))
			return
		}
		ux.Warning(w.Error())
	}
}

// shortCommit abbreviates a hash for display.
func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
