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
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/AleutianAI/acp/pkg/ux"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
	"github.com/AleutianAI/acp/services/acp/watch"
	"github.com/AleutianAI/acp/services/acpd"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runWatch keeps the cache in step with the tree: an initial index,
// then one re-index per debounced change batch until interrupted. The
// pipeline is the daemon's, so the cache file swap is atomic and
// concurrent triggers collapse into one run.
func runWatch(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := rootArg(args)
	cfg := projectConfig(root)

	outPath := cfg.Cache.Path
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(root, outPath)
	}

	var arch *badgerstore.Archive
	if indexArchive || cfg.Archive.Enabled {
		dir := cfg.Archive.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		var done func()
		arch, done = openArchiveOrExit(dir)
		defer done()
	}

	svc, err := acpd.NewService(acpd.Config{
		Root:           root,
		CachePath:      outPath,
		ScannerOptions: scannerOptions(cfg),
		Archive:        arch,
		Logger:         slog.Default(),
	})
	if err != nil {
		ux.Error(fmt.Sprintf("Cannot watch %s: %v", root, err))
		os.Exit(1)
	}

	ux.Title(fmt.Sprintf("Watching %s", root))

	resp, err := svc.Reindex(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("Initial index failed: %v", err))
		os.Exit(1)
	}
	reportReindex(resp, 0)

	opts := watch.DefaultOptions()
	if watchDebounce > 0 {
		opts.Debounce = watchDebounce
	}
	opts.Logger = slog.Default()

	w, err := watch.New(root, func(ctx context.Context, changes []watch.Change) {
		resp, err := svc.Reindex(ctx)
		switch {
		case errors.Is(err, acpd.ErrReindexInProgress):
			// The running pass will pick the changes up from the tree.
		case err != nil:
			ux.Error(fmt.Sprintf("Re-index failed: %v", err))
		default:
			reportReindex(resp, len(changes))
		}
	}, &opts)
	if err != nil {
		ux.Error(fmt.Sprintf("Cannot watch %s: %v", root, err))
		os.Exit(1)
	}
	if err := w.Start(ctx); err != nil {
		ux.Error(fmt.Sprintf("Cannot watch %s: %v", root, err))
		os.Exit(1)
	}
	defer w.Stop()

	ux.Info("Press Ctrl+C to stop")
	<-ctx.Done()
	ux.Info("Stopped")
}

// reportReindex prints a one-line summary for an index pass.
func reportReindex(resp *acpd.ReindexResponse, changes int) {
	duration := time.Duration(resp.DurationMs) * time.Millisecond
	line := fmt.Sprintf("Indexed %d files: %d annotated, %d warnings in %v",
		resp.FilesScanned, resp.FilesIndexed, len(resp.Warnings), duration)
	if changes > 0 {
		line = fmt.Sprintf("%d change(s): %s", changes, line)
	}
	ux.Success(line)
	printWarnings(resp.Warnings)
}
