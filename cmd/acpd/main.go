// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command acpd starts the ACP constraint query daemon.
//
// acpd serves the annotation cache over HTTP so agents and editor
// integrations can query constraints without shelling out to the CLI:
//
//   - Published snapshots are immutable; a re-index swaps them
//     atomically and requests in flight keep the one they started with.
//   - Re-indexing runs at most once at a time; concurrent triggers get
//     409 instead of queueing.
//   - Optionally watches the tree and re-indexes on change, and
//     archives each snapshot under its commit hash.
//
// Usage:
//
//	go run ./cmd/acpd -root /path/to/project
//	go run ./cmd/acpd -root /path/to/project -port 9090 -watch
//	go run ./cmd/acpd -root /path/to/project -archive-dir /var/lib/acp
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/acp/health
//
//	# Constraints on one file
//	curl http://localhost:8080/v1/acp/files/pkg/auth/handler.go
//
//	# All frozen files
//	curl http://localhost:8080/v1/acp/locks/frozen
//
//	# Bounded primer for a domain
//	curl "http://localhost:8080/v1/acp/primer?domain=auth&max_length=1200"
//
//	# Trigger a re-index
//	curl -X POST http://localhost:8080/v1/acp/reindex
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	acpconfig "github.com/AleutianAI/acp/cmd/acp/config"
	"github.com/AleutianAI/acp/pkg/logging"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
	"github.com/AleutianAI/acp/services/acp/telemetry"
	"github.com/AleutianAI/acp/services/acp/watch"
	"github.com/AleutianAI/acp/services/acpd"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	root := flag.String("root", ".", "Project root to index and serve")
	cachePath := flag.String("cache", "", "Cache file path (default <root>/.acp.cache.json)")
	archiveDir := flag.String("archive-dir", "", "Badger directory for the snapshot archive (empty disables it)")
	watchMode := flag.Bool("watch", false, "Re-index automatically when the tree changes")
	reindex := flag.Bool("reindex", false, "Run an index pass at startup even when a cache file exists")
	debug := flag.Bool("debug", false, "Enable debug mode")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (empty disables file logging)")
	flag.Parse()

	// Structured logging for the whole process
	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Service: "acpd",
		LogDir:  *logDir,
		JSON:    true,
	})
	slog.SetDefault(logger.Slog())

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		slog.Error("Bad root path", slog.String("root", *root), slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Telemetry: tracer + meter, Prometheus handler for /metrics
	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.ServiceName = "acpd"
	telemetryCfg.ServiceVersion = acpd.ServiceVersion
	shutdownTelemetry, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		slog.Error("Failed to init telemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Scanner settings come from the project's .acp.yaml so the daemon
	// and the CLI index identically.
	projectCfg, err := acpconfig.Read(absRoot)
	if err != nil {
		slog.Error("Bad project config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Snapshot archive (optional)
	var arch *badgerstore.Archive
	var db *badgerstore.DB
	if *archiveDir != "" {
		db, err = badgerstore.Open(badgerstore.DefaultConfig(*archiveDir))
		if err != nil {
			slog.Error("Failed to open snapshot archive", slog.String("error", err.Error()))
			os.Exit(1)
		}
		archOpts := []badgerstore.ArchiveOption{badgerstore.WithLogger(slog.Default())}
		if projectCfg.Archive.Keep > 0 {
			archOpts = append(archOpts, badgerstore.WithKeep(projectCfg.Archive.Keep))
		}
		arch, err = badgerstore.NewArchive(db, archOpts...)
		if err != nil {
			slog.Error("Failed to open snapshot archive", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("Snapshot archive enabled", slog.String("dir", *archiveDir))
	}

	// Create the service
	scannerOpts := append(projectCfg.ScannerOptions(), scanner.WithLogger(slog.Default()))
	svc, err := acpd.NewService(acpd.Config{
		Root:           absRoot,
		CachePath:      *cachePath,
		ScannerOptions: scannerOpts,
		Archive:        arch,
		Logger:         slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to create service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	publishInitialSnapshot(ctx, svc, *reindex)

	// Watch mode: debounced re-index on tree changes
	var watcher *watch.Watcher
	if *watchMode {
		watcher = startWatcher(ctx, svc, absRoot)
	}

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("acpd"))
	if *debug {
		router.Use(gin.Logger())
	}

	handlers := acpd.NewHandlers(svc)
	v1 := router.Group("/v1")
	acpd.RegisterRoutes(v1, handlers)

	// Operational endpoints outside the versioned API
	router.GET("/health", handlers.HandleHealth)
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	printBanner(*port, absRoot, svc.Indexed(), *watchMode, arch != nil)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down acpd")
		if watcher != nil {
			watcher.Stop()
		}
		if db != nil {
			if err := db.Close(); err != nil {
				slog.Error("Archive close failed", slog.String("error", err.Error()))
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Error("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
		_ = logger.Close()
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting acpd",
		slog.String("address", addr),
		slog.String("root", absRoot),
		slog.Bool("indexed", svc.Indexed()))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// publishInitialSnapshot loads the persisted cache or builds a fresh
// one. Neither failure is fatal: the daemon starts and answers 503
// until a reindex succeeds.
func publishInitialSnapshot(ctx context.Context, svc *acpd.Service, forceReindex bool) {
	err := svc.LoadFromDisk(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("No cache file yet; indexing", slog.String("path", svc.CachePath()))
	case err != nil:
		slog.Warn("Persisted cache rejected; re-indexing", slog.String("error", err.Error()))
	default:
		slog.Info("Loaded cache from disk", slog.String("path", svc.CachePath()))
	}

	if forceReindex || !svc.Indexed() {
		resp, err := svc.Reindex(ctx)
		if err != nil {
			slog.Warn("Initial index failed; serving 503 until reindex succeeds",
				slog.String("error", err.Error()))
			return
		}
		slog.Info("Published initial snapshot",
			slog.Int("files_scanned", resp.FilesScanned),
			slog.Int("files_indexed", resp.FilesIndexed),
			slog.Int("warnings", len(resp.Warnings)),
			slog.Int64("duration_ms", resp.DurationMs))
	}
}

// startWatcher begins the debounced re-index loop. Watch failures are
// fatal at startup: an operator who asked for -watch must not silently
// run a daemon that serves stale snapshots.
func startWatcher(ctx context.Context, svc *acpd.Service, root string) *watch.Watcher {
	opts := watch.DefaultOptions()
	opts.Logger = slog.Default()

	w, err := watch.New(root, func(ctx context.Context, changes []watch.Change) {
		resp, err := svc.Reindex(ctx)
		switch {
		case errors.Is(err, acpd.ErrReindexInProgress):
			// The running pass will pick the changes up from the tree.
		case err != nil:
			slog.Error("Re-index failed", slog.String("error", err.Error()))
		default:
			slog.Info("Re-indexed after changes",
				slog.Int("changes", len(changes)),
				slog.Int("files_indexed", resp.FilesIndexed),
				slog.Int("warnings", len(resp.Warnings)))
		}
	}, &opts)
	if err != nil {
		slog.Error("Failed to create watcher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := w.Start(ctx); err != nil {
		slog.Error("Failed to start watcher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Watch mode enabled", slog.String("root", root))
	return w
}

func printBanner(port int, root string, indexed, watching, archiving bool) {
	onOff := func(b bool) string {
		if b {
			return "ENABLED"
		}
		return "disabled"
	}
	snapshot := "none (POST /v1/acp/reindex to build one)"
	if indexed {
		snapshot = "published"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                          ACP QUERY DAEMON                         ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Constraint queries over the indexed annotation cache.            ║
║  Root:     %-55s ║
║  Snapshot: %-55s ║
║  Watch:    %-55s ║
║  Archive:  %-55s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ curl http://localhost:%-5d/v1/acp/stats                    │  ║
║  │ curl http://localhost:%-5d/v1/acp/locks/frozen             │  ║
║  │ curl http://localhost:%-5d/v1/acp/files/<path>             │  ║
║  │ curl -X POST http://localhost:%-5d/v1/acp/reindex          │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Queries: /files/*path, /locks/:level, /domains/:domain,      ║
║  │            /symbols/:name, /stats                              ║
║  ├── Primers: /primer?domain=&max_length=, /bootstrap             ║
║  ├── Index:   POST /reindex                                       ║
║  ├── Archive: /snapshots, /snapshots/:commit                      ║
║  └── Ops:     /health, /metrics                                   ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, root, snapshot, onOff(watching), onOff(archiving), port, port, port, port)
}
