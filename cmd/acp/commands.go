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
	"log/slog"
	"time"

	"github.com/AleutianAI/acp/pkg/logging"
	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	plainOutput bool
	verboseLogs bool

	// cachePath overrides where query-side commands look for the
	// cache file. Empty means the project config / default location.
	cachePath string

	// index
	indexOutput     string
	indexArchive    bool
	indexInitConfig bool

	// query / snapshots machine output
	jsonOutput bool

	// primer
	primerDomain    string
	primerMaxLength int

	// check
	checkDiff bool

	// watch
	watchDebounce time.Duration

	// snapshots
	snapshotsDir string

	rootCmd = &cobra.Command{
		Use:   "acp",
		Short: "Index and query @acp constraint annotations",
		Long: `acp scans source trees for @acp constraint annotations, builds a
versioned cache, and answers queries against it: which files are
frozen, who owns a path, what belongs to a domain, and whether a
planned modification is allowed.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainOutput {
				ux.SetMode(ux.ModePlain)
			} else {
				ux.InitMode()
			}
			level := logging.LevelWarn
			if verboseLogs {
				level = logging.LevelDebug
			}
			logger := logging.New(logging.Config{Level: level, Service: "acp"})
			slog.SetDefault(logger.Slog())
		},
	}

	// --- Indexing ---
	indexCmd = &cobra.Command{
		Use:   "index [root]",
		Short: "Scan a source tree and build the annotation cache",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIndex, // Defined in cmd_index.go
	}

	// --- Queries ---
	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Query the annotation cache",
	}
	queryFileCmd = &cobra.Command{
		Use:   "file [path]",
		Short: "Show the constraint entry for one file",
		Args:  cobra.ExactArgs(1),
		Run:   runQueryFile, // Defined in cmd_query.go
	}
	queryLockCmd = &cobra.Command{
		Use:   "lock [level]",
		Short: "List files at a lock level (none, restricted, frozen)",
		Args:  cobra.ExactArgs(1),
		Run:   runQueryLock, // Defined in cmd_query.go
	}
	queryDomainCmd = &cobra.Command{
		Use:   "domain [name]",
		Short: "List files declared under a domain",
		Args:  cobra.ExactArgs(1),
		Run:   runQueryDomain, // Defined in cmd_query.go
	}
	querySymbolCmd = &cobra.Command{
		Use:   "symbol [name]",
		Short: "Find annotated symbols by name",
		Args:  cobra.ExactArgs(1),
		Run:   runQuerySymbol, // Defined in cmd_query.go
	}
	queryStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Summarize the cache",
		Args:  cobra.NoArgs,
		Run:   runQueryStats, // Defined in cmd_query.go
	}

	// --- Primers ---
	primerCmd = &cobra.Command{
		Use:   "primer",
		Short: "Generate a bounded constraint primer",
		Long: `Generates a length-bounded digest of the indexed constraints,
suitable for injecting into an agent's context. Without --domain the
primer summarizes the whole tree; with it, the named domain's files.`,
		Args: cobra.NoArgs,
		Run:  runPrimer, // Defined in cmd_primer.go
	}
	bootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Print the minimal always-injectable bootstrap line",
		Args:  cobra.NoArgs,
		Run:   runBootstrap, // Defined in cmd_primer.go
	}

	// --- Guardrails ---
	checkCmd = &cobra.Command{
		Use:   "check [path...]",
		Short: "Check whether paths may be modified under the indexed constraints",
		Long: `Reports a verdict per path: deny for frozen files, caution for
restricted ones, allow otherwise. Reads a unified diff from stdin with
--diff and checks every touched file. Exits non-zero when anything is
denied.`,
		Run: runCheck, // Defined in cmd_check.go
	}

	// --- Watch Mode ---
	watchCmd = &cobra.Command{
		Use:   "watch [root]",
		Short: "Watch a tree and re-index on change",
		Args:  cobra.MaximumNArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}

	// --- Maintenance ---
	validateCmd = &cobra.Command{
		Use:   "validate [cache-file]",
		Short: "Validate a persisted cache file",
		Args:  cobra.ExactArgs(1),
		Run:   runValidate, // Defined in cmd_validate.go
	}

	snapshotsCmd = &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect archived cache snapshots",
	}
	snapshotsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots",
		Args:  cobra.NoArgs,
		Run:   runSnapshotsList, // Defined in cmd_snapshots.go
	}
	snapshotsShowCmd = &cobra.Command{
		Use:   "show [commit]",
		Short: "Show the snapshot archived for a commit (prefixes allowed)",
		Args:  cobra.ExactArgs(1),
		Run:   runSnapshotsShow, // Defined in cmd_snapshots.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false,
		"Disable styled output (also via ACP_PLAIN=1 or piping)")
	rootCmd.PersistentFlags().BoolVarP(&verboseLogs, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "",
		"Cache file to write (default: cache.path from .acp.yaml)")
	indexCmd.Flags().BoolVar(&indexArchive, "archive", false,
		"Also archive the snapshot under its commit hash")
	indexCmd.Flags().BoolVar(&indexInitConfig, "init-config", false,
		"Write a default .acp.yaml at the root before indexing")

	rootCmd.AddCommand(queryCmd)
	queryCmd.PersistentFlags().StringVar(&cachePath, "cache", "",
		"Cache file to query (default: cache.path from .acp.yaml)")
	queryCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")
	queryCmd.AddCommand(queryFileCmd)
	queryCmd.AddCommand(queryLockCmd)
	queryCmd.AddCommand(queryDomainCmd)
	queryCmd.AddCommand(querySymbolCmd)
	queryCmd.AddCommand(queryStatsCmd)

	rootCmd.AddCommand(primerCmd)
	primerCmd.Flags().StringVar(&cachePath, "cache", "",
		"Cache file to read (default: cache.path from .acp.yaml)")
	primerCmd.Flags().StringVarP(&primerDomain, "domain", "d", "",
		"Scope the primer to one domain")
	primerCmd.Flags().IntVar(&primerMaxLength, "max-length", 0,
		"Maximum primer length in characters (0 = default budget)")

	rootCmd.AddCommand(bootstrapCmd)
	bootstrapCmd.Flags().StringVar(&cachePath, "cache", "",
		"Cache file to read (default: cache.path from .acp.yaml)")

	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&cachePath, "cache", "",
		"Cache file to check against (default: cache.path from .acp.yaml)")
	checkCmd.Flags().BoolVar(&checkDiff, "diff", false,
		"Read a unified diff from stdin and check every touched file")
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Output the full report as JSON")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0,
		"Quiet period before re-indexing a change burst (default 750ms)")
	watchCmd.Flags().BoolVar(&indexArchive, "archive", false,
		"Archive each re-indexed snapshot under its commit hash")

	rootCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.PersistentFlags().StringVar(&snapshotsDir, "dir", "",
		"Archive directory (default: archive.dir from .acp.yaml)")
	snapshotsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
}
