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
	"os"
	"sort"
	"time"

	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/pkg/validation"
	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/AleutianAI/acp/services/acp/scanner"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runQueryFile shows the constraint entry for one file. A path that is
// not in the index exits 1, the same contract as grep's no-match.
func runQueryFile(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	path := args[0]
	if err := validation.ValidateRelPath(path); err != nil {
		ux.Error(fmt.Sprintf("Bad path: %v", err))
		os.Exit(1)
	}

	eng := loadEngineOrExit()
	entry, err := eng.LookupFile(ctx, path)
	if errors.Is(err, query.ErrNotFound) {
		ux.Info(fmt.Sprintf("%s is not in the index", path))
		os.Exit(1)
	}
	if err != nil {
		ux.Error(fmt.Sprintf("Lookup failed: %v", err))
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(entry)
		return
	}
	printFileEntry(entry)
}

// runQueryLock lists the files indexed at one lock level. The empty
// list is a normal answer: exit 0 either way.
func runQueryLock(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	level, ok := scanner.ParseLockLevel(args[0])
	if !ok {
		ux.Error(fmt.Sprintf("Unknown lock level %q (want none, restricted, or frozen)", args[0]))
		os.Exit(1)
	}

	eng := loadEngineOrExit()
	paths, err := eng.LookupByLockLevel(ctx, level)
	if err != nil {
		ux.Error(fmt.Sprintf("Lookup failed: %v", err))
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(paths)
		return
	}
	printPathList(fmt.Sprintf("%d %s file(s)", len(paths), level), paths)
}

// runQueryDomain lists the files declared under a domain.
func runQueryDomain(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	domain := args[0]
	if err := validation.ValidateQueryTerm("domain", domain); err != nil {
		ux.Error(fmt.Sprintf("Bad domain: %v", err))
		os.Exit(1)
	}

	eng := loadEngineOrExit()
	paths := eng.LookupByDomain(ctx, domain)

	if jsonOutput {
		printJSON(paths)
		return
	}
	printPathList(fmt.Sprintf("%d file(s) in domain %s", len(paths), domain), paths)
}

// runQuerySymbol finds annotated symbols by name across the tree.
// No match exits 1.
func runQuerySymbol(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	name := args[0]
	if err := validation.ValidateQueryTerm("symbol", name); err != nil {
		ux.Error(fmt.Sprintf("Bad symbol name: %v", err))
		os.Exit(1)
	}

	eng := loadEngineOrExit()
	matches := eng.LookupSymbol(ctx, name)

	if jsonOutput {
		printJSON(matches)
		return
	}
	if len(matches) == 0 {
		ux.Info(fmt.Sprintf("No annotated symbol named %q", name))
		os.Exit(1)
	}
	for _, m := range matches {
		line := fmt.Sprintf("%s:%d  %s [%s]", m.FilePath, m.Line, m.Name, m.LockLevel)
		if m.Description != "" {
			line += "  " + m.Description
		}
		fmt.Println(line)
	}
}

// runQueryStats summarizes the cache.
func runQueryStats(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	eng := loadEngineOrExit()
	stats := eng.Stats(ctx)

	if jsonOutput {
		printJSON(stats)
		return
	}

	ux.Title("Cache stats")
	fmt.Printf("version:      %s\n", stats.Version)
	fmt.Printf("generated_at: %s\n", stats.GeneratedAt.Format(time.RFC3339))
	if stats.GitCommit != "" {
		fmt.Printf("revision:     %s", shortCommit(stats.GitCommit))
		if stats.GitBranch != "" {
			fmt.Printf(" (%s)", stats.GitBranch)
		}
		fmt.Println()
	}
	fmt.Printf("files:        %d\n", stats.TotalFiles)
	fmt.Printf("symbols:      %d\n", stats.TotalSymbols)

	fmt.Println("by lock level:")
	for _, level := range []scanner.LockLevel{scanner.LockFrozen, scanner.LockRestricted, scanner.LockNone} {
		fmt.Printf("  %-10s %d\n", level, stats.ByLockLevel[string(level)])
	}

	if len(stats.Domains) > 0 {
		domains := make([]string, 0, len(stats.Domains))
		for d := range stats.Domains {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		fmt.Println("domains:")
		for _, d := range domains {
			fmt.Printf("  %-20s %d\n", d, stats.Domains[d])
		}
	}
}

// =============================================================================
// OUTPUT FORMATTING
// =============================================================================

// printFileEntry renders one entry in the human layout.
func printFileEntry(entry *cache.FileEntry) {
	header := fmt.Sprintf("%s [%s]", entry.FilePath, entry.LockLevel)
	switch entry.LockLevel {
	case scanner.LockFrozen:
		ux.Error(header)
	case scanner.LockRestricted:
		ux.Warning(header)
	default:
		ux.Success(header)
	}

	if entry.Description != "" {
		fmt.Printf("  %s\n", entry.Description)
	}
	if entry.Domain != "" {
		fmt.Printf("  domain: %s\n", entry.Domain)
	}
	if entry.Owner != "" {
		fmt.Printf("  owner:  %s\n", entry.Owner)
	}
	if entry.Layer != "" {
		fmt.Printf("  layer:  %s\n", entry.Layer)
	}
	if len(entry.Symbols) > 0 {
		fmt.Println("  symbols:")
		for _, sym := range entry.Symbols {
			line := fmt.Sprintf("    %4d  %s", sym.Line, sym.Name)
			if sym.Description != "" {
				line += "  " + sym.Description
			}
			fmt.Println(line)
		}
	}
}

// printPathList writes bare paths to stdout so output pipes cleanly;
// the summary header only appears in styled (interactive) mode.
func printPathList(summary string, paths []string) {
	if ux.GetMode() == ux.ModeStyled {
		ux.Muted(summary)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}
