// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/acp/services/acp/scanner"
)

// Metadata carries build inputs that do not come from scan records.
type Metadata struct {
	// GitCommit is the HEAD commit hash, empty outside a repository.
	GitCommit string

	// GitBranch is the checked-out branch, empty outside a repository
	// or on a detached HEAD.
	GitBranch string

	// GeneratedAt is the build timestamp. The zero value means "now".
	// Tests pin it to compare serialized caches byte for byte.
	GeneratedAt time.Time
}

// BuildResult pairs a built cache with the conflicts found on the way.
type BuildResult struct {
	// Cache is the built index. Never nil.
	Cache *Cache

	// Warnings holds one conflict warning per losing file-level value,
	// in path-then-line order. Empty when the tree is consistent.
	Warnings []scanner.Warning
}

// Build merges scan records into an immutable cache.
//
// Description:
//
//	Groups records by file path and merges file-level metadata with
//	first-wins resolution: the record on the lowest line establishes a
//	field, and every later record carrying a different non-empty value
//	for the same field loses and produces exactly one conflict warning.
//	Repeating the established value is not a conflict. Files that never
//	declare a lock level default to none. Inline fn/sym records become
//	symbol entries sorted by line, then name.
//
//	Build is deterministic: record order does not matter because records
//	are sorted by path then line before merging, and map groupings are
//	rebuilt from scratch. Serializing two caches built from the same
//	records and metadata yields identical bytes apart from generated_at.
//
// Inputs:
//
//	ctx - Context for tracing; Build itself never blocks.
//	records - Scan records, typically ScanResult.Records.
//	meta - Git metadata and an optional pinned timestamp.
//
// Outputs:
//
//	*BuildResult - The cache plus conflict warnings. Never nil.
//
// Thread Safety: Safe for concurrent use.
func Build(ctx context.Context, records []scanner.AnnotationRecord, meta Metadata) *BuildResult {
	ctx, span := startBuildSpan(ctx, len(records))
	defer span.End()

	start := time.Now()

	sorted := make([]scanner.AnnotationRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return sorted[i].LineNumber < sorted[j].LineNumber
	})

	files := make(map[string]FileEntry, len(sorted))
	var warnings []scanner.Warning

	for _, rec := range sorted {
		entry, ok := files[rec.FilePath]
		if !ok {
			entry = FileEntry{FilePath: rec.FilePath}
		}

		switch rec.Kind {
		case scanner.KindFile:
			warnings = append(warnings, mergeFileRecord(&entry, rec)...)
		case scanner.KindFn, scanner.KindSym:
			entry.Symbols = append(entry.Symbols, SymbolRecord{
				Name:        rec.SymbolName,
				Line:        rec.LineNumber,
				Description: rec.Description,
			})
		}

		files[rec.FilePath] = entry
	}

	byLock := map[string][]string{
		string(scanner.LockNone):       {},
		string(scanner.LockRestricted): {},
		string(scanner.LockFrozen):     {},
	}
	byDomain := make(map[string][]string)

	for path, entry := range files {
		if entry.LockLevel == "" {
			entry.LockLevel = scanner.LockNone
		}
		sort.SliceStable(entry.Symbols, func(i, j int) bool {
			if entry.Symbols[i].Line != entry.Symbols[j].Line {
				return entry.Symbols[i].Line < entry.Symbols[j].Line
			}
			return entry.Symbols[i].Name < entry.Symbols[j].Name
		})
		files[path] = entry

		byLock[string(entry.LockLevel)] = append(byLock[string(entry.LockLevel)], path)
		if entry.Domain != "" {
			byDomain[entry.Domain] = append(byDomain[entry.Domain], path)
		}
	}

	for _, paths := range byLock {
		sort.Strings(paths)
	}
	for _, paths := range byDomain {
		sort.Strings(paths)
	}

	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	c := &Cache{
		Version:     Version,
		GeneratedAt: generatedAt.UTC(),
		GitCommit:   meta.GitCommit,
		GitBranch:   meta.GitBranch,
		Files:       files,
		ByLockLevel: byLock,
		ByDomain:    byDomain,
	}

	span.SetAttributes(
		attribute.Int("build.files", len(files)),
		attribute.Int("build.conflicts", len(warnings)),
	)
	recordBuild(ctx, time.Since(start), len(warnings))

	return &BuildResult{Cache: c, Warnings: warnings}
}

// mergeFileRecord folds one file-level record into an entry.
// Returns one conflict warning per field the record lost.
func mergeFileRecord(entry *FileEntry, rec scanner.AnnotationRecord) []scanner.Warning {
	var conflicts []scanner.Warning

	conflict := func(field, kept, lost string) {
		conflicts = append(conflicts, scanner.Warning{
			Kind:    scanner.WarningConflict,
			Path:    rec.FilePath,
			Line:    rec.LineNumber,
			Message: fmt.Sprintf("%s %q conflicts with earlier %q; keeping %q", field, lost, kept, kept),
		})
	}

	if rec.Description != "" {
		if entry.Description == "" {
			entry.Description = rec.Description
		} else if entry.Description != rec.Description {
			conflict("description", entry.Description, rec.Description)
		}
	}
	if rec.LockLevel != "" {
		if entry.LockLevel == "" {
			entry.LockLevel = rec.LockLevel
		} else if entry.LockLevel != rec.LockLevel {
			conflict("lock level", string(entry.LockLevel), string(rec.LockLevel))
		}
	}
	if rec.Domain != "" {
		if entry.Domain == "" {
			entry.Domain = rec.Domain
		} else if entry.Domain != rec.Domain {
			conflict("domain", entry.Domain, rec.Domain)
		}
	}
	if rec.Owner != "" {
		if entry.Owner == "" {
			entry.Owner = rec.Owner
		} else if entry.Owner != rec.Owner {
			conflict("owner", entry.Owner, rec.Owner)
		}
	}
	if rec.Layer != "" {
		if entry.Layer == "" {
			entry.Layer = rec.Layer
		} else if entry.Layer != rec.Layer {
			conflict("layer", entry.Layer, rec.Layer)
		}
	}

	return conflicts
}
