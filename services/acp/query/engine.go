// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/scanner"
)

// Engine answers lookups against one immutable cache.
type Engine struct {
	c *cache.Cache
}

// NewEngine wraps a cache for querying.
//
// The cache must be non-nil and is treated as immutable from here on.
// Re-indexing means building a new cache and a new engine.
func NewEngine(c *cache.Cache) (*Engine, error) {
	if c == nil {
		return nil, ErrNoCache
	}
	return &Engine{c: c}, nil
}

// Cache returns the wrapped cache.
func (e *Engine) Cache() *cache.Cache {
	return e.c
}

// SymbolMatch is one hit from a symbol lookup.
type SymbolMatch struct {
	// FilePath is the file declaring the symbol.
	FilePath string `json:"file_path"`

	// Line is the declaration line.
	Line int `json:"line"`

	// Name is the symbol name as declared.
	Name string `json:"name"`

	// Description is the annotation text, if any.
	Description string `json:"description,omitempty"`

	// LockLevel is the declaring file's lock level, so a caller can
	// tell at a glance whether touching the symbol is off limits.
	LockLevel scanner.LockLevel `json:"lock_level"`
}

// Stats summarizes one cache for humans and health endpoints.
type Stats struct {
	// Version is the cache schema version.
	Version string `json:"version"`

	// GeneratedAt is the build timestamp.
	GeneratedAt time.Time `json:"generated_at"`

	// GitCommit and GitBranch identify the indexed revision, when known.
	GitCommit string `json:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`

	// TotalFiles counts indexed files.
	TotalFiles int `json:"total_files"`

	// ByLockLevel counts files per named level. All three keys are
	// always present.
	ByLockLevel map[string]int `json:"by_lock_level"`

	// Domains counts files per declared domain.
	Domains map[string]int `json:"domains"`

	// TotalSymbols counts annotated symbols across all files.
	TotalSymbols int `json:"total_symbols"`
}

// normalizePath maps caller-supplied paths onto cache keys.
func normalizePath(path string) string {
	p := filepath.ToSlash(strings.TrimSpace(path))
	p = strings.TrimPrefix(p, "./")
	return p
}

// LookupFile returns the entry for one relative path.
//
// Description:
//
//	Resolves path against the file table after light normalization
//	(slash separators, no leading "./"). Unindexed paths return
//	ErrNotFound rather than an empty entry because absence carries
//	meaning: the file has no annotations and no declared constraints.
//
// Inputs:
//
//	ctx - Context, used only for metrics.
//	path - Path relative to the indexed root.
//
// Outputs:
//
//	*cache.FileEntry - The merged entry. Callers must not mutate it.
//	error - ErrNotFound wrapped with the path when absent.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) LookupFile(ctx context.Context, path string) (*cache.FileEntry, error) {
	entry, ok := e.c.Entry(normalizePath(path))
	recordLookup(ctx, "file", ok)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return &entry, nil
}

// LookupByLockLevel returns the sorted paths locked at exactly level.
//
// The result is possibly empty and shared with the cache; callers must
// not mutate it. Unknown levels are an error: a caller probing "sticky"
// has a bug, not an empty result.
func (e *Engine) LookupByLockLevel(ctx context.Context, level scanner.LockLevel) ([]string, error) {
	if !level.Valid() {
		recordLookup(ctx, "lock", false)
		return nil, fmt.Errorf("%w: %q", ErrInvalidLockLevel, level)
	}
	paths := e.c.PathsByLockLevel(level)
	recordLookup(ctx, "lock", len(paths) > 0)
	return paths, nil
}

// LookupByDomain returns the sorted paths declaring domain.
//
// Unknown domains return an empty set, not an error; domains are free
// text and probing one that does not exist is an ordinary answer.
func (e *Engine) LookupByDomain(ctx context.Context, domain string) []string {
	paths := e.c.PathsByDomain(domain)
	recordLookup(ctx, "domain", len(paths) > 0)
	return paths
}

// LookupSymbol returns every annotated symbol with the given name.
//
// Description:
//
//	Scans all file entries for symbols matching name exactly and
//	returns them ordered by file path, then line. Multiple hits are
//	normal: the same identifier may be annotated in several files.
//
// Inputs:
//
//	ctx - Context, used only for metrics.
//	name - Exact symbol name.
//
// Outputs:
//
//	[]SymbolMatch - Matches in (path, line) order; empty when none.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) LookupSymbol(ctx context.Context, name string) []SymbolMatch {
	var matches []SymbolMatch
	for path, entry := range e.c.Files {
		for _, sym := range entry.Symbols {
			if sym.Name != name {
				continue
			}
			matches = append(matches, SymbolMatch{
				FilePath:    path,
				Line:        sym.Line,
				Name:        sym.Name,
				Description: sym.Description,
				LockLevel:   entry.LockLevel,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].FilePath != matches[j].FilePath {
			return matches[i].FilePath < matches[j].FilePath
		}
		return matches[i].Line < matches[j].Line
	})
	recordLookup(ctx, "symbol", len(matches) > 0)
	return matches
}

// Stats summarizes the cache.
func (e *Engine) Stats(ctx context.Context) *Stats {
	s := &Stats{
		Version:     e.c.Version,
		GeneratedAt: e.c.GeneratedAt,
		GitCommit:   e.c.GitCommit,
		GitBranch:   e.c.GitBranch,
		TotalFiles:  len(e.c.Files),
		ByLockLevel: map[string]int{
			string(scanner.LockNone):       len(e.c.PathsByLockLevel(scanner.LockNone)),
			string(scanner.LockRestricted): len(e.c.PathsByLockLevel(scanner.LockRestricted)),
			string(scanner.LockFrozen):     len(e.c.PathsByLockLevel(scanner.LockFrozen)),
		},
		Domains: make(map[string]int, len(e.c.ByDomain)),
	}
	for domain, paths := range e.c.ByDomain {
		s.Domains[domain] = len(paths)
	}
	for _, entry := range e.c.Files {
		s.TotalSymbols += len(entry.Symbols)
	}
	recordLookup(ctx, "stats", true)
	return s
}
