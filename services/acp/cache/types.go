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
	"sort"
	"time"

	"github.com/AleutianAI/acp/services/acp/scanner"
)

// Version is the schema version written into every cache. Readers accept
// any cache whose major version matches; a different major is corrupt.
const Version = "1.0.0"

// DefaultFileName is the on-disk name of the cache at the project root.
const DefaultFileName = ".acp.cache.json"

// SymbolRecord is one annotated symbol inside a file entry.
type SymbolRecord struct {
	// Name is the declared identifier the annotation attached to.
	Name string `json:"name" validate:"required"`

	// Line is the 1-indexed line of the declaration.
	Line int `json:"line" validate:"gt=0"`

	// Description is the annotation text.
	Description string `json:"description,omitempty"`
}

// FileEntry is the merged per-file view of all annotations in one file.
type FileEntry struct {
	// FilePath is relative to the project root, slash-separated. It
	// always equals the entry's key in Cache.Files.
	FilePath string `json:"file_path" validate:"required"`

	// Description comes from the file's @acp:file line.
	Description string `json:"description,omitempty"`

	// LockLevel is always one of the three named levels; files that
	// never declared one default to none.
	LockLevel scanner.LockLevel `json:"lock_level" validate:"oneof=none restricted frozen"`

	// Domain is the functional area the file belongs to, if declared.
	Domain string `json:"domain,omitempty"`

	// Owner is the declared owning team or person, if any.
	Owner string `json:"owner,omitempty"`

	// Layer is the declared architectural layer, if any.
	Layer string `json:"layer,omitempty"`

	// Symbols holds annotated symbols sorted by line, then name.
	Symbols []SymbolRecord `json:"symbols,omitempty" validate:"dive"`
}

// Cache is the immutable index produced by one build.
//
// A cache is never mutated after Build returns; re-indexing produces a
// fresh value and consumers swap pointers. The groupings are derived
// from Files and validated against it on load.
type Cache struct {
	// Version is the schema version, semver.
	Version string `json:"version" validate:"required"`

	// GeneratedAt is the build timestamp in UTC. It is the only field
	// excluded from build determinism.
	GeneratedAt time.Time `json:"generated_at" validate:"required"`

	// GitCommit is the HEAD commit at build time, empty outside a repo.
	GitCommit string `json:"git_commit,omitempty"`

	// GitBranch is the checked-out branch at build time, empty outside
	// a repo or on a detached HEAD.
	GitBranch string `json:"git_branch,omitempty"`

	// Files maps relative path to its merged entry.
	Files map[string]FileEntry `json:"files" validate:"dive"`

	// ByLockLevel maps each named level to the sorted paths holding it.
	// All three levels are always present, possibly empty.
	ByLockLevel map[string][]string `json:"by_lock_level"`

	// ByDomain maps declared domains to their sorted paths. Only
	// domains that occur are present.
	ByDomain map[string][]string `json:"by_domain"`
}

// Entry returns the entry for a relative path.
func (c *Cache) Entry(path string) (FileEntry, bool) {
	e, ok := c.Files[path]
	return e, ok
}

// PathsByLockLevel returns the sorted paths indexed under level.
// The returned slice is shared with the cache; callers must not mutate it.
func (c *Cache) PathsByLockLevel(level scanner.LockLevel) []string {
	return c.ByLockLevel[string(level)]
}

// PathsByDomain returns the sorted paths indexed under domain.
// The returned slice is shared with the cache; callers must not mutate it.
func (c *Cache) PathsByDomain(domain string) []string {
	return c.ByDomain[domain]
}

// Domains returns the declared domain names in sorted order.
func (c *Cache) Domains() []string {
	out := make([]string, 0, len(c.ByDomain))
	for d := range c.ByDomain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
