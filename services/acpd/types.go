// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acpd

import (
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`

	// Indexed is true once a cache snapshot has been published.
	Indexed bool `json:"indexed"`
}

// LockResponse is the response for GET /v1/acp/locks/:level.
type LockResponse struct {
	// Level is the lock level that was queried.
	Level string `json:"level"`

	// Paths is the sorted list of file paths with that level.
	Paths []string `json:"paths"`

	// Count is len(Paths).
	Count int `json:"count"`
}

// DomainResponse is the response for GET /v1/acp/domains/:domain.
type DomainResponse struct {
	// Domain is the domain that was queried.
	Domain string `json:"domain"`

	// Paths is the sorted list of file paths in that domain.
	Paths []string `json:"paths"`

	// Count is len(Paths).
	Count int `json:"count"`
}

// SymbolsResponse is the response for GET /v1/acp/symbols/:name.
type SymbolsResponse struct {
	// Name is the symbol name that was queried.
	Name string `json:"name"`

	// Matches holds every indexed symbol with that exact name,
	// ordered by file path then line.
	Matches []query.SymbolMatch `json:"matches"`

	// Count is len(Matches).
	Count int `json:"count"`
}

// PrimerQuery is the query params for GET /v1/acp/primer.
type PrimerQuery struct {
	// Domain scopes the primer to one domain. Empty means global.
	Domain string `form:"domain"`

	// MaxLength is the primer character budget. Default: 2048.
	MaxLength int `form:"max_length" binding:"omitempty,gt=0"`
}

// PrimerResponse is the response for GET /v1/acp/primer.
type PrimerResponse struct {
	// Text is the primer, never longer than MaxLength.
	Text string `json:"text"`

	// Domain echoes the requested domain scope, if any.
	Domain string `json:"domain,omitempty"`

	// MaxLength is the character budget the primer was built against.
	MaxLength int `json:"max_length"`

	// Truncated is true when entries were dropped to fit.
	Truncated bool `json:"truncated"`

	// Dropped counts the entries that did not fit.
	Dropped int `json:"dropped,omitempty"`
}

// BootstrapResponse is the response for GET /v1/acp/bootstrap.
type BootstrapResponse struct {
	// Text is the fixed-ceiling bootstrap line.
	Text string `json:"text"`
}

// ReindexResponse is the response for POST /v1/acp/reindex.
type ReindexResponse struct {
	// FilesScanned is the number of files read and parsed.
	FilesScanned int `json:"files_scanned"`

	// FilesSkipped is the number of files dropped with IO warnings.
	FilesSkipped int `json:"files_skipped"`

	// FilesIndexed is the number of file entries in the new snapshot.
	FilesIndexed int `json:"files_indexed"`

	// Symbols is the total symbol count in the new snapshot.
	Symbols int `json:"symbols"`

	// Warnings holds scan and build warnings, in path order.
	Warnings []scanner.Warning `json:"warnings,omitempty"`

	// DurationMs is the wall-clock scan+build time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// GitCommit is the commit hash stamped into the snapshot, if any.
	GitCommit string `json:"git_commit,omitempty"`

	// GitBranch is the branch stamped into the snapshot, if any.
	GitBranch string `json:"git_branch,omitempty"`

	// Archived is true when the snapshot was stored in the archive.
	Archived bool `json:"archived"`
}

// SnapshotsResponse is the response for GET /v1/acp/snapshots.
type SnapshotsResponse struct {
	// Snapshots lists archived snapshot metadata, newest first.
	Snapshots []badgerstore.SnapshotMeta `json:"snapshots"`

	// Count is len(Snapshots).
	Count int `json:"count"`
}
