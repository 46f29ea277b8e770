// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"strings"
	"time"
)

// LockLevel is the constraint strength attached to a file.
//
// The zero value ("") means "not set"; records that never saw an
// @acp:lock line carry it so the builder can tell explicit none from
// absent. Persisted entries always normalize to one of the three
// named levels.
type LockLevel string

const (
	// LockNone marks a file as freely modifiable.
	LockNone LockLevel = "none"

	// LockRestricted marks a file that should only change with care.
	LockRestricted LockLevel = "restricted"

	// LockFrozen marks a file that must not be modified.
	LockFrozen LockLevel = "frozen"
)

// ParseLockLevel parses a lock level token, case-insensitively.
//
// Returns (level, true) for a recognized token. Unrecognized tokens
// return (LockNone, false); callers record a syntax warning and index
// the file with the default.
func ParseLockLevel(s string) (LockLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LockNone, true
	case "restricted":
		return LockRestricted, true
	case "frozen":
		return LockFrozen, true
	default:
		return LockNone, false
	}
}

// Valid reports whether l is one of the three named levels.
func (l LockLevel) Valid() bool {
	return l == LockNone || l == LockRestricted || l == LockFrozen
}

// Priority orders lock levels for primer truncation: frozen sorts
// before restricted, restricted before none.
func (l LockLevel) Priority() int {
	switch l {
	case LockFrozen:
		return 0
	case LockRestricted:
		return 1
	default:
		return 2
	}
}

// AnnotationKind distinguishes file-level records from inline ones.
type AnnotationKind string

const (
	// KindFile is a file-level record (header block or @acp:file).
	KindFile AnnotationKind = "file"

	// KindFn is an inline record attached to a function declaration.
	KindFn AnnotationKind = "fn"

	// KindSym is an inline record attached to a non-function symbol.
	KindSym AnnotationKind = "sym"
)

// Annotation keywords recognized after the "@acp:" marker.
const (
	keywordFile   = "file"
	keywordLock   = "lock"
	keywordDomain = "domain"
	keywordOwner  = "owner"
	keywordLayer  = "layer"
	keywordFn     = "fn"
	keywordSym    = "sym"
)

// AnnotationRecord is one extracted annotation.
//
// Records are immutable once produced. A file-level record fills only
// the fields its source line sets (empty string means unset); the
// builder merges per-path records into a FileEntry with first-wins
// conflict resolution.
type AnnotationRecord struct {
	// FilePath is the path relative to the scan root, slash-separated.
	FilePath string `json:"file_path"`

	// Kind is file, fn, or sym.
	Kind AnnotationKind `json:"kind"`

	// SymbolName is the declared identifier for fn/sym records.
	SymbolName string `json:"symbol_name,omitempty"`

	// LineNumber is 1-indexed. For fn/sym records it is the line of
	// the declaration the annotation attached to, not the comment.
	LineNumber int `json:"line_number"`

	// Description is the annotation text with surrounding quotes removed.
	Description string `json:"description,omitempty"`

	// LockLevel is set only by @acp:lock lines.
	LockLevel LockLevel `json:"lock_level,omitempty"`

	// Domain is set only by @acp:domain lines.
	Domain string `json:"domain,omitempty"`

	// Owner is set only by @acp:owner lines.
	Owner string `json:"owner,omitempty"`

	// Layer is set only by @acp:layer lines.
	Layer string `json:"layer,omitempty"`
}

// ScanResult is the outcome of one tree scan.
type ScanResult struct {
	// Root is the absolute scan root.
	Root string `json:"root"`

	// Records holds all extracted annotations, sorted by path then line.
	Records []AnnotationRecord `json:"records"`

	// Warnings holds every non-fatal problem, in path order.
	Warnings []Warning `json:"warnings,omitempty"`

	// FilesScanned counts files that were read and parsed.
	FilesScanned int `json:"files_scanned"`

	// FilesSkipped counts files dropped by IO warnings.
	FilesSkipped int `json:"files_skipped"`

	// Duration is wall-clock scan time.
	Duration time.Duration `json:"duration_ns"`

	// Incomplete is true when the scan was cancelled partway through.
	Incomplete bool `json:"incomplete,omitempty"`
}
