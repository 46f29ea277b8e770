// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache builds and persists the versioned annotation index.
//
// The builder merges flat scanner records into per-file entries with
// first-wins conflict resolution and derives the lock-level and domain
// groupings. A built Cache is immutable: re-indexing produces a new
// value and consumers swap pointers, so readers never observe a partial
// index.
//
// # Design Principles
//
// Build is pure. The same records and the same metadata produce a
// byte-identical serialized cache, except for the generated_at
// timestamp. Conflicting file-level metadata never fails a build and is
// never silently dropped: the first value wins and each losing value is
// recorded as exactly one conflict warning.
//
// # Thread Safety
//
// Build and Load are safe for concurrent use. A *Cache is safe to share
// between goroutines as long as no caller mutates it.
package cache

import "errors"

// Sentinel errors for cache persistence.
var (
	// ErrCacheCorrupt is returned by Load when the on-disk cache cannot
	// be trusted: undecodable JSON, a failed schema validation, an
	// incompatible version, or groupings that disagree with the file
	// table. Callers recover by re-indexing.
	ErrCacheCorrupt = errors.New("cache corrupt")

	// ErrVersionMismatch is returned when the cache was written by an
	// incompatible schema major. It always wraps ErrCacheCorrupt.
	ErrVersionMismatch = errors.New("cache schema version mismatch")

	// ErrNilCache is returned when encoding or saving a nil cache.
	ErrNilCache = errors.New("nil cache")
)
