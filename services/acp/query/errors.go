// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query answers lookups against a built annotation cache.
//
// The engine wraps one immutable Cache value and serves file, lock,
// domain, and symbol lookups plus the two derived texts: the bounded
// context primer and the one-line bootstrap summary. It never mutates
// the cache; swapping to a newer index means constructing a new engine.
//
// # Design Principles
//
// Lookups are read-only map and slice access with no locking, safe
// because the underlying cache is immutable. Missing files are an
// error (the caller asked about a specific path), while unknown lock
// levels, domains, and symbols return empty sets (the caller asked a
// set question whose answer is "nothing").
//
// # Thread Safety
//
// An Engine is safe for concurrent use.
package query

import "errors"

// Sentinel errors for query operations.
var (
	// ErrNoCache is returned when constructing an engine without a
	// cache, or by callers that have not indexed yet.
	ErrNoCache = errors.New("no annotation cache loaded")

	// ErrNotFound is returned by LookupFile for paths absent from the
	// index. Absence is meaningful: the file carries no annotations.
	ErrNotFound = errors.New("file not indexed")

	// ErrInvalidLockLevel is returned when a lookup names a lock level
	// outside none, restricted, frozen.
	ErrInvalidLockLevel = errors.New("invalid lock level")
)
