// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guard renders modification verdicts from indexed constraints.
//
// Given a cache and a set of paths about to change, the guard answers
// one question per path: may an automated agent touch this file? The
// answer follows the lock level alone. Frozen denies, restricted allows
// with a caution, none allows, and paths the index has never seen allow
// with an unindexed notice so the caller knows no constraint was ever
// declared.
//
// # Thread Safety
//
// A Guard is safe for concurrent use; it only reads the immutable cache.
package guard

import "errors"

// Sentinel errors for guard checks.
var (
	// ErrNoCache is returned when constructing a guard without a cache.
	ErrNoCache = errors.New("no annotation cache loaded")

	// ErrMalformedDiff is returned when a patch cannot be parsed as a
	// unified diff.
	ErrMalformedDiff = errors.New("malformed unified diff")
)
