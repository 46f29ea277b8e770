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
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// globMatcher filters scan candidates against include/exclude patterns.
//
// Patterns use doublestar glob syntax:
//   - * matches any sequence of non-separator characters
//   - ** matches any sequence of characters including separators
//   - ? matches any single non-separator character
//   - [abc] matches one of the characters in brackets
//
// Thread Safety: globMatcher is safe for concurrent use after creation.
type globMatcher struct {
	includes []string
	excludes []string
}

// newGlobMatcher creates a matcher with the given patterns.
//
// If includes is empty, all files are included by default.
// If excludes is empty, no files are excluded.
func newGlobMatcher(includes, excludes []string) *globMatcher {
	return &globMatcher{
		includes: includes,
		excludes: excludes,
	}
}

// matchFile returns true if the path should be scanned.
//
// A path is scanned if it matches at least one include pattern (or
// includes is empty) and no exclude pattern. Paths use forward slashes.
func (m *globMatcher) matchFile(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}

	if len(m.includes) == 0 {
		return true
	}
	for _, pattern := range m.includes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// excludeDir returns true if a whole directory should be pruned from
// the walk. A pattern like "**/vendor/**" prunes the "vendor" directory
// itself, so the walk never descends into it.
func (m *globMatcher) excludeDir(path string) bool {
	path = filepath.ToSlash(path)

	for _, pattern := range m.excludes {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		trimmed := strings.TrimSuffix(pattern, "/**")
		if trimmed != pattern {
			if ok, _ := doublestar.Match(trimmed, path); ok {
				return true
			}
		}
	}
	return false
}
