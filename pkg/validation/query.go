// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that reach
// index lookups, archive key scans, or log output. Using these validators
// prevents injection attacks (path traversal, log injection) and catches
// malformed archive scans before they hit the store.
//
// Indexed annotation values are deliberately NOT charset-restricted here:
// the scanner accepts free-form domain and owner strings, so query-side
// validators only reject hostile shapes (control bytes, traversal
// segments), never legitimate values.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxPathLength bounds query paths. Matches the common PATH_MAX.
const MaxPathLength = 4096

// MaxTermLength bounds domain and symbol query terms. Annotation values
// longer than this never survive scanning, so longer queries can only
// miss.
const MaxTermLength = 256

// commitPattern matches git commit hash prefixes.
// Allows: lowercase hex, 1-40 characters (full SHA-1 is 40).
var commitPattern = regexp.MustCompile(`^[0-9a-f]{1,40}$`)

// ValidateRelPath validates a project-relative file path used as an
// index lookup key.
//
// Valid paths:
//   - Non-empty, at most MaxPathLength characters
//   - Relative (no leading /)
//   - Slash-separated (no backslashes)
//   - No NUL bytes, no ".." traversal segments
//
// The index only ever contains clean slash-separated relative paths, so
// rejecting these shapes can never hide an indexed file.
//
// Example:
//
//	if err := validation.ValidateRelPath(path); err != nil {
//	    return nil, fmt.Errorf("invalid path: %w", err)
//	}
//	// Safe to use as a lookup key and in log lines
func ValidateRelPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if len(path) > MaxPathLength {
		return fmt.Errorf("path exceeds %d characters", MaxPathLength)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte")
	}
	if strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must be relative: %q", path)
	}
	if strings.Contains(path, `\`) {
		return fmt.Errorf("path must use forward slashes: %q", path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return fmt.Errorf("path must not contain traversal segments: %q", path)
		}
	}
	return nil
}

// ValidateQueryTerm validates a free-form lookup term (domain or symbol
// name). The term name is used in the error message.
//
// Terms are free-form by design; only empty values, oversized values,
// and control bytes (which would corrupt log lines) are rejected.
func ValidateQueryTerm(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(value) > MaxTermLength {
		return fmt.Errorf("%s exceeds %d characters", name, MaxTermLength)
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%s contains control characters", name)
		}
	}
	return nil
}

// ValidateCommitPrefix validates a git commit hash prefix used as an
// archive key scan.
//
// Valid prefixes:
//   - 1-40 characters
//   - Lowercase hex digits only
//
// Returns an error if the prefix is invalid.
func ValidateCommitPrefix(commit string) error {
	if commit == "" {
		return fmt.Errorf("commit cannot be empty")
	}
	if !commitPattern.MatchString(commit) {
		return fmt.Errorf("invalid commit prefix: %q (must be 1-40 lowercase hex characters)", commit)
	}
	return nil
}

// SanitizeCommitPrefix normalizes and validates a commit hash prefix.
// Returns the lowercase prefix if valid, or an error if invalid.
//
// Use this when you need both validation and normalization:
//
//	prefix, err := validation.SanitizeCommitPrefix(userInput)
//	if err != nil {
//	    return err
//	}
//	// prefix is lowercase hex and validated
func SanitizeCommitPrefix(commit string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(commit))
	if err := ValidateCommitPrefix(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
