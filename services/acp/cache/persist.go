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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"

	"github.com/AleutianAI/acp/services/acp/scanner"
)

// structValidate checks the declared field constraints on load.
var structValidate = validator.New()

// DefaultPath returns the cache location for a project root.
func DefaultPath(root string) string {
	return filepath.Join(root, DefaultFileName)
}

// Encode serializes the cache as indented JSON with a trailing newline.
//
// Encoding is deterministic: map keys are emitted in sorted order and
// slices keep builder order, so equal caches produce equal bytes.
func (c *Cache) Encode() ([]byte, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding cache: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the cache to path atomically.
//
// Description:
//
//	Serializes the cache and writes it through a temp file in the target
//	directory, then renames it into place. A crashed or concurrent
//	writer therefore never leaves a truncated cache behind: readers see
//	either the old complete file or the new complete file.
//
// Inputs:
//
//	path - Destination file, conventionally DefaultPath(root).
//
// Outputs:
//
//	error - Non-nil on encoding or filesystem failure.
//
// Thread Safety: Safe for concurrent use; concurrent saves race on
// which complete cache wins, never on file contents.
func (c *Cache) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".acp.cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting cache file mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Load reads and validates a cache file.
//
// Description:
//
//	Reads the file at path, decodes it, and runs the full validation
//	suite: struct tags, schema version compatibility, and referential
//	integrity between the groupings and the file table. Any defect maps
//	to an error wrapping ErrCacheCorrupt so callers can fall back to
//	re-indexing with a single errors.Is check. A missing file is not
//	corruption; the fs.ErrNotExist from the read is passed through.
//
// Inputs:
//
//	path - Cache file location.
//
// Outputs:
//
//	*Cache - The validated cache.
//	error - fs.ErrNotExist wrapped when absent, ErrCacheCorrupt wrapped
//	        when present but untrustworthy.
//
// Thread Safety: Safe for concurrent use.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		recordLoadFailure(context.Background(), "decode")
		return nil, fmt.Errorf("%w: decoding json: %v", ErrCacheCorrupt, err)
	}

	if err := c.Validate(); err != nil {
		recordLoadFailure(context.Background(), "validate")
		return nil, err
	}
	return &c, nil
}

// Validate checks that the cache is internally consistent.
//
// It verifies struct-level field constraints, that the schema major
// matches this build, that grouping keys are named lock levels, and
// that every grouped path resolves to a file entry whose own metadata
// agrees with the grouping. All failures wrap ErrCacheCorrupt.
func (c *Cache) Validate() error {
	if c == nil {
		return ErrNilCache
	}

	if err := structValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: schema validation: %v", ErrCacheCorrupt, err)
	}

	if !semver.IsValid("v" + c.Version) {
		return fmt.Errorf("%w: malformed version %q", ErrCacheCorrupt, c.Version)
	}
	if semver.Major("v"+c.Version) != semver.Major("v"+Version) {
		return fmt.Errorf("%w: %w: cache is %s, reader expects %s",
			ErrCacheCorrupt, ErrVersionMismatch, c.Version, Version)
	}

	for path, entry := range c.Files {
		if entry.FilePath != path {
			return fmt.Errorf("%w: entry %q keyed as %q", ErrCacheCorrupt, entry.FilePath, path)
		}
	}

	grouped := 0
	for level, paths := range c.ByLockLevel {
		if _, ok := scanner.ParseLockLevel(level); !ok {
			return fmt.Errorf("%w: unknown lock level grouping %q", ErrCacheCorrupt, level)
		}
		for _, path := range paths {
			entry, ok := c.Files[path]
			if !ok {
				return fmt.Errorf("%w: lock grouping %q lists unindexed path %q", ErrCacheCorrupt, level, path)
			}
			if string(entry.LockLevel) != level {
				return fmt.Errorf("%w: %q grouped under %q but locked %q", ErrCacheCorrupt, path, level, entry.LockLevel)
			}
		}
		grouped += len(paths)
	}
	if grouped != len(c.Files) {
		return fmt.Errorf("%w: lock groupings cover %d of %d files", ErrCacheCorrupt, grouped, len(c.Files))
	}

	for domain, paths := range c.ByDomain {
		for _, path := range paths {
			entry, ok := c.Files[path]
			if !ok {
				return fmt.Errorf("%w: domain %q lists unindexed path %q", ErrCacheCorrupt, domain, path)
			}
			if entry.Domain != domain {
				return fmt.Errorf("%w: %q grouped under domain %q but declares %q", ErrCacheCorrupt, path, domain, entry.Domain)
			}
		}
	}
	for path, entry := range c.Files {
		if entry.Domain == "" {
			continue
		}
		if !slices.Contains(c.ByDomain[entry.Domain], path) {
			return fmt.Errorf("%w: %q missing from domain grouping %q", ErrCacheCorrupt, path, entry.Domain)
		}
	}

	return nil
}
