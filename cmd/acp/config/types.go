// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/scanner"
)

// ProjectConfig is the per-project configuration read from .acp.yaml
// at the scan root. Every field has a working default; the file is
// optional.
type ProjectConfig struct {
	// Scanner tunes annotation extraction.
	Scanner ScannerConfig `yaml:"scanner"`

	// Cache locates the persisted index.
	Cache CacheConfig `yaml:"cache"`

	// Archive configures commit-keyed snapshot retention.
	Archive ArchiveConfig `yaml:"archive"`
}

type ScannerConfig struct {
	// Extensions restricts scanning to these file extensions (the
	// leading dot is optional). Empty means the built-in language
	// table.
	Extensions []string `yaml:"extensions,omitempty"`

	// CommentPrefixes maps an extension to its line-comment prefix,
	// for languages the built-in table does not know. Listed
	// extensions are scanned even when Extensions is set.
	CommentPrefixes map[string]string `yaml:"comment_prefixes,omitempty"`

	// Include and Exclude are doublestar globs over root-relative
	// paths. An empty Include means every file with a known extension.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	// Workers caps the parallel file readers. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// FileTimeout bounds a single file read, e.g. "5s".
	FileTimeout string `yaml:"file_timeout,omitempty"`

	// MaxFileSize in bytes; larger files are skipped with a warning.
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`
}

// Timeout parses FileTimeout, falling back to def when the value is
// empty or malformed.
func (s ScannerConfig) Timeout(def time.Duration) time.Duration {
	if s.FileTimeout == "" {
		return def
	}
	d, err := time.ParseDuration(s.FileTimeout)
	if err != nil || d < 0 {
		return def
	}
	return d
}

type CacheConfig struct {
	// Path is the cache file location, relative to the project root
	// unless absolute.
	Path string `yaml:"path"`
}

type ArchiveConfig struct {
	// Enabled archives every indexed snapshot by commit hash, the
	// same as passing --archive to `acp index`.
	Enabled bool `yaml:"enabled"`

	// Dir is the archive database directory, relative to the project
	// root unless absolute.
	Dir string `yaml:"dir"`

	// Keep bounds retained snapshots; the oldest are pruned past it.
	// 0 keeps everything.
	Keep int `yaml:"keep"`
}

// ScannerOptions converts the scanner section into functional options
// for scanner.New. Zero values defer to the scanner's own defaults.
func (c ProjectConfig) ScannerOptions() []scanner.Option {
	sc := c.Scanner
	var opts []scanner.Option
	if len(sc.Extensions) > 0 {
		opts = append(opts, scanner.WithExtensions(sc.Extensions...))
	}
	for ext, prefix := range sc.CommentPrefixes {
		opts = append(opts, scanner.WithCommentPrefix(ext, prefix))
	}
	if len(sc.Include) > 0 {
		opts = append(opts, scanner.WithIncludes(sc.Include...))
	}
	if len(sc.Exclude) > 0 {
		opts = append(opts, scanner.WithExcludes(sc.Exclude...))
	}
	if sc.Workers > 0 {
		opts = append(opts, scanner.WithWorkers(sc.Workers))
	}
	if d := sc.Timeout(0); d > 0 {
		opts = append(opts, scanner.WithFileTimeout(d))
	}
	if sc.MaxFileSize > 0 {
		opts = append(opts, scanner.WithMaxFileSize(sc.MaxFileSize))
	}
	return opts
}

// DefaultConfig returns the configuration used when .acp.yaml is
// absent. The exclude list is spelled out so that a generated file
// documents itself.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{
		Scanner: ScannerConfig{
			Exclude:     append([]string(nil), scanner.DefaultExcludes...),
			Workers:     0,
			FileTimeout: scanner.DefaultFileTimeout.String(),
			MaxFileSize: scanner.DefaultMaxFileSize,
		},
		Cache: CacheConfig{
			Path: cache.DefaultFileName,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Dir:     ".acp/archive",
			Keep:    20,
		},
	}
}
