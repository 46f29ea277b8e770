// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command acp indexes and queries @acp constraint annotations.
//
// The indexer scans a source tree for structured comment annotations
// (@acp:file, @acp:lock, @acp:domain, @acp:owner, @acp:layer, @acp:fn,
// @acp:sym), aggregates them into a versioned cache file, and answers
// constraint queries against that cache without re-reading the tree.
//
// Usage:
//
//	acp index [root]              # scan and write .acp.cache.json
//	acp query file pkg/auth.go    # constraints on one file
//	acp query lock frozen         # files at a lock level
//	acp check pkg/auth.go         # may this file be modified?
//	acp primer --domain auth      # bounded context primer
//	acp watch [root]              # re-index on change
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
