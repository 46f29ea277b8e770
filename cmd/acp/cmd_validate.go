// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runValidate loads a cache file through the full schema and integrity
// checks and reports the outcome. Load already refuses corrupt caches,
// so a clean exit here means every consumer will accept the file.
func runValidate(cmd *cobra.Command, args []string) {
	path := args[0]

	c, err := cache.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ux.Error(fmt.Sprintf("No cache file at %s", path))
		os.Exit(1)
	case err != nil:
		ux.Error(fmt.Sprintf("Invalid cache: %v", err))
		os.Exit(1)
	}

	ux.Success(fmt.Sprintf("%s is valid", path))
	ux.Muted(fmt.Sprintf("version %s, %d files, generated %s",
		c.Version, len(c.Files), c.GeneratedAt.Format(time.RFC3339)))
}
