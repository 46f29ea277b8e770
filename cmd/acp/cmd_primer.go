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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/query"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runPrimer prints a bounded constraint digest. The primer text is the
// whole stdout payload; truncation details go to interactive mode only
// so pipes receive exactly the injectable text.
func runPrimer(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	eng := loadEngineOrExit()

	p := eng.GeneratePrimer(ctx, query.PrimerOptions{
		Domain:    primerDomain,
		MaxLength: primerMaxLength,
	})

	fmt.Println(p.Text)
	if p.Truncated && ux.GetMode() == ux.ModeStyled {
		ux.Muted(fmt.Sprintf("(%d entries dropped to fit %d chars)", p.Dropped, p.MaxLength))
	}
}

// runBootstrap prints the fixed-ceiling bootstrap line. It never
// fails: with no cache on disk the line says so and points at the
// indexer, because callers inject this unconditionally.
func runBootstrap(cmd *cobra.Command, args []string) {
	c, err := cache.Load(resolveCachePath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: ignoring unreadable cache: %v\n", err)
		}
		c = nil
	}
	fmt.Println(query.Bootstrap(c))
}
