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
	"os"
	"time"

	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/pkg/validation"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runSnapshotsList lists every archived snapshot, newest first.
func runSnapshotsList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	arch, done := openArchiveOrExit(resolveArchiveDir())
	defer done()

	metas, err := arch.List(ctx)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to list snapshots: %v", err))
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(metas)
		return
	}
	if len(metas) == 0 {
		ux.Info("No snapshots archived yet. Run 'acp index --archive'.")
		return
	}
	for _, m := range metas {
		line := fmt.Sprintf("%s  %s  %4d files",
			shortCommit(m.Commit), m.GeneratedAt.Format(time.RFC3339), m.Files)
		if m.Branch != "" {
			line += "  " + m.Branch
		}
		fmt.Println(line)
	}
}

// runSnapshotsShow prints the cache archived for a commit. Unambiguous
// hash prefixes are accepted; --json emits the full snapshot.
func runSnapshotsShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	commit, err := validation.SanitizeCommitPrefix(args[0])
	if err != nil {
		ux.Error(fmt.Sprintf("Bad commit: %v", err))
		os.Exit(1)
	}

	arch, done := openArchiveOrExit(resolveArchiveDir())
	defer done()

	c, err := arch.Get(ctx, commit)
	switch {
	case errors.Is(err, badgerstore.ErrSnapshotNotFound):
		ux.Error(fmt.Sprintf("No snapshot for commit %s", commit))
		os.Exit(1)
	case errors.Is(err, badgerstore.ErrAmbiguousCommit):
		ux.Error(fmt.Sprintf("Commit prefix %s is ambiguous; give more characters", commit))
		os.Exit(1)
	case err != nil:
		ux.Error(fmt.Sprintf("Failed to read snapshot: %v", err))
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(c)
		return
	}

	ux.Title(fmt.Sprintf("Snapshot %s", shortCommit(c.GitCommit)))
	if c.GitBranch != "" {
		fmt.Printf("branch:       %s\n", c.GitBranch)
	}
	fmt.Printf("generated_at: %s\n", c.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("files:        %d\n", len(c.Files))
	for _, level := range []string{"frozen", "restricted", "none"} {
		fmt.Printf("  %-10s %d\n", level, len(c.ByLockLevel[level]))
	}
}
