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
	"fmt"
	"os"

	"github.com/AleutianAI/acp/pkg/ux"
	"github.com/AleutianAI/acp/services/acp/guard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runCheck reports a modification verdict per path and exits 1 when
// anything is denied, so pre-commit hooks and CI can gate on it:
//
//	git diff --cached | acp check --diff
func runCheck(cmd *cobra.Command, args []string) {
	if checkDiff && len(args) > 0 {
		ux.Error("--diff reads paths from stdin; positional paths are not allowed")
		os.Exit(1)
	}
	if checkDiff && (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) {
		ux.Error("--diff expects a diff on stdin, e.g. git diff --cached | acp check --diff")
		os.Exit(1)
	}
	if !checkDiff && len(args) == 0 {
		_ = cmd.Help()
		os.Exit(1)
	}

	g, err := guard.New(loadCacheOrExit(resolveCachePath()))
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open cache: %v", err))
		os.Exit(1)
	}

	var report *guard.Report
	if checkDiff {
		report, err = g.CheckDiff(os.Stdin)
		if err != nil {
			ux.Error(fmt.Sprintf("Could not parse diff: %v", err))
			os.Exit(1)
		}
	} else {
		report = g.Check(args)
	}

	if jsonOutput {
		printJSON(report)
	} else {
		for _, v := range report.Verdicts {
			reason := v.Reason
			if v.Owner != "" {
				reason += fmt.Sprintf(" (owner: %s)", v.Owner)
			}
			ux.Verdict(string(v.Decision), v.Path, reason)
		}
		ux.CheckSummary(report.Denied, report.Cautioned, report.Unindexed, len(report.Verdicts))
	}

	if !report.Passed() {
		os.Exit(1)
	}
}
