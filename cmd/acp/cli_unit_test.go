// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// These are unit tests that don't require an index or archive on disk.
// Run with: go test ./cmd/acp/... -run TestCLIUnit

package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// =============================================================================
// CLI UNIT TESTS - No index required
// =============================================================================

// findCommand walks one level of a command's children by name.
func findCommand(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestCLIUnit_CommandTree(t *testing.T) {
	tests := []struct {
		name     string
		path     []string
		children []string
	}{
		{"root commands", nil, []string{
			"index", "query", "primer", "bootstrap", "check",
			"watch", "validate", "snapshots",
		}},
		{"query subcommands", []string{"query"}, []string{
			"file", "lock", "domain", "symbol", "stats",
		}},
		{"snapshots subcommands", []string{"snapshots"}, []string{
			"list", "show",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := rootCmd
			for _, seg := range tt.path {
				parent = findCommand(parent, seg)
				if parent == nil {
					t.Fatalf("command %q not registered", seg)
				}
			}
			for _, child := range tt.children {
				if findCommand(parent, child) == nil {
					t.Errorf("command %q missing child %q", parent.Name(), child)
				}
			}
		})
	}
}

func TestCLIUnit_Flags(t *testing.T) {
	tests := []struct {
		name       string
		cmd        *cobra.Command
		flag       string
		persistent bool
		shorthand  string
	}{
		{"root plain", rootCmd, "plain", true, ""},
		{"root verbose", rootCmd, "verbose", true, "v"},
		{"index output", indexCmd, "output", false, "o"},
		{"index archive", indexCmd, "archive", false, ""},
		{"index init-config", indexCmd, "init-config", false, ""},
		{"query cache", queryCmd, "cache", true, ""},
		{"query json", queryCmd, "json", true, ""},
		{"primer domain", primerCmd, "domain", false, "d"},
		{"primer max-length", primerCmd, "max-length", false, ""},
		{"check diff", checkCmd, "diff", false, ""},
		{"check json", checkCmd, "json", false, ""},
		{"watch debounce", watchCmd, "debounce", false, ""},
		{"watch archive", watchCmd, "archive", false, ""},
		{"snapshots dir", snapshotsCmd, "dir", true, ""},
		{"snapshots json", snapshotsCmd, "json", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := tt.cmd.Flags()
			if tt.persistent {
				flags = tt.cmd.PersistentFlags()
			}
			f := flags.Lookup(tt.flag)
			if f == nil {
				t.Fatalf("%s: flag --%s not registered", tt.cmd.Name(), tt.flag)
			}
			if f.Shorthand != tt.shorthand {
				t.Errorf("--%s shorthand = %q, want %q", tt.flag, f.Shorthand, tt.shorthand)
			}
		})
	}
}

func TestCLIUnit_ArgValidation(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *cobra.Command
		args    []string
		wantErr bool
	}{
		{"query file requires path", queryFileCmd, []string{}, true},
		{"query file one path", queryFileCmd, []string{"main.go"}, false},
		{"query file rejects extra", queryFileCmd, []string{"a.go", "b.go"}, true},
		{"query stats takes none", queryStatsCmd, []string{"extra"}, true},
		{"index optional root", indexCmd, []string{}, false},
		{"index one root", indexCmd, []string{"src"}, false},
		{"index rejects two roots", indexCmd, []string{"a", "b"}, true},
		{"validate requires file", validateCmd, []string{}, true},
		{"snapshots show requires commit", snapshotsShowCmd, []string{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Args(tt.cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestCLIUnit_ShortCommit(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"full sha truncated", strings.Repeat("ab12", 10), "ab12ab12ab12"},
		{"short prefix unchanged", "a1b2c3d", "a1b2c3d"},
		{"exactly twelve unchanged", "0123456789ab", "0123456789ab"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortCommit(tt.commit); got != tt.want {
				t.Errorf("shortCommit(%q) = %q, want %q", tt.commit, got, tt.want)
			}
		})
	}
}

func TestCLIUnit_RootArg(t *testing.T) {
	t.Run("defaults to working directory", func(t *testing.T) {
		got := rootArg(nil)
		if !filepath.IsAbs(got) {
			t.Errorf("rootArg(nil) = %q, want absolute path", got)
		}
	})

	t.Run("resolves relative argument", func(t *testing.T) {
		got := rootArg([]string{"sub/dir"})
		if !filepath.IsAbs(got) {
			t.Errorf("rootArg = %q, want absolute path", got)
		}
		if !strings.HasSuffix(got, filepath.Join("sub", "dir")) {
			t.Errorf("rootArg = %q, want suffix sub/dir", got)
		}
	})

	t.Run("keeps absolute argument", func(t *testing.T) {
		dir := t.TempDir()
		if got := rootArg([]string{dir}); got != dir {
			t.Errorf("rootArg(%q) = %q", dir, got)
		}
	})
}
