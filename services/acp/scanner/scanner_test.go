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
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
)

// writeTree materializes files under root, creating parent directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func annotatedGo(desc string) string {
	return strings.Join([]string{
		`// @acp:file "` + desc + `"`,
		`// @acp:lock frozen - reviewed`,
		`// @acp:domain auth`,
		``,
		`package x`,
		``,
		`// @acp:fn "does the thing"`,
		`func Do() {}`,
	}, "\n")
}

func TestScan_CollectsAcrossTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"auth/token.go":   annotatedGo("token validation"),
		"billing/rate.go": annotatedGo("rate tables"),
		"scripts/run.py":  "# @acp:file \"ops scripts\"\n# @acp:lock restricted - prod\n",
		"README.txt":      "@acp:file \"not scanned, unknown extension\"\n",
	})

	result, err := New().Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.FilesScanned != 3 {
		t.Errorf("FilesScanned = %d, want 3", result.FilesScanned)
	}
	if result.FilesSkipped != 0 {
		t.Errorf("FilesSkipped = %d, want 0", result.FilesSkipped)
	}
	if result.Incomplete {
		t.Error("Incomplete = true for a clean scan")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
	// 4 records per Go file, 2 for the Python file.
	if len(result.Records) != 10 {
		t.Errorf("len(Records) = %d, want 10", len(result.Records))
	}

	sorted := sort.SliceIsSorted(result.Records, func(i, j int) bool {
		a, b := result.Records[i], result.Records[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.LineNumber < b.LineNumber
	})
	if !sorted {
		t.Error("records are not sorted by (path, line)")
	}
	for _, rec := range result.Records {
		if strings.Contains(rec.FilePath, "\\") || filepath.IsAbs(rec.FilePath) {
			t.Errorf("FilePath %q is not a relative slash path", rec.FilePath)
		}
	}
}

func TestScan_DeterministicOverUnchangedTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/a.go": annotatedGo("a"),
		"b/b.go": annotatedGo("b"),
		"c/c.py": "# @acp:file \"c\"\n",
	})

	// Single worker vs. many must not change the output, only arrival
	// order, which the final sort erases.
	first, err := New(WithWorkers(1)).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	second, err := New(WithWorkers(8)).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Errorf("records differ between identical scans:\n%+v\n%+v", first.Records, second.Records)
	}
	if first.FilesScanned != second.FilesScanned {
		t.Errorf("FilesScanned %d != %d", first.FilesScanned, second.FilesScanned)
	}
}

func TestScan_UnreadableFileWarnsAndContinues(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ok.go": annotatedGo("survives"),
	})
	// A dangling symlink fails stat regardless of the caller's
	// privileges, unlike a mode-0 file.
	if err := os.Symlink(filepath.Join(root, "missing-target"), filepath.Join(root, "broken.go")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	result, err := New().Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", result.FilesScanned)
	}
	if result.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", result.FilesSkipped)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", result.Warnings)
	}
	w := result.Warnings[0]
	if w.Kind != WarningIO || w.Path != "broken.go" {
		t.Errorf("warning = %+v, want io warning for broken.go", w)
	}

	// The valid file is still fully indexed.
	var paths []string
	for _, rec := range result.Records {
		paths = append(paths, rec.FilePath)
	}
	for _, p := range paths {
		if p != "ok.go" {
			t.Errorf("unexpected record path %q", p)
		}
	}
	if len(result.Records) != 4 {
		t.Errorf("len(Records) = %d, want 4 from ok.go", len(result.Records))
	}
}

func TestScan_ExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/app.go":            annotatedGo("kept"),
		"generated/gen.go":      annotatedGo("dropped by glob"),
		"node_modules/dep/x.go": annotatedGo("dropped by default"),
	})

	sc := New(WithExcludes(append([]string{"**/generated/**"}, DefaultExcludes...)...))
	result, err := sc.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", result.FilesScanned)
	}
	for _, rec := range result.Records {
		if rec.FilePath != "src/app.go" {
			t.Errorf("record from excluded path %q", rec.FilePath)
		}
	}
}

func TestScan_IncludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"services/auth/a.go": annotatedGo("in scope"),
		"tools/t.go":         annotatedGo("out of scope"),
	})

	result, err := New(WithIncludes("services/**")).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", result.FilesScanned)
	}
	for _, rec := range result.Records {
		if !strings.HasPrefix(rec.FilePath, "services/") {
			t.Errorf("record outside include glob: %q", rec.FilePath)
		}
	}
}

func TestScan_SkipsOversizedAndBinary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"big.go":   strings.Repeat("// padding\n", 64),
		"small.go": annotatedGo("fits"),
	})
	if err := os.WriteFile(filepath.Join(root, "blob.go"), []byte{'G', 0x00, 0x01, 'X'}, 0644); err != nil {
		t.Fatal(err)
	}

	result, err := New(WithMaxFileSize(256)).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if result.FilesSkipped != 2 {
		t.Errorf("FilesSkipped = %d, want 2 (oversized + binary)", result.FilesSkipped)
	}
	if result.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", result.FilesScanned)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want two", result.Warnings)
	}
	for _, w := range result.Warnings {
		if w.Kind != WarningIO {
			t.Errorf("warning kind = %q, want io", w.Kind)
		}
	}
}

func TestScan_CustomCommentPrefix(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"deploy.conf": "; @acp:file \"cluster config\"\n; @acp:lock restricted - ops\n",
	})

	result, err := New(WithCommentPrefix(".conf", ";")).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(result.Records))
	}
	if result.Records[1].LockLevel != LockRestricted {
		t.Errorf("lock = %q, want restricted", result.Records[1].LockLevel)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": annotatedGo("a"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New().Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !result.Incomplete {
		t.Error("Incomplete = false after cancellation")
	}
}

func TestScan_InvalidRoot(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := New().Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
		if err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("root is a file", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"f.go": "package x\n"})
		_, err := New().Scan(context.Background(), filepath.Join(root, "f.go"))
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}
