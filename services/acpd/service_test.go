// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package acpd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/gitinfo"
	"github.com/AleutianAI/acp/services/acp/scanner"
	badgerstore "github.com/AleutianAI/acp/services/acp/storage/badger"
)

const testCommit = "0123456789abcdef0123456789abcdef01234567"

// stubResolver returns fixed git metadata without shelling out.
func stubResolver(ctx context.Context, root string) (gitinfo.Info, error) {
	return gitinfo.Info{Commit: testCommit, Branch: "main"}, nil
}

// writeProject lays out an annotated source tree for scanning.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"auth/login.go": strings.Join([]string{
			`// @acp:file "Login flow"`,
			`// @acp:lock frozen - security reviewed`,
			`// @acp:domain auth`,
			``,
			`package auth`,
			``,
			`// @acp:fn "Checks credentials"`,
			`func Login(user, pass string) error {`,
			`	return nil`,
			`}`,
		}, "\n"),
		"pay/ledger.go": strings.Join([]string{
			`// @acp:file "Ledger writes"`,
			`// @acp:lock restricted`,
			`// @acp:domain pay`,
			``,
			`package pay`,
		}, "\n"),
	}

	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func testService(t *testing.T, archive *badgerstore.Archive) *Service {
	t.Helper()

	svc, err := NewService(Config{
		Root:     writeProject(t),
		Resolver: stubResolver,
		Archive:  archive,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestNewService_RequiresRoot(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Fatal("NewService(empty root) succeeded, want error")
	}
}

func TestService_Reindex_PublishesSnapshot(t *testing.T) {
	svc := testService(t, nil)
	ctx := context.Background()

	if svc.Indexed() {
		t.Fatal("Indexed() = true before first reindex")
	}

	resp, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if resp.FilesIndexed != 2 {
		t.Errorf("FilesIndexed = %d, want 2", resp.FilesIndexed)
	}
	if resp.Symbols != 1 {
		t.Errorf("Symbols = %d, want 1", resp.Symbols)
	}
	if resp.GitCommit != testCommit {
		t.Errorf("GitCommit = %q, want %q", resp.GitCommit, testCommit)
	}
	if resp.Archived {
		t.Error("Archived = true without a configured archive")
	}

	eng, err := svc.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	entry, err := eng.LookupFile(ctx, "auth/login.go")
	if err != nil {
		t.Fatalf("LookupFile: %v", err)
	}
	if entry.LockLevel != scanner.LockFrozen {
		t.Errorf("LockLevel = %q, want frozen", entry.LockLevel)
	}
	if len(entry.Symbols) != 1 || entry.Symbols[0].Name != "Login" {
		t.Errorf("Symbols = %+v, want one entry Login", entry.Symbols)
	}

	// The cache file is persisted alongside the project.
	if _, err := os.Stat(svc.CachePath()); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
}

func TestService_Reindex_Conflict(t *testing.T) {
	svc := testService(t, nil)

	svc.reindexMu.Lock()
	defer svc.reindexMu.Unlock()

	_, err := svc.Reindex(context.Background())
	if !errors.Is(err, ErrReindexInProgress) {
		t.Errorf("Reindex error = %v, want ErrReindexInProgress", err)
	}
}

func TestService_InFlightReaderKeepsSnapshot(t *testing.T) {
	svc := testService(t, nil)
	ctx := context.Background()

	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("first Reindex: %v", err)
	}
	held, err := svc.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}

	// New file appears, second reindex publishes a bigger snapshot.
	extra := filepath.Join(svc.Root(), "util", "strings.go")
	if err := os.MkdirAll(filepath.Dir(extra), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := "// @acp:file \"String helpers\"\n\npackage util\n"
	if err := os.WriteFile(extra, []byte(src), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("second Reindex: %v", err)
	}

	if got := held.Stats(ctx).TotalFiles; got != 2 {
		t.Errorf("held snapshot TotalFiles = %d, want 2 (pre-reindex view)", got)
	}

	fresh, err := svc.Engine()
	if err != nil {
		t.Fatalf("Engine after reindex: %v", err)
	}
	if got := fresh.Stats(ctx).TotalFiles; got != 3 {
		t.Errorf("fresh snapshot TotalFiles = %d, want 3", got)
	}
}

func TestService_Reindex_WithoutGitMetadata(t *testing.T) {
	root := writeProject(t)
	svc, err := NewService(Config{
		Root: root,
		Resolver: func(ctx context.Context, root string) (gitinfo.Info, error) {
			return gitinfo.Info{}, gitinfo.ErrNoRepository
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	resp, err := svc.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if resp.GitCommit != "" || resp.GitBranch != "" {
		t.Errorf("git metadata = %q/%q, want empty", resp.GitCommit, resp.GitBranch)
	}
	if resp.Archived {
		t.Error("Archived = true for a commitless snapshot")
	}
}

func TestService_Reindex_Archives(t *testing.T) {
	db, err := badgerstore.Open(badgerstore.InMemoryConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	archive, err := badgerstore.NewArchive(db)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })

	svc := testService(t, archive)
	ctx := context.Background()

	resp, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if !resp.Archived {
		t.Fatal("Archived = false, want true")
	}

	head, err := archive.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.GitCommit != testCommit {
		t.Errorf("archived commit = %q, want %q", head.GitCommit, testCommit)
	}
	if len(head.Files) != 2 {
		t.Errorf("archived files = %d, want 2", len(head.Files))
	}
}

func TestService_LoadFromDisk(t *testing.T) {
	root := t.TempDir()
	built := cache.Build(context.Background(), []scanner.AnnotationRecord{
		{
			Kind:       scanner.KindFile,
			FilePath:   "auth/login.go",
			LineNumber: 1,
			LockLevel:  scanner.LockFrozen,
		},
	}, cache.Metadata{GeneratedAt: time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)})
	if err := built.Cache.Save(cache.DefaultPath(root)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	svc, err := NewService(Config{Root: root, Resolver: stubResolver})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.LoadFromDisk(context.Background()); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}

	eng, err := svc.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if _, err := eng.LookupFile(context.Background(), "auth/login.go"); err != nil {
		t.Errorf("LookupFile after load: %v", err)
	}
}

func TestService_LoadFromDisk_Missing(t *testing.T) {
	svc := testService(t, nil)

	err := svc.LoadFromDisk(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("LoadFromDisk error = %v, want fs.ErrNotExist", err)
	}
	if svc.Indexed() {
		t.Error("Indexed() = true after failed load")
	}
}

func TestService_Bootstrap(t *testing.T) {
	svc := testService(t, nil)

	before := svc.Bootstrap()
	if !strings.Contains(before, "no index") {
		t.Errorf("Bootstrap() = %q, want absence indicator", before)
	}

	if _, err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	after := svc.Bootstrap()
	if !strings.Contains(after, "2 files indexed") {
		t.Errorf("Bootstrap() = %q, want indexed count", after)
	}
	if len(after) > 160 {
		t.Errorf("Bootstrap() length = %d, want <= 160", len(after))
	}
}
