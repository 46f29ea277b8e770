// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/scanner"
)

var fixtureTime = time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

// testEngine builds an engine over a small three-domain tree.
func testEngine(t *testing.T) *Engine {
	t.Helper()

	records := []scanner.AnnotationRecord{
		{FilePath: "auth/login.go", Kind: scanner.KindFile, LineNumber: 1, Description: "Login flow"},
		{FilePath: "auth/login.go", Kind: scanner.KindFile, LineNumber: 2, LockLevel: scanner.LockFrozen},
		{FilePath: "auth/login.go", Kind: scanner.KindFile, LineNumber: 3, Domain: "auth"},
		{FilePath: "auth/login.go", Kind: scanner.KindFn, SymbolName: "Login", LineNumber: 40, Description: "Checks credentials"},
		{FilePath: "auth/login.go", Kind: scanner.KindFn, SymbolName: "Logout", LineNumber: 80},

		{FilePath: "auth/token.go", Kind: scanner.KindFile, LineNumber: 1, LockLevel: scanner.LockRestricted},
		{FilePath: "auth/token.go", Kind: scanner.KindFile, LineNumber: 2, Domain: "auth"},
		{FilePath: "auth/token.go", Kind: scanner.KindFn, SymbolName: "Login", LineNumber: 12, Description: "Token variant"},

		{FilePath: "pay/ledger.go", Kind: scanner.KindFile, LineNumber: 1, Domain: "pay", Description: "Ledger writes"},

		{FilePath: "util/strings.go", Kind: scanner.KindSym, SymbolName: "maxLen", LineNumber: 9},
	}

	result := cache.Build(context.Background(), records, cache.Metadata{
		GitCommit:   "0123456789abcdef0123456789abcdef01234567",
		GitBranch:   "main",
		GeneratedAt: fixtureTime,
	})
	if len(result.Warnings) != 0 {
		t.Fatalf("fixture should build clean, got %v", result.Warnings)
	}

	engine, err := NewEngine(result.Cache)
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func TestNewEngine_NilCache(t *testing.T) {
	if _, err := NewEngine(nil); !errors.Is(err, ErrNoCache) {
		t.Errorf("expected ErrNoCache, got %v", err)
	}
}

func TestLookupFile_Found(t *testing.T) {
	e := testEngine(t)

	entry, err := e.LookupFile(context.Background(), "auth/login.go")
	if err != nil {
		t.Fatal(err)
	}
	if entry.LockLevel != scanner.LockFrozen {
		t.Errorf("lock level = %q", entry.LockLevel)
	}
	if entry.Domain != "auth" {
		t.Errorf("domain = %q", entry.Domain)
	}
	if len(entry.Symbols) != 2 {
		t.Fatalf("symbols = %+v", entry.Symbols)
	}
	if entry.Symbols[0].Name != "Login" || entry.Symbols[1].Name != "Logout" {
		t.Errorf("symbols out of source order: %+v", entry.Symbols)
	}
}

func TestLookupFile_Normalization(t *testing.T) {
	e := testEngine(t)

	for _, path := range []string{"./auth/login.go", " auth/login.go "} {
		if _, err := e.LookupFile(context.Background(), path); err != nil {
			t.Errorf("lookup %q: %v", path, err)
		}
	}
}

func TestLookupFile_NotFound(t *testing.T) {
	e := testEngine(t)

	_, err := e.LookupFile(context.Background(), "nope.go")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLookupByLockLevel(t *testing.T) {
	e := testEngine(t)

	frozen, err := e.LookupByLockLevel(context.Background(), scanner.LockFrozen)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(frozen, []string{"auth/login.go"}) {
		t.Errorf("frozen = %v", frozen)
	}

	none, err := e.LookupByLockLevel(context.Background(), scanner.LockNone)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(none, []string{"pay/ledger.go", "util/strings.go"}) {
		t.Errorf("none = %v", none)
	}

	if _, err := e.LookupByLockLevel(context.Background(), "sticky"); !errors.Is(err, ErrInvalidLockLevel) {
		t.Errorf("expected ErrInvalidLockLevel, got %v", err)
	}
}

func TestLookupByDomain(t *testing.T) {
	e := testEngine(t)

	auth := e.LookupByDomain(context.Background(), "auth")
	if !reflect.DeepEqual(auth, []string{"auth/login.go", "auth/token.go"}) {
		t.Errorf("auth = %v", auth)
	}

	if got := e.LookupByDomain(context.Background(), "ghost"); len(got) != 0 {
		t.Errorf("unknown domain should be empty, got %v", got)
	}
}

func TestLookupSymbol_OrderedAcrossFiles(t *testing.T) {
	e := testEngine(t)

	matches := e.LookupSymbol(context.Background(), "Login")
	if len(matches) != 2 {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].FilePath != "auth/login.go" || matches[0].Line != 40 {
		t.Errorf("first match = %+v", matches[0])
	}
	if matches[0].LockLevel != scanner.LockFrozen {
		t.Errorf("first match lock = %q", matches[0].LockLevel)
	}
	if matches[1].FilePath != "auth/token.go" || matches[1].Line != 12 {
		t.Errorf("second match = %+v", matches[1])
	}

	if got := e.LookupSymbol(context.Background(), "Nothing"); len(got) != 0 {
		t.Errorf("unknown symbol should be empty, got %v", got)
	}
}

func TestStats(t *testing.T) {
	e := testEngine(t)

	s := e.Stats(context.Background())
	if s.TotalFiles != 4 {
		t.Errorf("total files = %d", s.TotalFiles)
	}
	if s.ByLockLevel["frozen"] != 1 || s.ByLockLevel["restricted"] != 1 || s.ByLockLevel["none"] != 2 {
		t.Errorf("by lock level = %v", s.ByLockLevel)
	}
	if s.Domains["auth"] != 2 || s.Domains["pay"] != 1 {
		t.Errorf("domains = %v", s.Domains)
	}
	if s.TotalSymbols != 4 {
		t.Errorf("total symbols = %d", s.TotalSymbols)
	}
	if !s.GeneratedAt.Equal(fixtureTime) {
		t.Errorf("generated_at = %v", s.GeneratedAt)
	}
	if s.GitBranch != "main" {
		t.Errorf("branch = %q", s.GitBranch)
	}
}
