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
	"strings"
	"testing"

	"github.com/AleutianAI/acp/services/acp/cache"
)

func emptyEngine(t *testing.T) *Engine {
	t.Helper()
	result := cache.Build(context.Background(), nil, cache.Metadata{GeneratedAt: fixtureTime})
	e, err := NewEngine(result.Cache)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestGeneratePrimer_Global(t *testing.T) {
	e := testEngine(t)

	p := e.GeneratePrimer(context.Background(), PrimerOptions{})
	if p.Truncated || p.Dropped != 0 {
		t.Fatalf("default budget should fit everything: %+v", p)
	}
	if p.MaxLength != DefaultPrimerLength {
		t.Errorf("max length = %d", p.MaxLength)
	}

	lines := strings.Split(p.Text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), p.Text)
	}
	if lines[0] != "ACP index: 4 files, 1 frozen, 1 restricted." {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Indexed at 0123456 on main." {
		t.Errorf("revision = %q", lines[1])
	}
	// auth carries the frozen file, so it outranks pay.
	if !strings.HasPrefix(lines[2], "auth: 2 files") {
		t.Errorf("first domain line = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "pay: 1 files") {
		t.Errorf("second domain line = %q", lines[3])
	}
}

func TestGeneratePrimer_Domain(t *testing.T) {
	e := testEngine(t)

	p := e.GeneratePrimer(context.Background(), PrimerOptions{Domain: "auth"})
	if p.Truncated {
		t.Fatalf("default budget should fit: %+v", p)
	}

	lines := strings.Split(p.Text, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got:\n%s", p.Text)
	}
	if lines[0] != "ACP domain auth: 2 files, 1 frozen, 1 restricted." {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "auth/login.go [frozen] Login flow" {
		t.Errorf("frozen line = %q", lines[1])
	}
	if lines[2] != "auth/token.go [restricted]" {
		t.Errorf("restricted line = %q", lines[2])
	}
}

func TestGeneratePrimer_UnknownDomain(t *testing.T) {
	e := testEngine(t)

	p := e.GeneratePrimer(context.Background(), PrimerOptions{Domain: "ghost"})
	if p.Text != "ACP domain ghost: 0 files." {
		t.Errorf("text = %q", p.Text)
	}
}

func TestGeneratePrimer_NeverExceedsBound(t *testing.T) {
	engines := map[string]*Engine{
		"populated": testEngine(t),
		"empty":     emptyEngine(t),
	}

	for name, e := range engines {
		for _, max := range []int{1, 5, 10, 25, 49, 50, 80, 120, 500} {
			for _, domain := range []string{"", "auth"} {
				p := e.GeneratePrimer(context.Background(), PrimerOptions{Domain: domain, MaxLength: max})
				if len(p.Text) > max {
					t.Errorf("%s: domain %q budget %d produced %d bytes", name, domain, max, len(p.Text))
				}
			}
		}
	}
}

func TestGeneratePrimer_DropsLowestPriorityFirst(t *testing.T) {
	e := testEngine(t)

	full := e.GeneratePrimer(context.Background(), PrimerOptions{Domain: "auth"})
	p := e.GeneratePrimer(context.Background(), PrimerOptions{
		Domain:    "auth",
		MaxLength: len(full.Text) - 1,
	})

	if !p.Truncated || p.Dropped != 1 {
		t.Fatalf("expected exactly one dropped line: %+v", p)
	}
	if !strings.Contains(p.Text, "auth/login.go") {
		t.Error("frozen entry should survive truncation")
	}
	if strings.Contains(p.Text, "auth/token.go") {
		t.Error("restricted entry should be dropped before the frozen one")
	}
	if len(p.Text) >= len(full.Text) {
		t.Errorf("truncated primer should shrink: %d vs %d", len(p.Text), len(full.Text))
	}
}

func TestGeneratePrimer_TinyBudgetYieldsEmpty(t *testing.T) {
	e := testEngine(t)

	p := e.GeneratePrimer(context.Background(), PrimerOptions{MaxLength: 3})
	if p.Text != "" {
		t.Errorf("text = %q", p.Text)
	}
	if !p.Truncated || p.Dropped == 0 {
		t.Errorf("expected everything dropped: %+v", p)
	}
}

func TestGeneratePrimer_EmptyCache(t *testing.T) {
	e := emptyEngine(t)

	p := e.GeneratePrimer(context.Background(), PrimerOptions{})
	if p.Text != "ACP index: 0 files, 0 frozen, 0 restricted." {
		t.Errorf("text = %q", p.Text)
	}
	if p.Truncated {
		t.Error("empty cache should fit any sane budget")
	}
}
