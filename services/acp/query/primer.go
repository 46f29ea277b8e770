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
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/acp/services/acp/scanner"
)

// DefaultPrimerLength bounds primers when the caller does not.
const DefaultPrimerLength = 2048

// PrimerOptions selects the primer scope and budget.
type PrimerOptions struct {
	// Domain scopes the primer to one domain; empty means global.
	Domain string

	// MaxLength caps the primer text in bytes. Values <= 0 mean
	// DefaultPrimerLength.
	MaxLength int
}

// Primer is a bounded digest of the cache, generated per request and
// never persisted.
type Primer struct {
	// Text is the digest. Its length never exceeds MaxLength.
	Text string `json:"text"`

	// Domain echoes the requested scope, empty for global.
	Domain string `json:"domain,omitempty"`

	// MaxLength is the effective budget the text was fitted to.
	MaxLength int `json:"max_length"`

	// Truncated reports whether any line was dropped to fit.
	Truncated bool `json:"truncated"`

	// Dropped counts the lines that did not fit.
	Dropped int `json:"dropped,omitempty"`
}

// primerLine is one candidate line with its truncation rank.
type primerLine struct {
	text     string
	priority int
	path     string
}

// GeneratePrimer assembles a bounded digest of the cache.
//
// Description:
//
//	The global primer carries the file and lock-level totals, the
//	indexed revision when known, and one line per domain. A
//	domain-scoped primer carries that domain's files, one line each
//	with lock level and description. When the budget is too small for
//	everything, lines are dropped at whole-line granularity, lowest
//	priority first: none before restricted before frozen, later paths
//	before earlier ones. The result length never exceeds the budget,
//	whatever the cache size, including zero.
//
// Inputs:
//
//	ctx - Context, used for tracing and metrics.
//	opts - Scope and byte budget.
//
// Outputs:
//
//	*Primer - The fitted digest. Never nil.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) GeneratePrimer(ctx context.Context, opts PrimerOptions) *Primer {
	ctx, span := startPrimerSpan(ctx, opts.Domain)
	defer span.End()

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultPrimerLength
	}

	var lines []primerLine
	if opts.Domain == "" {
		lines = e.globalPrimerLines()
	} else {
		lines = e.domainPrimerLines(opts.Domain)
	}

	text, dropped := fitLines(lines, maxLen)

	p := &Primer{
		Text:      text,
		Domain:    opts.Domain,
		MaxLength: maxLen,
		Truncated: dropped > 0,
		Dropped:   dropped,
	}
	recordPrimer(ctx, opts.Domain != "", p.Truncated)
	return p
}

// globalPrimerLines builds the header plus one line per domain.
func (e *Engine) globalPrimerLines() []primerLine {
	frozen := len(e.c.PathsByLockLevel(scanner.LockFrozen))
	restricted := len(e.c.PathsByLockLevel(scanner.LockRestricted))

	lines := []primerLine{{
		text: fmt.Sprintf("ACP index: %d files, %d frozen, %d restricted.",
			len(e.c.Files), frozen, restricted),
		priority: -1,
	}}
	if rev := e.revisionLine(); rev != "" {
		lines = append(lines, primerLine{text: rev, priority: -1})
	}

	var domains []primerLine
	for _, domain := range e.c.Domains() {
		paths := e.c.PathsByDomain(domain)
		best := scanner.LockNone.Priority()
		counts := map[scanner.LockLevel]int{}
		for _, path := range paths {
			level := e.c.Files[path].LockLevel
			counts[level]++
			if p := level.Priority(); p < best {
				best = p
			}
		}
		domains = append(domains, primerLine{
			text:     domainSummary(domain, len(paths), counts),
			priority: best,
			path:     domain,
		})
	}
	sortLines(domains)
	return append(lines, domains...)
}

// domainPrimerLines builds the domain header plus one line per file.
func (e *Engine) domainPrimerLines(domain string) []primerLine {
	paths := e.c.PathsByDomain(domain)

	counts := map[scanner.LockLevel]int{}
	var files []primerLine
	for _, path := range paths {
		entry := e.c.Files[path]
		counts[entry.LockLevel]++

		text := fmt.Sprintf("%s [%s]", path, entry.LockLevel)
		if entry.Description != "" {
			text += " " + entry.Description
		}
		files = append(files, primerLine{
			text:     text,
			priority: entry.LockLevel.Priority(),
			path:     path,
		})
	}
	sortLines(files)

	header := primerLine{
		text:     "ACP domain " + domainSummary(domain, len(paths), counts),
		priority: -1,
	}
	return append([]primerLine{header}, files...)
}

// revisionLine renders the indexed revision, empty when unknown.
func (e *Engine) revisionLine() string {
	if e.c.GitCommit == "" {
		return ""
	}
	commit := e.c.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	line := "Indexed at " + commit
	if e.c.GitBranch != "" {
		line += " on " + e.c.GitBranch
	}
	return line + "."
}

// domainSummary renders "name: N files" plus non-zero lock counts.
func domainSummary(domain string, files int, counts map[scanner.LockLevel]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d files", domain, files)
	if n := counts[scanner.LockFrozen]; n > 0 {
		fmt.Fprintf(&b, ", %d frozen", n)
	}
	if n := counts[scanner.LockRestricted]; n > 0 {
		fmt.Fprintf(&b, ", %d restricted", n)
	}
	b.WriteString(".")
	return b.String()
}

// sortLines orders candidates by priority, then path.
func sortLines(lines []primerLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].priority != lines[j].priority {
			return lines[i].priority < lines[j].priority
		}
		return lines[i].path < lines[j].path
	})
}

// fitLines keeps the longest prefix of lines that fits the budget.
//
// Lines are already in keep order (headers first, then descending
// priority). The first line that would overflow ends the primer; it
// and everything after it are dropped, so truncation is always at
// whole-line granularity and never reorders survivors.
func fitLines(lines []primerLine, maxLen int) (string, int) {
	var b strings.Builder
	total := 0
	for i, line := range lines {
		add := len(line.text)
		if i > 0 {
			add++
		}
		if total+add > maxLen {
			return b.String(), len(lines) - i
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.text)
		total += add
	}
	return b.String(), 0
}
