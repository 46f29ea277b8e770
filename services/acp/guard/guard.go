// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guard

import (
	"path/filepath"
	"strings"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/scanner"
)

// Decision is the guard's answer for one path.
type Decision string

const (
	// DecisionAllow permits the modification.
	DecisionAllow Decision = "allow"

	// DecisionCaution permits the modification but flags it for review.
	DecisionCaution Decision = "caution"

	// DecisionDeny blocks the modification.
	DecisionDeny Decision = "deny"
)

// Verdict is the per-path outcome of a check.
type Verdict struct {
	// Path is the checked path after normalization.
	Path string `json:"path"`

	// Indexed reports whether the path exists in the cache.
	Indexed bool `json:"indexed"`

	// LockLevel is the indexed level; none for unindexed paths.
	LockLevel scanner.LockLevel `json:"lock_level"`

	// Decision is allow, caution, or deny.
	Decision Decision `json:"decision"`

	// Reason explains the decision in one line.
	Reason string `json:"reason"`

	// Owner names who to ask about a denied or cautioned path, if the
	// file declared one.
	Owner string `json:"owner,omitempty"`
}

// Report aggregates verdicts for one check.
type Report struct {
	// Verdicts holds one entry per checked path, in input order after
	// deduplication.
	Verdicts []Verdict `json:"verdicts"`

	// Denied counts deny decisions.
	Denied int `json:"denied"`

	// Cautioned counts caution decisions.
	Cautioned int `json:"cautioned"`

	// Unindexed counts paths the cache has never seen.
	Unindexed int `json:"unindexed"`
}

// Passed reports whether nothing was denied.
func (r *Report) Passed() bool {
	return r.Denied == 0
}

// Guard checks modification requests against one immutable cache.
type Guard struct {
	c *cache.Cache
}

// New wraps a cache for checking. The cache must be non-nil.
func New(c *cache.Cache) (*Guard, error) {
	if c == nil {
		return nil, ErrNoCache
	}
	return &Guard{c: c}, nil
}

// Check renders a verdict for each path.
//
// Description:
//
//	Normalizes and deduplicates the paths, then maps each to a verdict
//	from its indexed lock level: frozen denies, restricted cautions,
//	none allows. Paths absent from the index allow with an unindexed
//	notice; absence means no constraint was ever declared, and the
//	guard never blocks what nobody asked it to protect.
//
// Inputs:
//
//	paths - Paths relative to the indexed root, any separator style.
//
// Outputs:
//
//	*Report - One verdict per unique path, in first-seen order.
//
// Thread Safety: Safe for concurrent use.
func (g *Guard) Check(paths []string) *Report {
	report := &Report{}
	seen := make(map[string]bool, len(paths))

	for _, raw := range paths {
		path := normalizePath(raw)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		v := g.verdict(path)
		switch v.Decision {
		case DecisionDeny:
			report.Denied++
		case DecisionCaution:
			report.Cautioned++
		}
		if !v.Indexed {
			report.Unindexed++
		}
		report.Verdicts = append(report.Verdicts, v)
	}

	return report
}

// verdict maps one normalized path to its decision.
func (g *Guard) verdict(path string) Verdict {
	entry, ok := g.c.Entry(path)
	if !ok {
		return Verdict{
			Path:      path,
			Indexed:   false,
			LockLevel: scanner.LockNone,
			Decision:  DecisionAllow,
			Reason:    "not indexed; no constraints declared",
		}
	}

	v := Verdict{
		Path:      path,
		Indexed:   true,
		LockLevel: entry.LockLevel,
		Owner:     entry.Owner,
	}
	switch entry.LockLevel {
	case scanner.LockFrozen:
		v.Decision = DecisionDeny
		v.Reason = "frozen; must not be modified"
	case scanner.LockRestricted:
		v.Decision = DecisionCaution
		v.Reason = "restricted; modify with care"
	default:
		v.Decision = DecisionAllow
		v.Reason = "no lock declared"
	}
	return v
}

// normalizePath maps caller paths onto cache keys.
func normalizePath(path string) string {
	p := filepath.ToSlash(strings.TrimSpace(path))
	return strings.TrimPrefix(p, "./")
}
