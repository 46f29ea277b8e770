// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitinfo reads the revision a cache build should be stamped
// with. It shells out to git rather than parsing .git internals, and
// its failure is always survivable: an index without git metadata is
// still a valid index.
package gitinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds git invocations when the caller's context
// carries no deadline. A wedged git must not wedge an index build.
const DefaultTimeout = 5 * time.Second

// ErrNoRepository is returned when root is not inside a git work tree
// or no git binary is available. Callers downgrade it to a warning.
var ErrNoRepository = errors.New("git metadata unavailable")

// Info is the revision pair stamped into caches.
type Info struct {
	// Commit is the full HEAD hash.
	Commit string `json:"commit"`

	// Branch is the checked-out branch, empty on a detached HEAD.
	Branch string `json:"branch,omitempty"`
}

// Resolver matches Resolve so services can inject a fake for tests.
type Resolver func(ctx context.Context, root string) (Info, error)

// Resolve returns the HEAD commit and branch for a work tree.
//
// Description:
//
//	Runs "git rev-parse HEAD" and "git rev-parse --abbrev-ref HEAD"
//	with root as the working directory. A detached HEAD reports itself
//	as the literal "HEAD", which maps to an empty branch. Roots outside
//	any repository, repositories with no commits yet, and hosts without
//	git all wrap ErrNoRepository.
//
// Inputs:
//
//	ctx - Bounds the git invocations; DefaultTimeout applies when the
//	      context has no deadline.
//	root - Directory inside the work tree, usually the project root.
//
// Outputs:
//
//	Info - Commit and branch; zero value on error.
//	error - ErrNoRepository wrapped when metadata cannot be read.
//
// Thread Safety: Safe for concurrent use.
func Resolve(ctx context.Context, root string) (Info, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	commit, err := revParse(ctx, root, "HEAD")
	if err != nil {
		return Info{}, err
	}

	branch, err := revParse(ctx, root, "--abbrev-ref", "HEAD")
	if err != nil {
		return Info{}, err
	}
	if branch == "HEAD" {
		branch = ""
	}

	return Info{Commit: commit, Branch: branch}, nil
}

// revParse runs one git rev-parse and returns its trimmed output.
func revParse(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"rev-parse"}, args...)...)
	cmd.Dir = root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: rev-parse %s: %s", ErrNoRepository, strings.Join(args, " "), detail)
	}
	return strings.TrimSpace(stdout.String()), nil
}
