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
	"fmt"
	"io"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// CheckDiff renders verdicts for every file a unified diff touches.
//
// Description:
//
//	Parses a unified diff (git or plain format) and checks each target
//	path. For edits and additions the new name identifies the target;
//	deletions fall back to the original name. The a/ and b/ prefixes
//	git puts on paths are stripped so targets line up with index keys.
//
// Inputs:
//
//	r - The patch text.
//
// Outputs:
//
//	*Report - One verdict per touched file.
//	error - ErrMalformedDiff wrapped when the patch cannot be parsed.
//
// Thread Safety: Safe for concurrent use.
func (g *Guard) CheckDiff(r io.Reader) (*Report, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(r).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDiff, err)
	}

	paths := make([]string, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		paths = append(paths, diffTarget(fd))
	}
	return g.Check(paths), nil
}

// diffTarget extracts the constrained path from one file diff.
func diffTarget(fd *diff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == "/dev/null" {
		path = fd.OrigName
	}
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return path
}
