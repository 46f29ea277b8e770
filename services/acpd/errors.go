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

import "errors"

var (
	// ErrNoSnapshot is returned by query operations before the first
	// successful index load or reindex.
	ErrNoSnapshot = errors.New("no cache snapshot published")

	// ErrReindexInProgress is returned when a reindex request arrives
	// while another one is still running.
	ErrReindexInProgress = errors.New("reindex already in progress")

	// ErrArchiveDisabled is returned by snapshot endpoints when the
	// daemon was started without an archive.
	ErrArchiveDisabled = errors.New("snapshot archive not configured")
)
