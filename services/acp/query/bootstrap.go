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
	"fmt"
	"strings"

	"github.com/AleutianAI/acp/services/acp/cache"
	"github.com/AleutianAI/acp/services/acp/scanner"
)

// BootstrapCeiling is the hard byte bound on the bootstrap line. The
// line is meant to ride along in every agent context, so it stays at
// roughly forty tokens no matter how large the index grows.
const BootstrapCeiling = 160

// Bootstrap produces the one-line always-injected index summary.
//
// Description:
//
//	The line states whether an index exists, how many files it covers,
//	how many are frozen, and how to query for more. When the frozen
//	paths themselves fit inside the ceiling they are listed; otherwise
//	only the count survives. A nil cache yields the "no index" form
//	with the command that creates one.
//
// Inputs:
//
//	c - The current cache, or nil when no index exists.
//
// Outputs:
//
//	string - At most BootstrapCeiling bytes.
//
// Thread Safety: Safe for concurrent use.
func Bootstrap(c *cache.Cache) string {
	if c == nil {
		return "ACP: no index. Run 'acp index' to enable constraint queries."
	}

	frozen := c.PathsByLockLevel(scanner.LockFrozen)
	hint := "Details: 'acp query'."

	if len(frozen) > 0 {
		full := fmt.Sprintf("ACP: %d files indexed, %d frozen (%s). %s",
			len(c.Files), len(frozen), strings.Join(frozen, ", "), hint)
		if len(full) <= BootstrapCeiling {
			return full
		}
	}

	return fmt.Sprintf("ACP: %d files indexed, %d frozen. %s",
		len(c.Files), len(frozen), hint)
}
