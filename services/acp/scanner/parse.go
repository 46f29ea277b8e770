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
	"fmt"
	"regexp"
	"strings"
)

// annotationPattern matches "@acp:<keyword>" plus the rest of the line.
// Keyword-specific value grammar is handled after the match.
var annotationPattern = regexp.MustCompile(`@acp:([\w-]+)(?:[ \t]+(.*))?`)

// pendingInline is an @acp:fn or @acp:sym waiting for its declaration.
type pendingInline struct {
	kind        AnnotationKind
	description string
	commentLine int
}

// parseFile extracts all annotation records from one file's content.
//
// Description:
//
//	Walks the file line by line. File-level annotations are accepted in
//	the header region (everything before the first non-comment,
//	non-blank line) or in a comment block tagged with @acp:file. Inline
//	fn/sym annotations attach to the nearest following declaration
//	line. Malformed annotations degrade to warnings; the file is always
//	indexed with defaults.
//
// Inputs:
//
//	relPath - Slash-separated path relative to the scan root.
//	data - Raw file content.
//	lang - Lexing rules for the file's extension.
//
// Outputs:
//
//	[]AnnotationRecord - Extracted records in source order.
//	[]Warning - Syntax warnings, in source order.
func parseFile(relPath string, data []byte, lang language) ([]AnnotationRecord, []Warning) {
	var (
		records  []AnnotationRecord
		warnings []Warning
		pending  []pendingInline

		inHeader     = true
		blockHasFile = false
	)

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSuffix(raw, "\r")

		body, isComment := lang.commentText(line)
		if !isComment {
			if strings.TrimSpace(line) == "" {
				continue
			}
			// First code line ends the header region and any tagged block.
			inHeader = false
			blockHasFile = false

			if len(pending) > 0 {
				if name, ok := lang.declarationName(line); ok {
					for _, p := range pending {
						records = append(records, AnnotationRecord{
							FilePath:    relPath,
							Kind:        p.kind,
							SymbolName:  name,
							LineNumber:  lineNo,
							Description: p.description,
						})
					}
					pending = pending[:0]
				}
			}
			continue
		}

		m := annotationPattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		keyword := m[1]
		value := strings.TrimSpace(m[2])

		switch keyword {
		case keywordFile:
			records = append(records, AnnotationRecord{
				FilePath:    relPath,
				Kind:        KindFile,
				LineNumber:  lineNo,
				Description: unquote(value),
			})
			blockHasFile = true

		case keywordLock:
			if !inHeader && !blockHasFile {
				warnings = append(warnings, outOfPlace(relPath, lineNo, keyword))
				continue
			}
			level, warn := parseLockValue(relPath, lineNo, value)
			if warn != nil {
				warnings = append(warnings, *warn)
			}
			records = append(records, AnnotationRecord{
				FilePath:   relPath,
				Kind:       KindFile,
				LineNumber: lineNo,
				LockLevel:  level,
			})

		case keywordDomain, keywordOwner, keywordLayer:
			if !inHeader && !blockHasFile {
				warnings = append(warnings, outOfPlace(relPath, lineNo, keyword))
				continue
			}
			if value == "" {
				warnings = append(warnings, Warning{
					Kind:    WarningSyntax,
					Path:    relPath,
					Line:    lineNo,
					Message: fmt.Sprintf("@acp:%s requires a value", keyword),
				})
				continue
			}
			rec := AnnotationRecord{FilePath: relPath, Kind: KindFile, LineNumber: lineNo}
			switch keyword {
			case keywordDomain:
				rec.Domain = unquote(value)
			case keywordOwner:
				rec.Owner = unquote(value)
			case keywordLayer:
				rec.Layer = unquote(value)
			}
			records = append(records, rec)

		case keywordFn:
			pending = append(pending, pendingInline{KindFn, unquote(value), lineNo})

		case keywordSym:
			pending = append(pending, pendingInline{KindSym, unquote(value), lineNo})

		default:
			warnings = append(warnings, Warning{
				Kind:    WarningSyntax,
				Path:    relPath,
				Line:    lineNo,
				Message: fmt.Sprintf("unknown annotation keyword %q", keyword),
			})
		}
	}

	// Inline annotations with no following declaration are dropped.
	for _, p := range pending {
		warnings = append(warnings, Warning{
			Kind:    WarningSyntax,
			Path:    relPath,
			Line:    p.commentLine,
			Message: fmt.Sprintf("@acp:%s has no following declaration", p.kind),
		})
	}

	return records, warnings
}

// parseLockValue parses "<level> - <reason>" after @acp:lock.
//
// The reason is accepted but not persisted. A missing or unrecognized
// level token defaults to none with a syntax warning, per the lock
// grammar.
func parseLockValue(path string, line int, value string) (LockLevel, *Warning) {
	if value == "" {
		return LockNone, &Warning{
			Kind:    WarningSyntax,
			Path:    path,
			Line:    line,
			Message: "@acp:lock requires a level value",
		}
	}

	token := value
	if idx := strings.Index(value, " - "); idx >= 0 {
		token = value[:idx]
	}

	level, ok := ParseLockLevel(token)
	if !ok {
		return LockNone, &Warning{
			Kind:    WarningSyntax,
			Path:    path,
			Line:    line,
			Message: fmt.Sprintf("unrecognized lock level %q, defaulting to none", token),
		}
	}
	return level, nil
}

// outOfPlace builds the warning for file-level keywords outside the
// header region or an @acp:file tagged block.
func outOfPlace(path string, line int, keyword string) Warning {
	return Warning{
		Kind:    WarningSyntax,
		Path:    path,
		Line:    line,
		Message: fmt.Sprintf("@acp:%s outside file-level annotation block", keyword),
	}
}

// unquote strips one pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// looksBinary reports whether content appears to be binary. A NUL byte
// in the first 8000 bytes is the classic heuristic git also uses.
func looksBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
