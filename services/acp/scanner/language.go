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
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// language describes how to lex one language family: which comment
// prefixes can carry annotations and how a symbol declaration line
// yields an identifier.
type language struct {
	name string

	// linePrefixes are comment openers checked after trimming leading
	// whitespace, longest first.
	linePrefixes []string

	// blockComments enables recognition of /* ... */ style lines
	// ("/*", "*", "*/" openers).
	blockComments bool

	// declarations are tried in order against a code line; the first
	// submatch of the first hit is the symbol name.
	declarations []*regexp.Regexp
}

var (
	goDecls = []*regexp.Regexp{
		regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`),
		regexp.MustCompile(`^type\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^(?:var|const)\s+([A-Za-z_]\w*)`),
	}

	pythonDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^\s*class\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^([A-Z_][A-Z0-9_]*)\s*=`),
	}

	jsDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$]\w*)`),
		regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+([A-Za-z_$]\w*)`),
		regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$]\w*)`),
		regexp.MustCompile(`^\s*(?:export\s+)?(?:interface|type|enum)\s+([A-Za-z_$]\w*)`),
	}

	rustDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?(?:unsafe\s+)?fn\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait|mod|union)\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const|static|type)\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^\s*impl(?:<[^>]*>)?\s+([A-Za-z_]\w*)`),
	}

	cDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:typedef\s+)?(?:struct|enum|union|class)\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^\s*#define\s+([A-Za-z_]\w*)`),
		regexp.MustCompile(`^[\w\s\*&:<>,]+?\b([A-Za-z_]\w*)\s*\(`),
	}

	shellDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:function\s+)?([A-Za-z_]\w*)\s*\(\)`),
	}

	rubyDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*def\s+([A-Za-z_]\w*[?!]?)`),
		regexp.MustCompile(`^\s*(?:class|module)\s+([A-Za-z_]\w*)`),
	}

	sqlDecls = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(?:TABLE|VIEW|FUNCTION|PROCEDURE|INDEX|TRIGGER)\s+(?:IF\s+NOT\s+EXISTS\s+)?([A-Za-z_][\w.]*)`),
	}

	luaDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:local\s+)?function\s+([A-Za-z_][\w.:]*)`),
	}

	// genericDecls is the fallback for extensions with no dedicated
	// table entry: keyword-introduced declarations only.
	genericDecls = []*regexp.Regexp{
		regexp.MustCompile(`^\s*(?:function|func|def|fn|class|struct|interface|trait|enum|type|module|sub|proc)\s+([A-Za-z_][\w.:]*)`),
	}
)

// languages maps file extensions (with leading dot) to lexing rules.
// Extended or overridden via WithCommentPrefix.
var languages = map[string]language{
	".go":   {name: "go", linePrefixes: []string{"//"}, blockComments: true, declarations: goDecls},
	".js":   {name: "javascript", linePrefixes: []string{"//"}, blockComments: true, declarations: jsDecls},
	".jsx":  {name: "javascript", linePrefixes: []string{"//"}, blockComments: true, declarations: jsDecls},
	".ts":   {name: "typescript", linePrefixes: []string{"//"}, blockComments: true, declarations: jsDecls},
	".tsx":  {name: "typescript", linePrefixes: []string{"//"}, blockComments: true, declarations: jsDecls},
	".java": {name: "java", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".c":    {name: "c", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".h":    {name: "c", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".cpp":  {name: "cpp", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".hpp":  {name: "cpp", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".cs":   {name: "csharp", linePrefixes: []string{"//"}, blockComments: true, declarations: cDecls},
	".rs":   {name: "rust", linePrefixes: []string{"//!", "///", "//"}, blockComments: true, declarations: rustDecls},
	".py":   {name: "python", linePrefixes: []string{"#"}, declarations: pythonDecls},
	".rb":   {name: "ruby", linePrefixes: []string{"#"}, declarations: rubyDecls},
	".sh":   {name: "shell", linePrefixes: []string{"#"}, declarations: shellDecls},
	".bash": {name: "shell", linePrefixes: []string{"#"}, declarations: shellDecls},
	".yaml": {name: "yaml", linePrefixes: []string{"#"}},
	".yml":  {name: "yaml", linePrefixes: []string{"#"}},
	".toml": {name: "toml", linePrefixes: []string{"#"}},
	".sql":  {name: "sql", linePrefixes: []string{"--"}, declarations: sqlDecls},
	".lua":  {name: "lua", linePrefixes: []string{"--"}, declarations: luaDecls},
}

// DefaultExtensions returns the extensions scanned when the caller
// does not configure a set, sorted for determinism.
func DefaultExtensions() []string {
	exts := make([]string, 0, len(languages))
	for ext := range languages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// languageFor resolves lexing rules for a path. Unknown extensions
// get a generic rule set when the caller configured a custom prefix.
func languageFor(path string, custom map[string]string) (language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if prefix, ok := custom[ext]; ok {
		if lang, known := languages[ext]; known {
			lang.linePrefixes = []string{prefix}
			return lang, true
		}
		return language{name: "custom", linePrefixes: []string{prefix}, declarations: genericDecls}, true
	}
	lang, ok := languages[ext]
	return lang, ok
}

// commentText returns the comment body of a line, stripped of its
// prefix, and whether the line is a comment at all.
func (l language) commentText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, p := range l.linePrefixes {
		if strings.HasPrefix(trimmed, p) {
			return strings.TrimSpace(trimmed[len(p):]), true
		}
	}
	if l.blockComments {
		switch {
		case strings.HasPrefix(trimmed, "/*"):
			body := strings.TrimPrefix(trimmed, "/*")
			body = strings.TrimSuffix(body, "*/")
			return strings.TrimSpace(body), true
		case strings.HasPrefix(trimmed, "*/"):
			return "", true
		case strings.HasPrefix(trimmed, "*"):
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "*")), true
		}
	}
	return "", false
}

// declarationName extracts the declared identifier from a code line.
func (l language) declarationName(line string) (string, bool) {
	decls := l.declarations
	if len(decls) == 0 {
		decls = genericDecls
	}
	for _, re := range decls {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}
