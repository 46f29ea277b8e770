// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner extracts @acp annotations from source trees.
//
// This package implements the annotation scanner: it walks a project
// directory, identifies comment lines carrying the @acp lexical pattern,
// and produces flat AnnotationRecord values with line numbers. Records
// are consumed by the cache builder; the scanner holds no cross-file
// state.
//
// # Design Principles
//
// Scanning never fails a whole run because of one bad file. Unreadable,
// oversized, binary, or slow files are skipped and recorded as warnings
// so callers can audit scan quality. Output ordering is deterministic
// (sorted by path, then line) regardless of worker scheduling.
//
// # Thread Safety
//
// Scanner is safe for concurrent use. Individual ScanResult values are
// NOT safe for concurrent modification after creation.
package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for scan operations.
var (
	// ErrInvalidRoot is returned when the scan root path is invalid.
	ErrInvalidRoot = errors.New("invalid scan root")

	// ErrFileTooLarge is recorded when a file exceeds the configured
	// size limit. Large files are skipped to bound memory use.
	ErrFileTooLarge = errors.New("file too large to scan")

	// ErrBinaryContent is recorded when a file appears to be binary.
	// Binary files cannot carry comment annotations.
	ErrBinaryContent = errors.New("binary content")

	// ErrReadTimeout is recorded when reading a file exceeds the
	// per-file timeout. The file is skipped and scanning continues.
	ErrReadTimeout = errors.New("file read timed out")
)

// WarningKind classifies a non-fatal scan or build problem.
type WarningKind string

const (
	// WarningIO covers unreadable, oversized, binary, or timed-out files.
	WarningIO WarningKind = "io"

	// WarningSyntax covers malformed annotations: unknown keywords,
	// missing required values, or inline annotations with no following
	// declaration.
	WarningSyntax WarningKind = "syntax"

	// WarningConflict covers contradictory file-level metadata, where
	// the first occurrence wins.
	WarningConflict WarningKind = "conflict"
)

// Warning is a non-fatal problem encountered while scanning or building.
//
// Warnings are accumulated and returned alongside successful results,
// never swallowed, so a caller can audit what the index omits.
type Warning struct {
	// Kind classifies the warning.
	Kind WarningKind `json:"kind"`

	// Path is the file the warning refers to, relative to the scan root.
	Path string `json:"path"`

	// Line is the 1-indexed source line, or 0 when not line-scoped.
	Line int `json:"line,omitempty"`

	// Message describes the problem.
	Message string `json:"message"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (w Warning) Error() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s %s:%d: %s", w.Kind, w.Path, w.Line, w.Message)
	}
	return fmt.Sprintf("%s %s: %s", w.Kind, w.Path, w.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (w Warning) Unwrap() error {
	return w.Err
}

// MarshalJSON implements json.Marshaler.
// The underlying error is folded into the message for transport.
func (w Warning) MarshalJSON() ([]byte, error) {
	msg := w.Message
	if w.Err != nil {
		msg = fmt.Sprintf("%s: %v", w.Message, w.Err)
	}
	return json.Marshal(struct {
		Kind    WarningKind `json:"kind"`
		Path    string      `json:"path"`
		Line    int         `json:"line,omitempty"`
		Message string      `json:"message"`
	}{w.Kind, w.Path, w.Line, msg})
}
