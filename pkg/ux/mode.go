// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Mode controls how much styling CLI output carries.
type Mode string

const (
	// ModeStyled enables colors and status icons.
	ModeStyled Mode = "styled"

	// ModePlain emits prefix-tagged plain text suitable for scripts,
	// CI logs, and piped output.
	ModePlain Mode = "plain"
)

var (
	currentMode = ModeStyled
	modeMu      sync.RWMutex
)

// GetMode returns the current output mode.
func GetMode() Mode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode updates the output mode.
func SetMode(m Mode) {
	modeMu.Lock()
	defer modeMu.Unlock()
	currentMode = m
}

// ParseMode converts a string to Mode. Unknown values fall back to
// styled so a typo never silences output entirely.
func ParseMode(s string) Mode {
	switch strings.ToLower(s) {
	case "plain", "machine", "p":
		return ModePlain
	default:
		return ModeStyled
	}
}

// InitMode initializes the output mode from environment and context.
//
// Precedence: ACP_PLAIN environment variable, then terminal detection.
// Non-interactive stdout (pipes, CI) gets plain output.
func InitMode() {
	if v := os.Getenv("ACP_PLAIN"); v != "" && v != "0" && !strings.EqualFold(v, "false") {
		SetMode(ModePlain)
		return
	}

	if !isTerminal() {
		SetMode(ModePlain)
		return
	}

	SetMode(ModeStyled)
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
