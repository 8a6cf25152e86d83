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

// PersonalityLevel controls how rich terminal output is.
type PersonalityLevel string

const (
	// PersonalityFull uses colors, boxes and the progress spinner.
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal uses plain text with icons.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine prints bare text for pipes and scripts.
	PersonalityMachine PersonalityLevel = "machine"
)

var (
	currentLevel  = PersonalityFull
	personalityMu sync.RWMutex
)

// Level returns the current personality level.
func Level() PersonalityLevel {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentLevel
}

// SetLevel changes the personality level.
func SetLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentLevel = level
}

// ParseLevel converts a flag or env value. Unknown values mean full.
func ParseLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q", "plain":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// InitPersonality picks the level from NOVA_PERSONALITY, falling back to
// machine output when stdout is not a terminal.
func InitPersonality() {
	if env := os.Getenv("NOVA_PERSONALITY"); env != "" {
		SetLevel(ParseLevel(env))
		return
	}
	if !IsTerminal(os.Stdout) {
		SetLevel(PersonalityMachine)
		return
	}
	SetLevel(PersonalityFull)
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// IsInteractive reports whether prompts such as quick-reply selectors
// should be shown.
func IsInteractive() bool {
	return Level() != PersonalityMachine && IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}
