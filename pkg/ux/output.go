// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux is the terminal side of the discovery chat: styles, the NDJSON
// chunk reader, a progressive renderer and the HTTP client used by
// "nova chat" and "nova report".
package ux

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// NOVA palette.
var (
	ColorIndigo = lipgloss.Color("#6366F1") // brand, titles
	ColorViolet = lipgloss.Color("#8B5CF6") // assistant name
	ColorSky    = lipgloss.Color("#38BDF8") // quick replies
	ColorSlate  = lipgloss.Color("#64748B") // muted text, borders

	ColorSuccess = lipgloss.Color("#22C55E")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorError   = lipgloss.Color("#EF4444")
)

// Styles are the pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Assistant lipgloss.Style
	User      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Reply     lipgloss.Style

	SummaryBox lipgloss.Style
	ErrorBox   lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorIndigo),
	Assistant: lipgloss.NewStyle().Bold(true).Foreground(ColorViolet),
	User:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Reply:     lipgloss.NewStyle().Foreground(ColorSky),

	SummaryBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIndigo).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
)

// Render returns the icon styled for its meaning.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return Styles.Muted.Render(string(i))
	}
}

// Success prints a success line to w.
func Success(w io.Writer, text string) {
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(w, "OK: %s\n", text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconSuccess.Render(), text)
	}
}

// Warning prints a warning line to w.
func Warning(w io.Writer, text string) {
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(w, "WARN: %s\n", text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error line to w.
func Error(w io.Writer, text string) {
	switch Level() {
	case PersonalityMachine:
		fmt.Fprintf(w, "ERROR: %s\n", text)
	default:
		fmt.Fprintf(w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Muted prints secondary text; nothing in machine mode.
func Muted(w io.Writer, text string) {
	if Level() == PersonalityMachine {
		return
	}
	fmt.Fprintln(w, Styles.Muted.Render(text))
}

// Box renders content in the summary box, or plainly in machine mode.
func Box(w io.Writer, content string) {
	if Level() != PersonalityFull {
		fmt.Fprintln(w, content)
		return
	}
	fmt.Fprintln(w, Styles.SummaryBox.Width(72).Render(content))
}
