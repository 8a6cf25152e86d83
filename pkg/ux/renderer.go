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
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// Renderer prints an assistant turn progressively.
//
// # Thread Safety
//
// Not safe for concurrent use; one Renderer serves one turn at a time.
type Renderer struct {
	w       io.Writer
	spinner *Spinner
	started bool
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, spinner: NewSpinner(w, "NOVA is typing...")}
}

// Begin starts a turn: prints the assistant label once the first fragment
// arrives and animates the spinner until then.
func (r *Renderer) Begin() {
	r.started = false
	r.spinner.Start()
}

// Text prints one fragment.
func (r *Renderer) Text(fragment string) {
	if !r.started {
		r.spinner.Stop()
		r.started = true
		if Level() != PersonalityMachine {
			fmt.Fprint(r.w, Styles.Assistant.Render("NOVA")+" ")
		}
	}
	fmt.Fprint(r.w, fragment)
}

// End closes the turn. A summary is repeated inside a box; quick replies
// are listed so they can be typed when no selector is shown.
func (r *Renderer) End(res *StreamResult) {
	r.spinner.Stop()
	if r.started {
		fmt.Fprintln(r.w)
	}

	if res.Failed() {
		Error(r.w, res.Error)
		return
	}
	if !res.Terminated {
		Warning(r.w, "The response ended early; showing what arrived.")
	}
	if res.Signals == nil {
		return
	}
	if res.Signals.SummaryReady && Level() == PersonalityFull {
		Box(r.w, res.Final.Content)
	}
	if len(res.Signals.QuickReplies) > 0 {
		fmt.Fprintln(r.w, FormatQuickReplies(res.Signals.QuickReplies))
	}
}

// FormatQuickReplies renders replies as "[1] Label  [2] Label".
func FormatQuickReplies(replies []chat.QuickReply) string {
	parts := make([]string, 0, len(replies))
	for i, qr := range replies {
		label := fmt.Sprintf("[%d] %s", i+1, qr.Label)
		if Level() != PersonalityMachine {
			label = Styles.Reply.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

// ResolveReply maps typed input to a quick-reply id: a 1-based index or a
// case-insensitive label. Anything else is returned unchanged as free text.
func ResolveReply(input string, replies []chat.QuickReply) string {
	input = strings.TrimSpace(input)
	var idx int
	if _, err := fmt.Sscanf(input, "%d", &idx); err == nil && fmt.Sprint(idx) == input && idx >= 1 && idx <= len(replies) {
		return replies[idx-1].ID
	}
	for _, qr := range replies {
		if strings.EqualFold(input, qr.Label) || strings.EqualFold(input, qr.ID) {
			return qr.ID
		}
	}
	return input
}
