// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// ProposalFailedNote replaces the proposal when generation fails.
const ProposalFailedNote = "(proposal generation failed; see the transcript below)"

// Subject returns the email subject for a report generated at t.
func Subject(locale string, t time.Time) string {
	return fmt.Sprintf("NOVA discovery report - %s [%s]", t.UTC().Format("2006-01-02"), locale)
}

// FormatTranscript renders messages one per line as
// "[RFC3339] ROLE: content". Messages without a timestamp use generatedAt.
func FormatTranscript(messages []chat.Message, generatedAt time.Time) string {
	var sb strings.Builder
	for _, m := range messages {
		ts := m.Time()
		if ts.IsZero() {
			ts = generatedAt
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", ts.UTC().Format(time.RFC3339), strings.ToUpper(string(m.Role)), m.Content)
	}
	return sb.String()
}

// emailBody is the plain-text report.
type emailBody struct {
	Locale      string
	GeneratedAt time.Time
	UserEmail   string
	Summary     string
	Proposal    string
	Messages    []chat.Message
}

func (b emailBody) String() string {
	var sb strings.Builder
	sb.WriteString("NOVA Discovery Report\n\n")
	fmt.Fprintf(&sb, "Locale: %s\n", b.Locale)
	fmt.Fprintf(&sb, "Generated at: %s\n", b.GeneratedAt.UTC().Format(time.RFC3339))
	if b.UserEmail != "" {
		fmt.Fprintf(&sb, "Visitor email: %s\n", b.UserEmail)
	}

	sb.WriteString("\n=== Final Assistant Summary ===\n\n")
	sb.WriteString(orPlaceholder(b.Summary, "(no summary provided)"))

	sb.WriteString("\n\n=== Technical Proposal ===\n\n")
	sb.WriteString(orPlaceholder(b.Proposal, ProposalFailedNote))

	sb.WriteString("\n\n=== Full Transcript ===\n\n")
	sb.WriteString(FormatTranscript(b.Messages, b.GeneratedAt))
	return sb.String()
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return strings.TrimSpace(s)
}
