// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conversation

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// DefaultHistoryLimit is how many messages are forwarded to a completion
// service when no limit is configured.
const DefaultHistoryLimit = 20

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptTagPattern   = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
)

// StripScripts removes script elements, then any unpaired script tag.
func StripScripts(s string) string {
	s = scriptBlockPattern.ReplaceAllString(s, "")
	return scriptTagPattern.ReplaceAllString(s, "")
}

// PrepareHistory returns the messages that may be forwarded to a
// completion service.
//
// # Description
//
// Only user and assistant messages are kept. Content is stripped of script
// elements and trimmed; messages left blank are dropped. Of what remains,
// the last limit messages are returned in their original order.
//
// # Inputs
//
//   - history: Full client-held history, oldest first.
//   - limit: Maximum messages to keep. Zero or negative means
//     DefaultHistoryLimit.
//
// # Outputs
//
//   - []chat.Message: A new slice; history is not modified.
func PrepareHistory(history []chat.Message, limit int) []chat.Message {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	kept := make([]chat.Message, 0, len(history))
	for _, m := range history {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(StripScripts(m.Content))
		if content == "" {
			continue
		}
		m.Content = content
		kept = append(kept, m)
	}

	if len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
