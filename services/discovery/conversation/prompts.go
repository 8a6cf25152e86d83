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
	_ "embed"
	"fmt"
	"strings"
)

//go:embed prompts/system.md
var systemPrompt string

//go:embed prompts/proposal.md
var proposalPrompt string

// SystemPrompt returns the discovery instruction with a directive to answer
// in language (a display name such as "Română").
func SystemPrompt(language string) string {
	return withLanguage(systemPrompt, language)
}

// ProposalPrompt returns the proposal instruction with the same directive.
func ProposalPrompt(language string) string {
	return withLanguage(proposalPrompt, language)
}

func withLanguage(prompt, language string) string {
	prompt = strings.TrimSpace(prompt)
	if language == "" {
		return prompt
	}
	return prompt + fmt.Sprintf("\n\nThe visitor selected the interface language %s. Respond in %s unless they write to you in another language.", language, language)
}
