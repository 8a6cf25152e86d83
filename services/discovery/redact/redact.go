// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package redact masks credentials and card numbers that visitors paste
// into the chat, before the text reaches the completion service or a
// report email.
//
// # Description
//
// Detection rules live in an embedded YAML file so they ship with the
// binary. Each classification has a priority and a redact flag; flagged
// classifications are replaced by "[redacted:<PATTERN_ID>]".
package redact

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// ClassPublic is returned by Classify when nothing matches.
const ClassPublic = "public"

// Engine holds compiled classifications, highest priority first.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type Engine struct {
	classifications []Classification
}

// New parses a pattern document.
func New(data []byte) (*Engine, error) {
	var file PatternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("redact: parse patterns: %w", err)
	}
	if err := file.compile(); err != nil {
		return nil, fmt.Errorf("redact: %w", err)
	}
	file.sortByPriority()
	return &Engine{classifications: file.Classifications}, nil
}

// Default returns the engine built from the embedded patterns.
var Default = sync.OnceValue(func() *Engine {
	e, err := New(defaultPatterns)
	if err != nil {
		panic(err)
	}
	return e
})

// Classify returns the name of the highest-priority classification
// matching text, or ClassPublic.
func (e *Engine) Classify(text string) string {
	for _, c := range e.classifications {
		for _, p := range c.Patterns {
			if p.compiled.MatchString(text) {
				return c.Name
			}
		}
	}
	return ClassPublic
}

// Scan lists every match, line by line.
func (e *Engine) Scan(text string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(text, "\n") {
		for _, c := range e.classifications {
			for _, p := range c.Patterns {
				if p.compiled.MatchString(line) {
					findings = append(findings, Finding{
						LineNumber:     i + 1,
						Classification: c.Name,
						PatternID:      p.ID,
						Confidence:     p.Confidence,
					})
				}
			}
		}
	}
	return findings
}

// Text masks every match of a redacting classification. It returns the
// masked text and the number of replacements.
func (e *Engine) Text(text string) (string, int) {
	n := 0
	for _, c := range e.classifications {
		if !c.Redact {
			continue
		}
		for _, p := range c.Patterns {
			text = p.compiled.ReplaceAllStringFunc(text, func(string) string {
				n++
				return "[redacted:" + p.ID + "]"
			})
		}
	}
	return text, n
}

// Messages returns a copy of history with user content masked. Assistant
// messages are left alone. The input slice is not modified.
func (e *Engine) Messages(history []chat.Message) ([]chat.Message, int) {
	out := make([]chat.Message, len(history))
	total := 0
	for i, m := range history {
		if m.Role == chat.RoleUser {
			var n int
			m.Content, n = e.Text(m.Content)
			total += n
		}
		out[i] = m
	}
	return out, total
}
