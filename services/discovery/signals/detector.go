// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package signals inspects a completed assistant message for UI hints: is
// it the project summary, and which quick replies fit the question it asks.
//
// Detection is a keyword heuristic over every supported locale, since the
// model mirrors the visitor's language rather than the interface locale.
package signals

import (
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
)

// Result of classifying one assistant message.
type Result struct {
	Summary       bool
	QuickReplySet conversation.OptionSet
}

// HasQuickReplies reports whether a set was detected.
func (r Result) HasQuickReplies() bool {
	return r.QuickReplySet != conversation.OptionsNone
}

// Classify inspects text.
//
// # Description
//
// A summary marker wins outright and yields no quick-reply set. Otherwise a
// budget keyword yields the budget set. Failing that, the set whose keyword
// occurs latest in the text is returned, since the question usually closes
// the message; ties go to the set listed first in setKeywords.
//
// # Examples
//
//	Classify("**📋 Project Summary** ...")         // {Summary: true}
//	Classify("Great. What budget do you have?")  // {QuickReplySet: budget}
//	Classify("Tell me more.")                    // {}
func Classify(text string) Result {
	lower := strings.ToLower(text)

	for _, marker := range summaryMarkers {
		if strings.Contains(lower, marker) {
			return Result{Summary: true}
		}
	}

	if containsAny(lower, setKeywords[0].keywords) {
		return Result{QuickReplySet: setKeywords[0].set}
	}

	best, bestPos := conversation.OptionsNone, -1
	for _, entry := range setKeywords[1:] {
		if pos := lastIndexAny(lower, entry.keywords); pos > bestPos {
			best, bestPos = entry.set, pos
		}
	}
	return Result{QuickReplySet: best}
}

func containsAny(text string, byLocale map[string][]string) bool {
	return lastIndexAny(text, byLocale) >= 0
}

func lastIndexAny(text string, byLocale map[string][]string) int {
	pos := -1
	for _, keywords := range byLocale {
		for _, kw := range keywords {
			if i := strings.LastIndex(text, kw); i > pos {
				pos = i
			}
		}
	}
	return pos
}

// Detector turns a Result into the chat.Signals attached to a done chunk.
type Detector struct {
	catalog *i18n.Catalog
}

// NewDetector returns a Detector using catalog for option labels.
func NewDetector(catalog *i18n.Catalog) *Detector {
	return &Detector{catalog: catalog}
}

// Options returns the localized quick replies of set.
func (d *Detector) Options(set conversation.OptionSet, locale string) []chat.QuickReply {
	return conversation.OptionReplies(d.catalog, locale, set)
}

// Signals classifies the final message of a turn. When the driver already
// knows which set it offered, that set takes precedence over detection.
// Nil means nothing worth signalling.
func (d *Detector) Signals(final chat.Message, offered conversation.OptionSet, locale string) *chat.Signals {
	res := Classify(final.Content)
	if offered != conversation.OptionsNone && !res.Summary {
		res.QuickReplySet = offered
	}
	if !res.Summary && !res.HasQuickReplies() {
		return nil
	}
	return &chat.Signals{
		SummaryReady:  res.Summary,
		QuickReplySet: string(res.QuickReplySet),
		QuickReplies:  d.Options(res.QuickReplySet, locale),
	}
}
