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
	"context"
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
)

// ScriptedDriver walks the phase table. The current phase is derived from
// the number of user answers in the history, so the driver keeps no state.
type ScriptedDriver struct {
	catalog     *i18n.Catalog
	calendarURL string
}

// NewScriptedDriver returns a driver reading its texts from catalog.
// calendarURL, when set, is appended to the closing message.
func NewScriptedDriver(catalog *i18n.Catalog, calendarURL string) *ScriptedDriver {
	return &ScriptedDriver{catalog: catalog, calendarURL: calendarURL}
}

// Name implements Driver.
func (d *ScriptedDriver) Name() string { return "scripted" }

// Ready implements Driver.
func (d *ScriptedDriver) Ready() bool { return true }

// NextTurn implements Driver.
func (d *ScriptedDriver) NextTurn(_ context.Context, turn Turn) Response {
	loc := d.catalog.For(turn.Locale)
	answers := userAnswers(turn.History)

	if len(answers) == 0 {
		first := transitions[PhaseGreeting].Next
		prompt := transitions[first]
		return Response{
			Text:    joinParagraphs(loc.T(transitions[PhaseGreeting].PromptKey), loc.T(prompt.PromptKey)),
			Options: prompt.Options,
			Stage:   string(first),
		}
	}

	answering := PhaseAfter(len(answers) - 1)
	next, ok := Advance(answering)
	if !ok {
		return Response{Text: d.closing(loc), Stage: string(PhaseSummary)}
	}

	row := transitions[answering]
	answer := d.labelFor(loc, row.Options, answers[len(answers)-1])
	ack := loc.T(row.AckKey, map[string]string{"answer": answer})

	if next == PhaseSummary {
		return Response{
			Text:  joinParagraphs(ack, loc.T(transitions[PhaseSummary].PromptKey), d.renderSummary(loc, answers)),
			Stage: string(PhaseSummary),
		}
	}

	nextRow := transitions[next]
	return Response{
		Text:    joinParagraphs(ack, loc.T(nextRow.PromptKey)),
		Options: nextRow.Options,
		Stage:   string(next),
	}
}

// renderSummary builds the end-of-flow artifact: one bold row per answered
// phase, headed by the localized summary title.
func (d *ScriptedDriver) renderSummary(loc i18n.Localizer, answers []string) string {
	var sb strings.Builder
	sb.WriteString("**" + loc.T("summary.title") + "**\n")

	phase := transitions[PhaseGreeting].Next
	for _, answer := range answers {
		row := transitions[phase]
		sb.WriteString("\n**" + loc.T("summary.rows."+string(phase)) + ":** ")
		sb.WriteString(d.labelFor(loc, row.Options, answer))

		next, ok := Advance(phase)
		if !ok || next == PhaseSummary {
			break
		}
		phase = next
	}

	sb.WriteString("\n\n**" + loc.T("summary.nextStep") + "**")
	return sb.String()
}

func (d *ScriptedDriver) closing(loc i18n.Localizer) string {
	text := loc.T("scripted.closed")
	if d.calendarURL != "" {
		text = joinParagraphs(text, loc.T("messages.scheduleCallLink", map[string]string{"url": d.calendarURL}))
	}
	return text
}

// labelFor renders an answer for display. Option ids (what quick-reply
// buttons send) become localized labels; free text is kept as typed.
func (d *ScriptedDriver) labelFor(loc i18n.Localizer, set OptionSet, answer string) string {
	answer = strings.TrimSpace(answer)
	if set == OptionsNone {
		return answer
	}
	for _, id := range OptionIDs[set] {
		if strings.EqualFold(answer, id) {
			return loc.T("options." + string(set) + "." + id)
		}
	}
	return answer
}

// OptionReplies returns the localized quick replies of set.
func OptionReplies(catalog *i18n.Catalog, locale string, set OptionSet) []chat.QuickReply {
	ids := OptionIDs[set]
	if len(ids) == 0 {
		return nil
	}
	loc := catalog.For(locale)
	out := make([]chat.QuickReply, 0, len(ids))
	for _, id := range ids {
		out = append(out, chat.QuickReply{ID: id, Label: loc.T("options." + string(set) + "." + id)})
	}
	return out
}

func userAnswers(history []chat.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role == chat.RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

func joinParagraphs(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

var _ Driver = (*ScriptedDriver)(nil)
