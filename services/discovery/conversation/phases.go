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

// =============================================================================
// Phases
// =============================================================================

// Phase is a step of the scripted discovery flow.
type Phase string

const (
	PhaseGreeting     Phase = "greeting"
	PhaseProjectType  Phase = "project_type"
	PhaseIndustry     Phase = "industry"
	PhaseProblem      Phase = "problem"
	PhaseDescription  Phase = "description"
	PhaseAudience     Phase = "audience"
	PhaseUserRoles    Phase = "user_roles"
	PhaseFeatures     Phase = "features"
	PhaseIntegrations Phase = "integrations"
	PhaseDesign       Phase = "design"
	PhaseScale        Phase = "scale"
	PhaseTimeline     Phase = "timeline"
	PhaseStage        Phase = "stage"
	PhaseBudget       Phase = "budget"
	PhaseSummary      Phase = "summary"
)

// OptionSet names a fixed vocabulary of quick replies. The catalog holds
// its labels under "options.<set>.<id>".
type OptionSet string

const (
	OptionsNone        OptionSet = ""
	OptionsProjectType OptionSet = "projectType"
	OptionsIndustry    OptionSet = "industry"
	OptionsAudience    OptionSet = "audience"
	OptionsStage       OptionSet = "stage"
	OptionsBudget      OptionSet = "budget"
	OptionsScale       OptionSet = "scale"
	OptionsTimeline    OptionSet = "timeline"
)

// OptionIDs lists the ids of each set in display order.
var OptionIDs = map[OptionSet][]string{
	OptionsProjectType: {"webapp", "mobile", "saas", "dashboard", "ecommerce", "other"},
	OptionsIndustry:    {"healthcare", "fintech", "education", "retail", "realestate", "logistics", "hr", "media", "otherindustry"},
	OptionsAudience:    {"b2b", "b2c", "internal", "both"},
	OptionsStage:       {"idea", "design", "existing", "mvp"},
	OptionsBudget:      {"under10", "10to25", "25to50", "50to100", "over100", "unsure"},
	OptionsScale:       {"scale_small", "scale_medium", "scale_large", "scale_massive", "scale_unsure"},
	OptionsTimeline:    {"timeline_1m", "timeline_3m", "timeline_6m", "timeline_12m", "timeline_flexible"},
}

// Transition describes one row of the phase table.
//
//   - PromptKey is the question asked while the flow waits in this phase.
//   - Options are the quick replies offered with that question.
//   - AckKey acknowledges an answer given in this phase.
//   - Next is the phase entered after any answer.
type Transition struct {
	PromptKey string
	Options   OptionSet
	AckKey    string
	Next      Phase
}

// transitions is the whole flow. The summary row has no Next: it is the
// only terminal phase.
var transitions = map[Phase]Transition{
	PhaseGreeting:     {PromptKey: "scripted.greeting", Next: PhaseProjectType},
	PhaseProjectType:  {PromptKey: "scripted.askProjectType", Options: OptionsProjectType, AckKey: "scripted.ackProjectType", Next: PhaseIndustry},
	PhaseIndustry:     {PromptKey: "scripted.askIndustry", Options: OptionsIndustry, AckKey: "scripted.ackIndustry", Next: PhaseProblem},
	PhaseProblem:      {PromptKey: "scripted.askProblem", AckKey: "scripted.ackProblem", Next: PhaseDescription},
	PhaseDescription:  {PromptKey: "scripted.askDescription", AckKey: "scripted.ackDescription", Next: PhaseAudience},
	PhaseAudience:     {PromptKey: "scripted.askAudience", Options: OptionsAudience, AckKey: "scripted.ackAudience", Next: PhaseUserRoles},
	PhaseUserRoles:    {PromptKey: "scripted.askUserRoles", AckKey: "scripted.ackUserRoles", Next: PhaseFeatures},
	PhaseFeatures:     {PromptKey: "scripted.askFeatures", AckKey: "scripted.ackFeatures", Next: PhaseIntegrations},
	PhaseIntegrations: {PromptKey: "scripted.askIntegrations", AckKey: "scripted.ackIntegrations", Next: PhaseDesign},
	PhaseDesign:       {PromptKey: "scripted.askDesign", AckKey: "scripted.ackDesign", Next: PhaseScale},
	PhaseScale:        {PromptKey: "scripted.askScale", Options: OptionsScale, AckKey: "scripted.ackScale", Next: PhaseTimeline},
	PhaseTimeline:     {PromptKey: "scripted.askTimeline", Options: OptionsTimeline, AckKey: "scripted.ackTimeline", Next: PhaseStage},
	PhaseStage:        {PromptKey: "scripted.askStage", Options: OptionsStage, AckKey: "scripted.ackStage", Next: PhaseBudget},
	PhaseBudget:       {PromptKey: "scripted.askBudget", Options: OptionsBudget, AckKey: "scripted.ackBudget", Next: PhaseSummary},
	PhaseSummary:      {PromptKey: "scripted.summaryIntro"},
}

// Order lists every phase in flow order.
var Order = []Phase{
	PhaseGreeting, PhaseProjectType, PhaseIndustry, PhaseProblem, PhaseDescription,
	PhaseAudience, PhaseUserRoles, PhaseFeatures, PhaseIntegrations, PhaseDesign,
	PhaseScale, PhaseTimeline, PhaseStage, PhaseBudget, PhaseSummary,
}

// TransitionFor returns the table row for p.
func TransitionFor(p Phase) (Transition, bool) {
	t, ok := transitions[p]
	return t, ok
}

// Advance returns the phase entered after an answer in p. It returns false
// for the terminal phase and for unknown phases.
func Advance(p Phase) (Phase, bool) {
	t, ok := transitions[p]
	if !ok || t.Next == "" {
		return p, false
	}
	return t.Next, true
}

// IsTerminal reports whether p has no outgoing transition.
func IsTerminal(p Phase) bool {
	_, ok := Advance(p)
	return !ok
}

// PhaseAfter returns the phase waiting for input after n answers. The
// greeting needs no answer, so zero answers means project_type.
func PhaseAfter(answers int) Phase {
	p := transitions[PhaseGreeting].Next
	for i := 0; i < answers; i++ {
		next, ok := Advance(p)
		if !ok {
			break
		}
		p = next
	}
	return p
}
