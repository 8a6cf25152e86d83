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
)

// Stage is the offline planner's view of where the conversation is.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageClarifying   Stage = "clarifying"
	StageScoping      Stage = "scoping"
	StageEstimating   Stage = "estimating"
	StageRecommending Stage = "recommending"
)

// stageKeywords is checked in order against the last user message.
var stageKeywords = []struct {
	stage    Stage
	keywords []string
}{
	{StageEstimating, []string{"timeline", "estimate"}},
	{StageScoping, []string{"feature", "scope"}},
	{StageRecommending, []string{"subscription", "custom"}},
}

// PlanStage classifies history by keyword.
//
// # Description
//
// Without a user message the stage is idle. Otherwise the last user message
// is matched against stageKeywords; short conversations (under four
// messages) without a keyword are still clarifying, longer ones scoping.
func PlanStage(history []chat.Message) Stage {
	last, ok := chat.LastByRole(history, chat.RoleUser)
	if !ok {
		return StageIdle
	}

	text := strings.ToLower(last.Content)
	for _, rule := range stageKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.stage
			}
		}
	}
	if len(history) < 4 {
		return StageClarifying
	}
	return StageScoping
}

// OfflineDriver answers with canned English text chosen by PlanStage. It
// exists for local development without completion credentials.
type OfflineDriver struct{}

// NewOfflineDriver returns an OfflineDriver.
func NewOfflineDriver() *OfflineDriver { return &OfflineDriver{} }

// Name implements Driver.
func (d *OfflineDriver) Name() string { return "offline" }

// Ready implements Driver.
func (d *OfflineDriver) Ready() bool { return true }

// NextTurn implements Driver.
func (d *OfflineDriver) NextTurn(_ context.Context, turn Turn) Response {
	stage := PlanStage(turn.History)
	return Response{Text: offlineText(stage, turn.History), Stage: string(stage)}
}

func offlineText(stage Stage, history []chat.Message) string {
	switch stage {
	case StageIdle:
		return "Hello, I am NOVA. Describe the product you have in mind and I will help you shape it into a concrete plan."
	case StageClarifying:
		return "Tell me, in one or two sentences, what you want this software to change for your users. I will then narrow it into a concrete product shape."
	case StageScoping:
		return "I will outline the core capabilities for this product, then we will convert them into scope, timeline, and a calm recommendation. " +
			"Start by confirming the primary user and the single most important workflow."
	case StageEstimating:
		return "Based on what you shared, we can treat this as a focused build. For a first production release, expect roughly six to ten weeks of work with a phased rollout. " +
			"I will break the phases down after you confirm that this framing matches your expectations."
	default:
		idea := "your product idea"
		if last, ok := chat.LastByRole(history, chat.RoleUser); ok && strings.TrimSpace(last.Content) != "" {
			idea = strings.TrimSpace(last.Content)
		}
		return "Given your description, we can handle this as an ongoing subscription with NOVA AI guiding the product, or as a custom engagement with a defined build window. " +
			"Once you confirm which path is closer to your constraints, I will translate " + idea + " into a lean implementation plan."
	}
}

var _ Driver = (*OfflineDriver)(nil)
