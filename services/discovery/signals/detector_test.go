// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
)

func TestClassify_Summary(t *testing.T) {
	tests := []string{
		"**📋 Project Summary**\n\n**Budget:** 10k",
		"Here is your PROJECT SUMMARY",
		"**Rezumatul Proiectului**",
		"项目摘要如下",
	}
	for _, text := range tests {
		res := Classify(text)

		assert.True(t, res.Summary, text)
		assert.False(t, res.HasQuickReplies(), text)
	}
}

func TestClassify_NoMarker(t *testing.T) {
	res := Classify("Thanks for sharing. Tell me more about your idea.")

	assert.False(t, res.Summary)
	assert.Equal(t, conversation.OptionsNone, res.QuickReplySet)
}

func TestClassify_BudgetOnly(t *testing.T) {
	tests := []string{
		"What budget range are you considering?",
		"Which industry is it for, and what budget do you have?",
		"Ce buget ai în minte? Și care este publicul țintă?",
		"予算はどのくらいですか？",
	}
	for _, text := range tests {
		assert.Equal(t, conversation.OptionsBudget, Classify(text).QuickReplySet, text)
	}
}

func TestClassify_LatestKeywordWins(t *testing.T) {
	tests := []struct {
		text string
		want conversation.OptionSet
	}{
		{"What type of product would you like to build?", conversation.OptionsProjectType},
		{"A web app, nice. Which industry is it for?", conversation.OptionsIndustry},
		{"Fintech, got it. Who are the primary users?", conversation.OptionsAudience},
		{"Your target audience is clear. How many users do you expect?", conversation.OptionsScale},
		{"When would you like the first version to be ready?", conversation.OptionsTimeline},
		{"Where is the project today? What is its current stage?", conversation.OptionsStage},
		{"Quel est votre public cible ?", conversation.OptionsAudience},
		{"В какой отрасли работает ваш продукт?", conversation.OptionsIndustry},
		{"¿En qué etapa está el proyecto?", conversation.OptionsStage},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text).QuickReplySet)
		})
	}
}

func TestDetector_Options(t *testing.T) {
	d := NewDetector(i18n.MustLoad())

	replies := d.Options(conversation.OptionsStage, "en")

	require.Len(t, replies, 4)
	assert.Equal(t, "idea", replies[0].ID)
	assert.Equal(t, "Just an idea", replies[0].Label)
}

func TestDetector_Signals(t *testing.T) {
	d := NewDetector(i18n.MustLoad())

	t.Run("nothing to signal", func(t *testing.T) {
		assert.Nil(t, d.Signals(chat.NewAssistantMessage("Tell me more."), conversation.OptionsNone, "en"))
	})

	t.Run("summary", func(t *testing.T) {
		s := d.Signals(chat.NewAssistantMessage("**📋 Project Summary**"), conversation.OptionsBudget, "en")

		require.NotNil(t, s)
		assert.True(t, s.SummaryReady)
		assert.Empty(t, s.QuickReplies)
	})

	t.Run("offered set overrides detection", func(t *testing.T) {
		s := d.Signals(chat.NewAssistantMessage("Which industry?"), conversation.OptionsScale, "en")

		require.NotNil(t, s)
		assert.Equal(t, "scale", s.QuickReplySet)
		assert.Len(t, s.QuickReplies, 5)
	})

	t.Run("detected set", func(t *testing.T) {
		s := d.Signals(chat.NewAssistantMessage("What budget range fits?"), conversation.OptionsNone, "en")

		require.NotNil(t, s)
		assert.False(t, s.SummaryReady)
		assert.Equal(t, "budget", s.QuickReplySet)
		assert.Len(t, s.QuickReplies, 6)
	})
}
