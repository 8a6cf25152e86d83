// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ChatRequest Tests
// =============================================================================

func TestChatRequest_Normalize_DropsUnknownRoles(t *testing.T) {
	req := ChatRequest{Messages: []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.Role("tool"), Content: "ignored"},
		{Role: chat.RoleAssistant, Content: "hello"},
	}}

	req.Normalize()

	require.Len(t, req.Messages, 2)
	assert.Equal(t, chat.RoleAssistant, req.Messages[1].Role)
}

func TestChatRequest_Normalize_KeepsNewestMessages(t *testing.T) {
	var req ChatRequest
	for i := 0; i < MaxMessagesPerRequest+5; i++ {
		req.Messages = append(req.Messages, chat.Message{Role: chat.RoleUser, Content: strings.Repeat("x", i+1)})
	}

	req.Normalize()

	require.Len(t, req.Messages, MaxMessagesPerRequest)
	assert.Len(t, req.Messages[0].Content, 6, "oldest five dropped")
}

func TestChatRequest_Normalize_TruncatesContent(t *testing.T) {
	req := ChatRequest{Messages: []chat.Message{
		{Role: chat.RoleUser, Content: strings.Repeat("ă", MaxMessageContentBytes)},
	}}

	req.Normalize()

	content := req.Messages[0].Content
	assert.LessOrEqual(t, len(content), MaxMessageContentBytes)
	assert.True(t, utf8.ValidString(content))
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateBytes("abc", 10))
	assert.Equal(t, "ab", TruncateBytes("abc", 2))
	// "📋" is four bytes; cutting inside it drops the whole rune.
	assert.Equal(t, "a", TruncateBytes("a📋", 3))
}

// =============================================================================
// ReportRequest Tests
// =============================================================================

func TestReportRequest_Validate(t *testing.T) {
	valid := func() ReportRequest {
		return ReportRequest{
			Locale:                "ro",
			Messages:              []chat.Message{{Role: chat.RoleUser, Content: "Web App"}},
			FinalAssistantMessage: "📋 Project Summary",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *ReportRequest)
		wantErr bool
	}{
		{"valid", func(r *ReportRequest) {}, false},
		{"with email", func(r *ReportRequest) { r.UserEmail = "ana@example.com" }, false},
		{"bad email", func(r *ReportRequest) { r.UserEmail = "not-an-email" }, true},
		{"no messages", func(r *ReportRequest) { r.Messages = nil }, true},
		{"bad role", func(r *ReportRequest) { r.Messages[0].Role = "robot" }, true},
		{"session id with spaces ok", func(r *ReportRequest) { r.SessionID = "abc 123" }, false},
		{"session id non ascii", func(r *ReportRequest) { r.SessionID = "sesiune-ț" }, true},
		{"summary too large", func(r *ReportRequest) { r.FinalAssistantMessage = strings.Repeat("x", 70000) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
