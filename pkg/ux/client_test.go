// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package ux

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ChatStreamsReply(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, sampleStream)
	}))
	defer srv.Close()
	client := NewClient(srv.URL+"/", nil)

	var streamed string
	res, err := client.Chat(context.Background(), []chat.Message{chat.NewUserMessage("webapp")}, "ro", func(s string) {
		streamed += s
	})

	require.NoError(t, err)
	assert.Equal(t, "Great choice! Which industry?", streamed)
	assert.True(t, res.Terminated)
	assert.Equal(t, "ro", got["locale"])
	assert.Len(t, got["messages"], 1)
}

func TestClient_ChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"Service temporarily unavailable"}`)
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, nil).Chat(context.Background(), nil, "en", nil)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Report(t *testing.T) {
	var payload ReportPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/discovery/report", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = io.WriteString(w, `{"ok":true,"proposalGenerated":true}`)
	}))
	defer srv.Close()

	reply, err := NewClient(srv.URL, nil).Report(context.Background(), ReportPayload{
		Locale:                "en",
		Messages:              []chat.Message{chat.NewUserMessage("webapp")},
		FinalAssistantMessage: "📋 Project Summary",
		SessionID:             "s-1",
	}, true)

	require.NoError(t, err)
	assert.True(t, reply.OK)
	require.NotNil(t, reply.ProposalGenerated)
	assert.True(t, *reply.ProposalGenerated)
	assert.Equal(t, "s-1", payload.SessionID)
}
