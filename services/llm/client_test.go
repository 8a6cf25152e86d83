// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tmc/langchaingo/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Factory Tests
// =============================================================================

func TestNew_NotConfigured(t *testing.T) {
	secretsDir = t.TempDir()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"anthropic default", Config{}},
		{"openai", Config{Backend: BackendOpenAI}},
		{"ollama", Config{Backend: BackendOllama}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.cfg)
			assert.Nil(t, client)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "gemini"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotConfigured))
}

func TestNew_ReadsKeyFromSecretsMount(t *testing.T) {
	secretsDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "openai_api_key"), []byte("sk-test\n"), 0o600))

	client, err := New(Config{Backend: BackendOpenAI})

	require.NoError(t, err)
	assert.Equal(t, "openai/"+DefaultOpenAIModel, client.Name())
}

// =============================================================================
// OpenAI Tests
// =============================================================================

func newOpenAIStreamServer(t *testing.T, deltas []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "gpt-test",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": d}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestOpenAIClient_StreamDeliversDeltas(t *testing.T) {
	var captured map[string]any
	srv := newOpenAIStreamServer(t, []string{"Hello", " there", "!"}, &captured)
	defer srv.Close()
	client := NewOpenAIClient("sk-test", "gpt-test", srv.URL+"/v1")

	text, err := Complete(context.Background(), client, Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there!", text)
	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, true, captured["stream"])
}

func TestOpenAIClient_CallbackErrorStopsStream(t *testing.T) {
	srv := newOpenAIStreamServer(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()
	client := NewOpenAIClient("sk-test", "gpt-test", srv.URL+"/v1")
	stop := errors.New("stop")

	calls := 0
	err := client.Stream(context.Background(), Request{}, func(string) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestOpenAIClient_HTTPErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()
	client := NewOpenAIClient("sk-bad", "gpt-test", srv.URL+"/v1")

	err := client.Stream(context.Background(), Request{}, func(string) error { return nil })

	assert.Error(t, err)
}

// =============================================================================
// Anthropic Tests
// =============================================================================

const anthropicSSE = `event: message_start
data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-test","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Salut! "}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Ce construim?"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}

event: message_stop
data: {"type":"message_stop"}

`

func TestAnthropicClient_StreamDeliversTextDeltas(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, anthropicSSE)
	}))
	defer srv.Close()
	client := NewAnthropicClient("sk-ant-test", "claude-test", srv.URL, option.WithMaxRetries(0))

	text, err := Complete(context.Background(), client, Request{
		System:    "You are NOVA.",
		Messages:  []Message{{Role: RoleUser, Content: "Salut"}},
		MaxTokens: 256,
	})

	require.NoError(t, err)
	assert.Equal(t, "Salut! Ce construim?", text)
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 256, body["max_tokens"])
	assert.Equal(t, true, body["stream"])
}

func TestAnthropicClient_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()
	client := NewAnthropicClient("sk-ant-test", "", srv.URL, option.WithMaxRetries(0))

	err := client.Stream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}},
		func(string) error { return nil })

	assert.Error(t, err)
	assert.Equal(t, "anthropic/"+DefaultAnthropicModel, client.Name())
}

// =============================================================================
// Message Conversion Tests
// =============================================================================

func TestToLangchainMessages(t *testing.T) {
	out := toLangchainMessages("sys", []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, out[2].Role)
}

func TestToAnthropicMessages_PreservesOrder(t *testing.T) {
	out := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	})

	require.Len(t, out, 2)
	assert.EqualValues(t, "user", out[0].Role)
	assert.EqualValues(t, "assistant", out[1].Role)
}

func TestToAnthropicMessages_OpensWithUserTurn(t *testing.T) {
	tests := []struct {
		name string
		in   []Message
		want int
	}{
		{"empty history", nil, 1},
		{"greeting first", []Message{{Role: RoleAssistant, Content: "Hi"}, {Role: RoleUser, Content: "web app"}}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := toAnthropicMessages(tt.in)

			require.Len(t, out, tt.want)
			assert.EqualValues(t, "user", out[0].Role)
		})
	}
}
