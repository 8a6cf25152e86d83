// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/ndjson"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
)

// =============================================================================
// Test Helpers
// =============================================================================

type recorder struct {
	mu      sync.Mutex
	chunks  []chat.StreamChunk
	failAt  int
	written int
}

func (r *recorder) WriteChunk(chunk chat.StreamChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written++
	if r.failAt > 0 && r.written >= r.failAt {
		return errors.New("broken pipe")
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recorder) terminals() int {
	n := 0
	for _, c := range r.chunks {
		if c.IsTerminal() {
			n++
		}
	}
	return n
}

func (r *recorder) text() string {
	var sb strings.Builder
	for _, c := range r.chunks {
		if c.Type == chat.ChunkText {
			sb.WriteString(c.Content)
		}
	}
	return sb.String()
}

func streamOf(deltas []string, err error) conversation.TokenStream {
	return func(ctx context.Context, emit func(string) error) error {
		for _, d := range deltas {
			if e := emit(d); e != nil {
				return e
			}
		}
		return err
	}
}

// =============================================================================
// Chunker Tests
// =============================================================================

func TestChunk_ConcatenationEqualsInput(t *testing.T) {
	inputs := []string{
		"",
		"word",
		"Hello there, what would you like to build?",
		"  leading and  double  spaces ",
		"Ce tip de produs vrei să construiești? Alege o opțiune de mai jos.",
		"**📋 Project Summary**\n\n**Type:** Web App\n**Budget:** €10k - €25k",
		strings.Repeat("supercalifragilistic ", 10),
	}
	for _, in := range inputs {
		assert.Equal(t, in, strings.Join(Chunk(in), ""), "%q", in)
	}
}

func TestChunk_FlushesAboveThreshold(t *testing.T) {
	fragments := Chunk("Hello there, what would you like to build?")

	require.Equal(t, []string{"Hello there, what would ", "you like to build?"}, fragments)
	for _, f := range fragments[:len(fragments)-1] {
		assert.Greater(t, utf8.RuneCountInString(f), FlushThreshold)
	}
}

func TestChunk_TrailingSeparatorDoesNotCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"word of exactly threshold length", "aaaaaaaaaaaaaaaaaaaa bbb", []string{"aaaaaaaaaaaaaaaaaaaa bbb"}},
		{"word one past threshold", "aaaaaaaaaaaaaaaaaaaaa bbb", []string{"aaaaaaaaaaaaaaaaaaaaa ", "bbb"}},
		{"words joined to threshold", "aaaaaaaaa bbbbbbbbbb cc", []string{"aaaaaaaaa bbbbbbbbbb cc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.in))
		})
	}
}

func TestRechunker_MatchesChunkForAnySplit(t *testing.T) {
	text := "Salut! Sunt NOVA, consilierul tău de produs. Ce construim împreună?"
	want := Chunk(text)

	for size := 1; size <= len(text); size += 3 {
		var rc Rechunker
		var got []string
		for i := 0; i < len(text); i += size {
			end := i + size
			if end > len(text) {
				end = len(text)
			}
			got = append(got, rc.Push(text[i:end])...)
		}
		if rest := rc.Flush(); rest != "" {
			got = append(got, rest)
		}

		assert.Equal(t, want, got, "split size %d", size)
	}
}

// =============================================================================
// Relay Tests
// =============================================================================

func TestRelay_Immediate(t *testing.T) {
	w := &recorder{}
	text := "Hi, I'm NOVA. What type of product would you like to build?"

	res := Relay(context.Background(), w, conversation.Response{Text: text, Stage: "project_type"}, Options{})

	require.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, w.terminals())
	last := w.chunks[len(w.chunks)-1]
	assert.Equal(t, chat.ChunkDone, last.Type)
	assert.Equal(t, text, last.FinalMessage.Content)
	assert.Equal(t, chat.RoleAssistant, last.FinalMessage.Role)
	assert.True(t, strings.HasPrefix(last.FinalMessage.ID, "assistant-"))
	assert.Equal(t, "project_type", last.Stage)
	assert.Equal(t, text, w.text())
	assert.Equal(t, len(w.chunks)-1, res.Fragments)
}

func TestRelay_StreamIsRechunked(t *testing.T) {
	w := &recorder{}
	deltas := []string{"Gre", "at, ", "a web app. Which indus", "try is it for?"}

	res := Relay(context.Background(), w, conversation.Response{Stream: streamOf(deltas, nil)}, Options{
		Decorate: func(done *chat.StreamChunk) {
			done.Signals = &chat.Signals{QuickReplySet: "industry"}
		},
	})

	require.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, strings.Join(deltas, ""), w.text())
	assert.Equal(t, Chunk(strings.Join(deltas, "")), textContents(w.chunks))
	last := w.chunks[len(w.chunks)-1]
	require.NotNil(t, last.Signals)
	assert.Equal(t, "industry", last.Signals.QuickReplySet)
}

func TestRelay_StreamFailureEndsWithSingleErrorChunk(t *testing.T) {
	w := &recorder{}
	resp := conversation.Response{
		Stream:  streamOf([]string{"Partial answer that is long enough "}, errors.New("upstream reset")),
		Apology: "Sorry, please try again.",
	}

	res := Relay(context.Background(), w, resp, Options{})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)
	assert.Equal(t, 1, w.terminals())
	last := w.chunks[len(w.chunks)-1]
	assert.Equal(t, chat.ChunkError, last.Type)
	assert.Equal(t, "Sorry, please try again.", last.Message)
	assert.NotContains(t, last.Message, "upstream")
}

func TestRelay_FailedResponse(t *testing.T) {
	w := &recorder{}

	res := Relay(context.Background(), w, conversation.Failure("Asistentul nu este disponibil."), Options{})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, w.chunks, 1)
	assert.Equal(t, chat.ErrorChunk("Asistentul nu este disponibil."), w.chunks[0])
}

func TestRelay_EmptyStreamUsesGenericMessage(t *testing.T) {
	w := &recorder{}

	res := Relay(context.Background(), w, conversation.Response{Stream: streamOf(nil, nil)}, Options{})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, w.chunks, 1)
	assert.Equal(t, GenericErrorMessage, w.chunks[0].Message)
}

func TestRelay_StopsWhenClientGone(t *testing.T) {
	w := &recorder{failAt: 2}
	streamed := 0
	stream := func(ctx context.Context, emit func(string) error) error {
		for i := 0; i < 50; i++ {
			streamed++
			if err := emit("word number " + strings.Repeat("x", i) + " "); err != nil {
				return err
			}
		}
		return nil
	}

	res := Relay(context.Background(), w, conversation.Response{Stream: stream}, Options{})

	assert.Equal(t, OutcomeDisconnected, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrClientGone)
	assert.Less(t, streamed, 50)
	assert.Equal(t, 0, w.terminals())
}

func textContents(chunks []chat.StreamChunk) []string {
	var out []string
	for _, c := range chunks {
		if c.Type == chat.ChunkText {
			out = append(out, c.Content)
		}
	}
	return out
}

// =============================================================================
// Writer Tests
// =============================================================================

func TestNDJSONWriter_OneObjectPerLine(t *testing.T) {
	rec := httptest.NewRecorder()
	SetStreamHeaders(rec)
	w := NewNDJSONWriter(rec)

	res := Relay(context.Background(), w, conversation.Immediate("One two three four five six seven"), Options{})
	require.Equal(t, OutcomeCompleted, res.Outcome)

	assert.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.True(t, rec.Flushed)

	dec := ndjson.NewDecoder[chat.StreamChunk](strings.NewReader(rec.Body.String()))
	var got []chat.StreamChunk
	for {
		c, err := dec.Next()
		if err != nil {
			break
		}
		got = append(got, c)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, chat.ChunkDone, got[len(got)-1].Type)
	assert.Equal(t, strings.Count(rec.Body.String(), "\n"), len(got))
}

func TestWebSocketWriter_SendsJSONFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(rw, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		Relay(r.Context(), NewWebSocketWriter(conn), conversation.Immediate("Which industry is it for?"), Options{})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var got []chat.StreamChunk
	for {
		var c chat.StreamChunk
		require.NoError(t, conn.ReadJSON(&c))
		got = append(got, c)
		if c.IsTerminal() {
			break
		}
	}
	assert.Equal(t, chat.ChunkDone, got[len(got)-1].Type)
	assert.Equal(t, "Which industry is it for?", got[len(got)-1].FinalMessage.Content)
}
