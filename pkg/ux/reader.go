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
	"errors"
	"io"
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/ndjson"
)

// ChunkCallback receives each chunk in order. Returning an error stops
// reading.
type ChunkCallback func(chunk chat.StreamChunk) error

// StreamResult aggregates one chat response.
type StreamResult struct {
	// Final is the done chunk's message, or an assistant message built
	// from the accumulated text when the stream ended without one.
	Final chat.Message

	// Text is the concatenation of all text chunks.
	Text string

	Signals *chat.Signals
	Stage   string

	// Error is the message of an error chunk. It is content for the user,
	// not a Go error.
	Error string

	// Terminated reports whether a terminal chunk was received.
	Terminated bool

	Chunks int
}

// Failed reports whether the stream ended with an error chunk.
func (r *StreamResult) Failed() bool {
	return r.Error != ""
}

// ReadChunks decodes an NDJSON chunk stream, invoking fn per chunk and
// stopping after the first terminal chunk.
//
// # Description
//
// Byte boundaries of r are arbitrary: a JSON line or a UTF-8 sequence may
// be split across reads. Blank lines are skipped and a final line without
// a newline is still decoded.
//
// # Outputs
//
//   - error: nil at EOF or after a terminal chunk; otherwise a decode,
//     read, callback or context error.
func ReadChunks(ctx context.Context, r io.Reader, fn ChunkCallback) error {
	err := ndjson.Each(ctx, r, func(chunk chat.StreamChunk) error {
		if err := fn(chunk); err != nil {
			return err
		}
		if chunk.IsTerminal() {
			return ndjson.ErrStop
		}
		return nil
	})
	if errors.Is(err, ndjson.ErrStop) {
		return nil
	}
	return err
}

// ReadAll reads the whole stream and aggregates it.
//
// When the stream ends without a terminal chunk, Final falls back to the
// accumulated text so the visitor keeps what already arrived. The
// aggregated result is returned even when err is non-nil.
func ReadAll(ctx context.Context, r io.Reader, onText func(string)) (*StreamResult, error) {
	res := &StreamResult{}
	var text strings.Builder

	err := ReadChunks(ctx, r, func(chunk chat.StreamChunk) error {
		res.Chunks++
		switch chunk.Type {
		case chat.ChunkText:
			text.WriteString(chunk.Content)
			if onText != nil {
				onText(chunk.Content)
			}
		case chat.ChunkDone:
			res.Terminated = true
			if chunk.FinalMessage != nil {
				res.Final = *chunk.FinalMessage
			}
			res.Signals = chunk.Signals
			res.Stage = chunk.Stage
		case chat.ChunkError:
			res.Terminated = true
			res.Error = chunk.Message
		}
		return nil
	})

	res.Text = text.String()
	if res.Final.Content == "" && !res.Failed() && strings.TrimSpace(res.Text) != "" {
		res.Final = chat.NewAssistantMessage(res.Text)
	}
	return res, err
}
