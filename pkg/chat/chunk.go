// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chat

// =============================================================================
// Stream Chunks
// =============================================================================

// ChunkType discriminates the StreamChunk union.
type ChunkType string

const (
	// ChunkText carries a fragment of the assistant message.
	ChunkText ChunkType = "text"

	// ChunkDone is the terminal chunk of a successful turn.
	ChunkDone ChunkType = "done"

	// ChunkError is the terminal chunk of a failed turn.
	ChunkError ChunkType = "error"
)

// StreamChunk is one line of a chat response stream.
//
// # Description
//
// A response is any number of ChunkText chunks followed by exactly one
// terminal chunk (ChunkDone or ChunkError). Only the fields relevant to
// Type are populated:
//
//   - text:  Content
//   - done:  FinalMessage, optionally Signals and Stage
//   - error: Message
//
// # Examples
//
//	{"type":"text","content":"Great choice! "}
//	{"type":"done","finalMessage":{"id":"assistant-...","role":"assistant",...}}
//	{"type":"error","message":"An error occurred while processing your request."}
type StreamChunk struct {
	Type         ChunkType `json:"type"`
	Content      string    `json:"content,omitempty"`
	FinalMessage *Message  `json:"finalMessage,omitempty"`
	Message      string    `json:"message,omitempty"`
	Signals      *Signals  `json:"signals,omitempty"`
	Stage        string    `json:"stage,omitempty"`
}

// TextChunk builds a text chunk.
func TextChunk(content string) StreamChunk {
	return StreamChunk{Type: ChunkText, Content: content}
}

// DoneChunk builds a done chunk carrying the assembled message.
func DoneChunk(final Message) StreamChunk {
	return StreamChunk{Type: ChunkDone, FinalMessage: &final}
}

// ErrorChunk builds an error chunk.
func ErrorChunk(message string) StreamChunk {
	return StreamChunk{Type: ChunkError, Message: message}
}

// IsTerminal reports whether the chunk ends a stream.
func (c StreamChunk) IsTerminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

// =============================================================================
// UI Signals
// =============================================================================

// QuickReply is a canned answer the client may render as a button.
// ID is stable across locales; Label is localized.
type QuickReply struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Signals are UI-level hints derived from a completed assistant message.
type Signals struct {
	SummaryReady  bool         `json:"summaryReady"`
	QuickReplySet string       `json:"quickReplySet,omitempty"`
	QuickReplies  []QuickReply `json:"quickReplies,omitempty"`
}
