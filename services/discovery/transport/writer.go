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
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/ndjson"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ChunkWriter delivers StreamChunks to one client.
//
// # Description
//
// Each call writes exactly one chunk and makes it visible to the client
// before returning (flushed line or WebSocket frame).
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChunkWriter interface {
	WriteChunk(chunk chat.StreamChunk) error
}

// =============================================================================
// NDJSON
// =============================================================================

// ContentType is the header value of the NDJSON chat stream. It stays
// application/json for compatibility with the browser client.
const ContentType = "application/json; charset=utf-8"

// SetStreamHeaders prepares w for a chunk stream. Call before the first write.
func SetStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("X-Accel-Buffering", "no")
}

type ndjsonWriter struct {
	enc *ndjson.Encoder
}

// NewNDJSONWriter writes one JSON object per line to w, flushing each line
// when w supports it.
func NewNDJSONWriter(w http.ResponseWriter) ChunkWriter {
	return &ndjsonWriter{enc: ndjson.NewEncoder(w)}
}

func (w *ndjsonWriter) WriteChunk(chunk chat.StreamChunk) error {
	return w.enc.Encode(chunk)
}

// =============================================================================
// WebSocket
// =============================================================================

// DefaultWriteTimeout bounds a single WebSocket frame write.
const DefaultWriteTimeout = 10 * time.Second

type wsWriter struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

// NewWebSocketWriter sends each chunk as one JSON text message on conn.
func NewWebSocketWriter(conn *websocket.Conn) ChunkWriter {
	return &wsWriter{conn: conn, timeout: DefaultWriteTimeout}
}

func (w *wsWriter) WriteChunk(chunk chat.StreamChunk) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return err
	}
	return w.conn.WriteJSON(chunk)
}

var (
	_ ChunkWriter = (*ndjsonWriter)(nil)
	_ ChunkWriter = (*wsWriter)(nil)
)
