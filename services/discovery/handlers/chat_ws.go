// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/discovery/transport"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// upgrader keeps gorilla's same-origin check (nil CheckOrigin).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 16 * 1024,
}

// wsPendingRequests is how many requests a client may send ahead of the
// turn in flight before the reader stops reading.
const wsPendingRequests = 16

// HandleChatWebSocket serves GET /api/chat/ws.
//
// # Description
//
// Each text message from the client is a chat request body; each reply is
// the same chunk sequence POST /api/chat would stream, one chunk per
// WebSocket message. Turns on one connection are handled in order, which
// keeps at most one assistant message in flight per connection.
//
// A separate goroutine owns the read side. When the client goes away it
// cancels the connection context, which stops an in-flight completion.
//
// # Limitations
//
//   - A turn cannot be cancelled except by closing the connection.
//   - A client more than wsPendingRequests requests ahead stalls the
//     reader, so its disconnect is noticed at the next write instead.
func HandleChatWebSocket(deps ChatDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := logging.FromContext(c.Request.Context())

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("Failed to upgrade the websocket", "error", err)
			return
		}
		conn.SetReadLimit(MaxRequestBodyBytes)

		connID := uuid.NewString()
		logger = logger.With("connection_id", connID)
		ctx, cancel := context.WithCancel(logging.WithLogger(c.Request.Context(), logger))
		logger.Info("Websocket client connected")

		requests := make(chan []byte, wsPendingRequests)
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			readRequests(ctx, cancel, conn, requests)
		}()
		defer func() {
			cancel()
			conn.Close()
			<-readerDone
		}()

		writer := transport.NewWebSocketWriter(conn)
		for {
			var payload []byte
			select {
			case <-ctx.Done():
				return
			case payload = <-requests:
			}

			var req datatypes.ChatRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				logger.Warn("Unparseable websocket chat request; using defaults", "error", err)
				req = datatypes.ChatRequest{}
			}
			req.Normalize()

			if deps.Strict && !deps.Driver.Ready() {
				deps.Metrics.RecordError(observability.EndpointChatWS, observability.ErrorCodeUnavailable)
				if err := writer.WriteChunk(chat.ErrorChunk(msgServiceUnavailable)); err != nil {
					return
				}
				continue
			}

			res := runTurn(ctx, deps, observability.EndpointChatWS, writer, req)
			if errors.Is(res.Err, transport.ErrClientGone) || ctx.Err() != nil {
				return
			}
		}
	}
}

// readRequests forwards text frames to requests until the connection fails,
// then cancels ctx.
func readRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- []byte) {
	defer cancel()
	logger := logging.FromContext(ctx)
	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				logger.Warn("Websocket closed unexpectedly", "error", err)
			default:
				logger.Info("Websocket client disconnected")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case requests <- payload:
		case <-ctx.Done():
			return
		}
	}
}
