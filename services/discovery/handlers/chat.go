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
	"net/http"
	"time"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/discovery/redact"
	"github.com/AleutianAI/nova-discovery/services/discovery/signals"
	"github.com/AleutianAI/nova-discovery/services/discovery/transport"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var chatTracer = otel.Tracer("nova.discovery.handlers")

// ChatDeps are the collaborators of the chat endpoints.
type ChatDeps struct {
	Driver   conversation.Driver
	Detector *signals.Detector
	Catalog  *i18n.Catalog

	// Metrics may be nil.
	Metrics *observability.Metrics

	// Strict turns a driver that is not Ready into a 503 instead of an
	// in-stream apology.
	Strict bool

	// Redactor masks secrets in visitor messages. Nil forwards them as is.
	Redactor *redact.Engine
}

// HandleChat serves POST /api/chat.
//
// # Description
//
// Reads {messages, locale} and answers with an NDJSON stream of
// StreamChunks ending in exactly one done or error chunk. The request is
// never rejected for its shape: an unparseable body is an empty history
// in the default locale, and Normalize drops or truncates what is out of
// bounds.
//
// # Outputs
//
//   - 200 with the chunk stream, including when the turn fails.
//   - 503 {"error":"Service temporarily unavailable"} only in strict mode
//     when the driver is not ready.
func HandleChat(deps ChatDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()
		logger := logging.FromContext(ctx)

		req := parseChatRequest(c)
		span.SetAttributes(
			attribute.Int("chat.messages", len(req.Messages)),
			attribute.String("chat.driver", deps.Driver.Name()),
		)

		if deps.Strict && !deps.Driver.Ready() {
			span.SetStatus(codes.Error, "driver not ready")
			logger.Error("Chat driver is not ready; rejecting in strict mode", "driver", deps.Driver.Name())
			deps.Metrics.RecordError(observability.EndpointChat, observability.ErrorCodeUnavailable)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgServiceUnavailable})
			return
		}

		transport.SetStreamHeaders(c.Writer)
		c.Status(http.StatusOK)

		res := runTurn(ctx, deps, observability.EndpointChat, transport.NewNDJSONWriter(c.Writer), req)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, string(res.Outcome))
		}
	}
}

// parseChatRequest decodes the body leniently. Any decode failure yields
// an empty request.
func parseChatRequest(c *gin.Context) datatypes.ChatRequest {
	var req datatypes.ChatRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.FromContext(c.Request.Context()).Warn("Unparseable chat request; using defaults", "error", err)
		req = datatypes.ChatRequest{}
	}
	req.Normalize()
	return req
}

// runTurn asks the driver for the next turn and relays it to w. It is
// shared by the NDJSON and WebSocket endpoints so both emit the same
// chunk sequence.
func runTurn(ctx context.Context, deps ChatDeps, endpoint observability.Endpoint, w transport.ChunkWriter, req datatypes.ChatRequest) transport.Result {
	logger := logging.FromContext(ctx)
	locale := deps.Catalog.Match(req.Locale)
	start := time.Now()

	deps.Metrics.StreamStarted(endpoint)
	defer deps.Metrics.StreamEnded(endpoint)

	history := req.Messages
	if deps.Redactor != nil {
		var n int
		if history, n = deps.Redactor.Messages(history); n > 0 {
			logger.Info("Redacted sensitive content from visitor messages", "count", n)
		}
	}

	resp := deps.Driver.NextTurn(ctx, conversation.Turn{History: history, Locale: locale})

	first := true
	res := transport.Relay(ctx, w, resp, transport.Options{
		Decorate: func(done *chat.StreamChunk) {
			if deps.Detector != nil && done.FinalMessage != nil {
				done.Signals = deps.Detector.Signals(*done.FinalMessage, resp.Options, locale)
			}
		},
		OnFragment: func(string) {
			deps.Metrics.RecordFragment(endpoint)
			if first {
				first = false
				deps.Metrics.RecordTimeToFirstFragment(endpoint, time.Since(start).Seconds())
			}
		},
	})

	elapsed := time.Since(start)
	deps.Metrics.RecordTurn(endpoint, deps.Driver.Name(), string(res.Outcome))
	deps.Metrics.RecordStreamDuration(endpoint, string(res.Outcome), elapsed.Seconds())

	if res.Outcome != transport.OutcomeCompleted {
		code := errorCodeFor(res, resp)
		deps.Metrics.RecordError(endpoint, code)
		logger.Warn("Chat turn did not complete",
			"outcome", res.Outcome,
			"error_code", code,
			"error", res.Err,
			"driver", deps.Driver.Name(),
			"locale", locale,
			"fragments", res.Fragments)
		return res
	}

	logger.Info("Chat turn completed",
		"driver", deps.Driver.Name(),
		"locale", locale,
		"messages", len(req.Messages),
		"fragments", res.Fragments,
		"stage", resp.Stage,
		"duration_ms", elapsed.Milliseconds())
	return res
}
