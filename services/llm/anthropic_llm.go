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
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var anthropicTracer = otel.Tracer("nova.llm.anthropic")

// AnthropicClient streams completions from the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a client. baseURL is optional and only used to
// point at a proxy or a test server.
func NewAnthropicClient(apiKey, model, baseURL string, opts ...option.RequestOption) *AnthropicClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &AnthropicClient{
		client: anthropic.NewClient(reqOpts...),
		model:  orDefault(model, DefaultAnthropicModel),
	}
}

// Name implements Client.
func (a *AnthropicClient) Name() string {
	return "anthropic/" + a.model
}

// Stream implements Client.
func (a *AnthropicClient) Stream(ctx context.Context, req Request, onDelta StreamCallback) error {
	ctx, span := anthropicTracer.Start(ctx, "AnthropicClient.Stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", a.model),
		attribute.Int("llm.messages", len(req.Messages)),
	)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	deltas := 0
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if text, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
				deltas++
				if err := onDelta(text.Text); err != nil {
					span.RecordError(err)
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "anthropic stream failed")
		slog.Error("Anthropic stream failed", "model", a.model, "error", err)
		return fmt.Errorf("anthropic stream: %w", err)
	}

	span.SetAttributes(attribute.Int("llm.deltas", deltas))
	return nil
}

// openingUserTurn stands in for the visitor when the history opens with the
// assistant greeting. The Messages API requires a user turn first.
const openingUserTurn = "Hello"

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs)+1)
	if len(msgs) == 0 || msgs[0].Role == RoleAssistant {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(openingUserTurn)))
	}
	for _, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

// DefaultMaxTokens is used when Request.MaxTokens is zero.
const DefaultMaxTokens = 1024

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}

var _ Client = (*AnthropicClient)(nil)
