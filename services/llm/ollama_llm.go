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
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ollamaTracer = otel.Tracer("nova.llm.ollama")

// OllamaClient streams completions from a local Ollama server. It is meant
// for development without hosted credentials.
type OllamaClient struct {
	llm   llms.Model
	model string
}

// NewOllamaClient connects to the Ollama server at baseURL.
func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	model = orDefault(model, DefaultOllamaModel)
	llm, err := ollama.New(
		ollama.WithServerURL(strings.TrimSuffix(baseURL, "/")),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	return &OllamaClient{llm: llm, model: model}, nil
}

// Name implements Client.
func (o *OllamaClient) Name() string {
	return "ollama/" + o.model
}

// Stream implements Client.
func (o *OllamaClient) Stream(ctx context.Context, req Request, onDelta StreamCallback) error {
	ctx, span := ollamaTracer.Start(ctx, "OllamaClient.Stream")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", o.model))

	_, err := o.llm.GenerateContent(ctx, toLangchainMessages(req.System, req.Messages),
		llms.WithMaxTokens(maxTokensOrDefault(req.MaxTokens)),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onDelta(string(chunk))
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ollama generation failed")
		return fmt.Errorf("ollama stream: %w", err)
	}
	return nil
}

func toLangchainMessages(system string, msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs)+1)
	if system != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, m := range msgs {
		kind := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			kind = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(kind, m.Content))
	}
	return out
}

var _ Client = (*OllamaClient)(nil)
