// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm adapts hosted completion services to one streaming interface.
//
// Each backend lives in its own file (anthropic_llm.go, openai_llm.go,
// ollama_llm.go) and is selected by New from Config.Backend.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrNotConfigured is returned when the selected backend lacks credentials
// or an endpoint. Callers treat it as a configuration error, not an outage.
var ErrNotConfigured = errors.New("llm: completion service not configured")

// Role of a completion message. System instructions travel in
// Request.System, never as a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn forwarded to the completion service.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// StreamCallback receives text deltas in order. Returning an error aborts
// the stream and that error is returned from Stream.
type StreamCallback func(delta string) error

// Client streams a completion.
//
// # Description
//
// Stream blocks until the completion finishes, the callback fails, or ctx
// is cancelled. Deltas are delivered on the calling goroutine.
type Client interface {
	Stream(ctx context.Context, req Request, onDelta StreamCallback) error

	// Name identifies the backend and model for logs and metrics.
	Name() string
}

// Complete runs Stream and returns the concatenated text.
func Complete(ctx context.Context, c Client, req Request) (string, error) {
	var sb strings.Builder
	err := c.Stream(ctx, req, func(delta string) error {
		sb.WriteString(delta)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// =============================================================================
// Factory
// =============================================================================

// Backend names accepted by New.
const (
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	OllamaBaseURL string
	OllamaModel   string
}

// DefaultAnthropicModel is used when AnthropicModel is empty.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// DefaultOpenAIModel is used when OpenAIModel is empty.
const DefaultOpenAIModel = "gpt-4o-mini"

// DefaultOllamaModel is used when OllamaModel is empty.
const DefaultOllamaModel = "llama3.1"

// New builds the configured backend. It returns ErrNotConfigured (wrapped)
// when required settings are missing.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendAnthropic, "claude":
		key := secretOrValue(cfg.AnthropicAPIKey, "anthropic_api_key")
		if key == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrNotConfigured)
		}
		slog.Info("Using Anthropic completion backend", "model", orDefault(cfg.AnthropicModel, DefaultAnthropicModel))
		return NewAnthropicClient(key, cfg.AnthropicModel, cfg.AnthropicBaseURL), nil
	case BackendOpenAI:
		key := secretOrValue(cfg.OpenAIAPIKey, "openai_api_key")
		if key == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		slog.Info("Using OpenAI completion backend", "model", orDefault(cfg.OpenAIModel, DefaultOpenAIModel))
		return NewOpenAIClient(key, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case BackendOllama:
		if cfg.OllamaBaseURL == "" {
			return nil, fmt.Errorf("ollama: %w", ErrNotConfigured)
		}
		slog.Info("Using Ollama completion backend", "base_url", cfg.OllamaBaseURL)
		return NewOllamaClient(cfg.OllamaBaseURL, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
	}
}

// secretsDir is where container runtimes mount secrets.
var secretsDir = "/run/secrets"

// secretOrValue returns value, or the trimmed contents of the named secret
// file when value is empty.
func secretOrValue(value, secretName string) string {
	if value != "" {
		return value
	}
	data, err := os.ReadFile(secretsDir + "/" + secretName)
	if err != nil {
		return ""
	}
	slog.Info("Read API key from secrets mount", "secret", secretName)
	return strings.TrimSpace(string(data))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
