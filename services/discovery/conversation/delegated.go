// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package conversation

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/llm"
)

var tracer = otel.Tracer("nova.discovery.conversation")

// ModelDriverConfig configures a ModelDriver.
type ModelDriverConfig struct {
	// Client is the completion service. Nil leaves the driver not ready.
	Client llm.Client

	Catalog *i18n.Catalog

	// HistoryLimit caps forwarded messages. Default DefaultHistoryLimit.
	HistoryLimit int

	// MaxTokens caps each completion. Default llm.DefaultMaxTokens.
	MaxTokens int
}

// ModelDriver delegates each turn to a completion service.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no per-session state.
type ModelDriver struct {
	client       llm.Client
	catalog      *i18n.Catalog
	historyLimit int
	maxTokens    int
}

// NewModelDriver builds a ModelDriver from cfg.
func NewModelDriver(cfg ModelDriverConfig) *ModelDriver {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = llm.DefaultMaxTokens
	}
	return &ModelDriver{
		client:       cfg.Client,
		catalog:      cfg.Catalog,
		historyLimit: cfg.HistoryLimit,
		maxTokens:    cfg.MaxTokens,
	}
}

// Name implements Driver.
func (d *ModelDriver) Name() string {
	if d.client == nil {
		return "model"
	}
	return "model:" + d.client.Name()
}

// Ready implements Driver.
func (d *ModelDriver) Ready() bool {
	return d.client != nil
}

// NextTurn implements Driver.
//
// # Description
//
// Builds the completion request from the prepared history and returns a
// streaming Response. No network call happens until Stream is drained.
// Without a client the turn fails with the localized unavailable message.
func (d *ModelDriver) NextTurn(ctx context.Context, turn Turn) Response {
	loc := d.catalog.For(turn.Locale)
	if d.client == nil {
		logging.FromContext(ctx).Warn("Completion service not configured", "locale", loc.Locale())
		return Failure(loc.T("messages.unavailable"))
	}

	req := d.buildRequest(loc, turn.History)
	client := d.client
	return Response{
		Apology: loc.T("messages.apology"),
		Stream: func(ctx context.Context, emit func(string) error) error {
			ctx, span := tracer.Start(ctx, "ModelDriver.Stream")
			defer span.End()
			span.SetAttributes(
				attribute.String("llm.client", client.Name()),
				attribute.String("locale", loc.Locale()),
				attribute.Int("history.forwarded", len(req.Messages)),
			)

			err := client.Stream(ctx, req, llm.StreamCallback(emit))
			if err != nil {
				span.RecordError(err)
				logging.FromContext(ctx).Error("Completion stream failed",
					slog.String("client", client.Name()),
					slog.String("error", err.Error()))
			}
			return err
		},
	}
}

// buildRequest returns the request forwarded for history.
func (d *ModelDriver) buildRequest(loc i18n.Localizer, history []chat.Message) llm.Request {
	prepared := PrepareHistory(history, d.historyLimit)
	msgs := make([]llm.Message, 0, len(prepared))
	for _, m := range prepared {
		role := llm.RoleUser
		if m.Role == chat.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	return llm.Request{
		System:    SystemPrompt(loc.Language()),
		Messages:  msgs,
		MaxTokens: d.maxTokens,
	}
}

var _ Driver = (*ModelDriver)(nil)
