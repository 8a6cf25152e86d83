// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report turns a finished discovery conversation into a technical
// proposal and emails it, with the transcript, to the business inbox.
//
// # Description
//
// A report is produced at most once per session. The Generator does the
// work synchronously; the Dispatcher runs it on a bounded background pool
// so the HTTP request that triggered it can return immediately.
//
// # Error Contract
//
// Proposal and mail failures are logged and recorded in the Outcome, never
// returned. Dispatch returns an error only for a duplicate session
// (ErrAlreadySent) or when delivery is not configured (mail.ErrNotConfigured).
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
	"github.com/AleutianAI/nova-discovery/services/llm"
	"github.com/AleutianAI/nova-discovery/services/mail"
)

// ErrAlreadySent is returned for a session that already produced a report.
var ErrAlreadySent = errors.New("report: already sent for this session")

var tracer = otel.Tracer("nova.discovery.report")

// DefaultProposalMaxTokens caps the proposal completion.
const DefaultProposalMaxTokens = 4096

// DefaultProposalTimeout bounds the proposal completion.
const DefaultProposalTimeout = 2 * time.Minute

// Report is the input of one dispatch.
type Report struct {
	SessionID             string
	Locale                string
	Messages              []chat.Message
	FinalAssistantMessage string
	UserEmail             string
}

// Outcome describes what a dispatch did.
type Outcome struct {
	Duplicate         bool
	ProposalGenerated bool
	Delivered         bool
	MessageID         string
}

// Config configures a Generator.
type Config struct {
	// Client writes the proposal. Nil skips the proposal.
	Client llm.Client

	Mailer    mail.Mailer
	Recipient string
	Catalog   *i18n.Catalog

	// Ledger defaults to NewLedger(0).
	Ledger *Ledger

	ProposalMaxTokens int
	ProposalTimeout   time.Duration

	// Meter records report outcomes. Defaults to the global provider.
	Meter metric.Meter

	// Now defaults to time.Now.
	Now func() time.Time
}

// Generator produces and delivers reports.
//
// # Thread Safety
//
// Safe for concurrent use. Concurrent dispatches for the same session
// collapse into one.
type Generator struct {
	client    llm.Client
	mailer    mail.Mailer
	recipient string
	catalog   *i18n.Catalog
	ledger    *Ledger
	group     singleflight.Group

	maxTokens int
	timeout   time.Duration
	now       func() time.Time

	outcomes metric.Int64Counter
}

// NewGenerator builds a Generator from cfg.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.Mailer == nil {
		cfg.Mailer = mail.Disabled{}
	}
	if cfg.Ledger == nil {
		cfg.Ledger = NewLedger(0)
	}
	if cfg.ProposalMaxTokens <= 0 {
		cfg.ProposalMaxTokens = DefaultProposalMaxTokens
	}
	if cfg.ProposalTimeout <= 0 {
		cfg.ProposalTimeout = DefaultProposalTimeout
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter("nova.discovery.report")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	outcomes, err := cfg.Meter.Int64Counter("nova.discovery.reports",
		metric.WithDescription("Discovery report dispatches by outcome"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("report: create counter: %w", err)
	}

	return &Generator{
		client:    cfg.Client,
		mailer:    cfg.Mailer,
		recipient: cfg.Recipient,
		catalog:   cfg.Catalog,
		ledger:    cfg.Ledger,
		maxTokens: cfg.ProposalMaxTokens,
		timeout:   cfg.ProposalTimeout,
		now:       cfg.Now,
		outcomes:  outcomes,
	}, nil
}

// Configured reports whether reports can be delivered.
func (g *Generator) Configured() bool {
	return g.mailer.Configured() && g.recipient != ""
}

// Dispatch produces and sends the report for r once per session.
//
// # Description
//
//  1. Claims the session in the ledger; a second claim is a duplicate.
//  2. Asks the completion service for a proposal. On failure the email
//     carries ProposalFailedNote instead.
//  3. Emails summary, proposal and transcript to the recipient. A mail
//     failure is logged and leaves Delivered false.
//
// # Outputs
//
//   - Outcome: What happened.
//   - error: ErrAlreadySent, or mail.ErrNotConfigured (wrapped) when
//     delivery is not configured. Nothing else.
func (g *Generator) Dispatch(ctx context.Context, r Report) (Outcome, error) {
	if !g.Configured() {
		return Outcome{}, fmt.Errorf("report: %w", mail.ErrNotConfigured)
	}

	key := SessionKey(r.SessionID, r.Messages)
	v, _, shared := g.group.Do(key, func() (any, error) {
		if !g.ledger.MarkSent(key) {
			return Outcome{Duplicate: true}, nil
		}
		return g.run(ctx, r), nil
	})
	out := v.(Outcome)
	if shared {
		logging.FromContext(ctx).Debug("Report dispatch shared with a concurrent request", "key", key)
	}
	if out.Duplicate {
		g.record(ctx, "duplicate")
		return out, ErrAlreadySent
	}
	return out, nil
}

func (g *Generator) run(ctx context.Context, r Report) Outcome {
	ctx, span := tracer.Start(ctx, "Generator.Dispatch")
	defer span.End()
	logger := logging.FromContext(ctx)

	loc := g.catalog.For(r.Locale)
	generatedAt := g.now()
	span.SetAttributes(
		attribute.String("locale", loc.Locale()),
		attribute.Int("messages", len(r.Messages)),
	)

	var out Outcome
	proposal, err := g.proposal(ctx, loc, r)
	if err != nil {
		span.RecordError(err)
		logger.Warn("Proposal generation failed; sending transcript only", "error", err)
		g.record(ctx, "proposal_failed")
	} else {
		out.ProposalGenerated = true
	}

	body := emailBody{
		Locale:      loc.Locale(),
		GeneratedAt: generatedAt,
		UserEmail:   r.UserEmail,
		Summary:     r.FinalAssistantMessage,
		Proposal:    proposal,
		Messages:    r.Messages,
	}
	id, err := g.mailer.Send(ctx, mail.Message{
		To:      []string{g.recipient},
		ReplyTo: r.UserEmail,
		Subject: Subject(loc.Locale(), generatedAt),
		Text:    body.String(),
	})
	if err != nil {
		span.RecordError(err)
		logger.Error("Failed to send discovery report", "error", err)
		g.record(ctx, "mail_failed")
		return out
	}

	out.Delivered = true
	out.MessageID = id
	logger.Info("Discovery report sent",
		"message_id", id,
		"proposal_generated", out.ProposalGenerated,
		"locale", loc.Locale())
	g.record(ctx, "sent")
	return out
}

// proposal runs the second completion call.
func (g *Generator) proposal(ctx context.Context, loc i18n.Localizer, r Report) (string, error) {
	if g.client == nil {
		return "", llm.ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var input strings.Builder
	input.WriteString("Conversation transcript:\n\n")
	input.WriteString(FormatTranscript(r.Messages, g.now()))
	input.WriteString("\nProject summary from the end of the conversation:\n\n")
	input.WriteString(orPlaceholder(r.FinalAssistantMessage, "(none)"))

	text, err := llm.Complete(ctx, g.client, llm.Request{
		System:    conversation.ProposalPrompt(loc.Language()),
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: input.String()}},
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("report: empty proposal")
	}
	return text, nil
}

func (g *Generator) record(ctx context.Context, outcome string) {
	g.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
