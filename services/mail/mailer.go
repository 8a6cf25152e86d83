// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mail sends plain-text notification emails.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/resend/resend-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNotConfigured is returned when no API key or recipient is set.
var ErrNotConfigured = errors.New("mail: delivery not configured")

// DefaultFrom is the sender used when Config.From is empty.
const DefaultFrom = "NOVA Reports <no-reply@noreply.nova>"

// Message is one outgoing email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) (id string, err error)

	// Configured reports whether Send can succeed at all.
	Configured() bool
}

// Config selects the delivery account.
type Config struct {
	APIKey string
	From   string

	// Recipient receives discovery reports.
	Recipient string
}

// Ready reports whether reports can be delivered.
func (c Config) Ready() bool {
	return c.APIKey != "" && c.Recipient != ""
}

// New returns a Resend mailer, or a Disabled mailer when cfg has no key.
func New(cfg Config) Mailer {
	if cfg.APIKey == "" {
		return Disabled{}
	}
	return NewResendMailer(cfg.APIKey, cfg.From)
}

// =============================================================================
// Resend
// =============================================================================

var tracer = otel.Tracer("nova.mail")

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

// NewResendMailer builds a mailer for apiKey. from defaults to DefaultFrom.
func NewResendMailer(apiKey, from string) *ResendMailer {
	if from == "" {
		from = DefaultFrom
	}
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

// Configured implements Mailer.
func (m *ResendMailer) Configured() bool { return true }

// Send implements Mailer.
func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	ctx, span := tracer.Start(ctx, "ResendMailer.Send")
	defer span.End()
	span.SetAttributes(attribute.Int("mail.recipients", len(msg.To)))

	if err := validate(msg); err != nil {
		return "", err
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      msg.To,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    msg.Text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return "", fmt.Errorf("mail: resend: %w", err)
	}
	return sent.Id, nil
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail: no recipient: %w", ErrNotConfigured)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("mail: empty subject")
	}
	return nil
}

// =============================================================================
// Disabled and Log
// =============================================================================

// Disabled refuses every message with ErrNotConfigured.
type Disabled struct{}

// Configured implements Mailer.
func (Disabled) Configured() bool { return false }

// Send implements Mailer.
func (Disabled) Send(context.Context, Message) (string, error) {
	return "", ErrNotConfigured
}

// LogMailer records messages and writes them to the log instead of sending.
// Used by the CLI dry-run mode and in tests.
type LogMailer struct {
	Logger *slog.Logger

	mu   sync.Mutex
	sent []Message
	err  error
}

// NewLogMailer returns a LogMailer; err, when non-nil, is returned by every
// Send after the message is recorded.
func NewLogMailer(logger *slog.Logger, err error) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{Logger: logger, err: err}
}

// Configured implements Mailer.
func (m *LogMailer) Configured() bool { return true }

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) (string, error) {
	if err := validate(msg); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	n := len(m.sent)
	m.mu.Unlock()

	m.Logger.Info("Email captured", "to", strings.Join(msg.To, ","), "subject", msg.Subject, "bytes", len(msg.Text))
	if m.err != nil {
		return "", m.err
	}
	return fmt.Sprintf("log-%d", n), nil
}

// Sent returns a copy of the recorded messages.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

var (
	_ Mailer = (*ResendMailer)(nil)
	_ Mailer = Disabled{}
	_ Mailer = (*LogMailer)(nil)
)
