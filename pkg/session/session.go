// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session holds the client-side state of one discovery
// conversation: the message history, the in-flight turn, pending quick
// replies and the summary/report flags.
//
// # Thread Safety
//
// Session is safe for concurrent use. All transitions are guarded by one
// mutex so flags cannot be observed half-updated.
package session

import (
	"errors"
	"sync"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// ErrTurnInFlight is returned by BeginTurn while another turn streams.
var ErrTurnInFlight = errors.New("session: an assistant turn is already streaming")

// ErrNoTurn is returned when finishing a turn that was never begun.
var ErrNoTurn = errors.New("session: no assistant turn in flight")

// Session is one visitor conversation.
type Session struct {
	mu sync.Mutex

	id       string
	locale   string
	messages []chat.Message

	streaming    bool
	pending      []chat.QuickReply
	summaryReady bool
	reportSent   bool
}

// New returns an empty session.
func New(id, locale string) *Session {
	return &Session{id: id, locale: locale}
}

// ID returns the session id sent with the report.
func (s *Session) ID() string { return s.id }

// Locale returns the interface locale.
func (s *Session) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale changes the interface locale.
func (s *Session) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// Messages returns a copy of the history.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// BeginTurn appends the user message and marks a turn in flight. Pending
// quick replies are consumed. It fails while another turn streams.
func (s *Session) BeginTurn(user chat.Message) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return nil, ErrTurnInFlight
	}
	if !user.IsBlank() {
		s.messages = append(s.messages, user)
	}
	s.streaming = true
	s.pending = nil
	return append([]chat.Message(nil), s.messages...), nil
}

// BeginGreeting marks a turn in flight without a user message, for the
// opening assistant turn.
func (s *Session) BeginGreeting() ([]chat.Message, error) {
	return s.BeginTurn(chat.Message{})
}

// CompleteTurn records the assistant message and its signals and ends the
// turn.
func (s *Session) CompleteTurn(final chat.Message, signals *chat.Signals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming {
		return ErrNoTurn
	}
	s.streaming = false
	s.messages = append(s.messages, final)
	if signals != nil {
		s.pending = append([]chat.QuickReply(nil), signals.QuickReplies...)
		if signals.SummaryReady {
			s.summaryReady = true
		}
	}
	return nil
}

// FailTurn ends the turn with an apology shown as an assistant message, so
// the conversation stays usable.
func (s *Session) FailTurn(apology string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.streaming {
		return ErrNoTurn
	}
	s.streaming = false
	if apology != "" {
		s.messages = append(s.messages, chat.NewAssistantMessage(apology))
	}
	return nil
}

// IsStreaming reports whether a turn is in flight.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// PendingQuickReplies returns the replies offered with the last message.
func (s *Session) PendingQuickReplies() []chat.QuickReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.QuickReply(nil), s.pending...)
}

// SummaryReady reports whether a project summary was produced.
func (s *Session) SummaryReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryReady
}

// ReportSent reports whether the report was requested.
func (s *Session) ReportSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportSent
}

// MarkReportSent flips reportSent from false to true. It returns true only
// for the call that made the transition.
func (s *Session) MarkReportSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reportSent {
		return false
	}
	s.reportSent = true
	return true
}

// FinalAssistantMessage returns the content of the last assistant message.
func (s *Session) FinalAssistantMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := chat.LastByRole(s.messages, chat.RoleAssistant); ok {
		return m.Content
	}
	return ""
}
