// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package conversation decides the next assistant contribution of a
// discovery session.
//
// # Description
//
// A Driver receives the full message history and returns a Response. Three
// strategies share the interface:
//
//   - ScriptedDriver: a fixed phase table with localized questions and
//     quick-reply option sets. Deterministic and needs no credentials.
//   - ModelDriver: forwards the sanitized, capped history to a completion
//     service with the NOVA system instruction and streams its answer.
//   - OfflineDriver: a keyword planner for local development.
//
// # Error Contract
//
// NextTurn never returns an error. When the turn cannot be produced the
// Response is marked Failed and carries a localized apology; streaming
// failures that happen later surface through Response.Apology as well.
package conversation

import (
	"context"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
)

// Turn is the input of a driver call.
type Turn struct {
	History []chat.Message
	Locale  string
}

// TokenStream produces the assistant text incrementally by calling emit
// with each fragment. It returns when the text is complete, emit fails, or
// ctx is cancelled.
type TokenStream func(ctx context.Context, emit func(delta string) error) error

// Response is either immediate (Text) or streaming (Stream).
type Response struct {
	// Text is the complete assistant message for immediate responses.
	Text string

	// Stream is set for responses produced by a completion service.
	Stream TokenStream

	// Apology is the localized message shown if the turn fails, either
	// before output starts (Failed) or while draining Stream.
	Apology string

	// Failed marks a turn that could not start.
	Failed bool

	// Options names the quick-reply set that accompanies the message.
	// Empty means the caller may infer one from the text.
	Options OptionSet

	// Stage is an optional planner label surfaced on the done chunk.
	Stage string
}

// IsStreaming reports whether the response must be drained from Stream.
func (r Response) IsStreaming() bool {
	return r.Stream != nil
}

// Immediate builds a non-streaming response.
func Immediate(text string) Response {
	return Response{Text: text}
}

// Failure builds a response for a turn that could not start.
func Failure(apology string) Response {
	return Response{Failed: true, Apology: apology}
}

// Driver produces the next assistant turn.
type Driver interface {
	NextTurn(ctx context.Context, turn Turn) Response

	// Ready reports whether the driver can produce real answers. A model
	// driver without a completion client is not ready.
	Ready() bool

	// Name identifies the strategy in logs and metrics.
	Name() string
}
