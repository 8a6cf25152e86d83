// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transport turns a conversation.Response into a StreamChunk
// sequence: text fragments followed by exactly one terminal chunk.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
)

// GenericErrorMessage is sent when a failing response carries no apology.
const GenericErrorMessage = "An error occurred while processing your request."

// ErrClientGone wraps write failures. Once a write fails nothing else is
// sent, not even a terminal chunk.
var ErrClientGone = errors.New("transport: client connection lost")

// errEmptyOutput marks a stream that finished without any text.
var errEmptyOutput = errors.New("transport: completion produced no text")

// Outcome classifies how a relay ended.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeFailed       Outcome = "failed"
	OutcomeDisconnected Outcome = "disconnected"
)

// Result summarizes one relay.
type Result struct {
	Outcome Outcome

	// Final is the assistant message sent in the done chunk. Zero unless
	// Outcome is OutcomeCompleted.
	Final chat.Message

	// Fragments counts text chunks written.
	Fragments int

	// Err is the upstream or write error, if any. It is never sent to the
	// client.
	Err error
}

// Options customize Relay.
type Options struct {
	// Decorate may attach signals or a stage to the done chunk.
	Decorate func(done *chat.StreamChunk)

	// OnFragment observes each text fragment after it is written.
	OnFragment func(fragment string)
}

// Relay writes resp to w.
//
// # Description
//
// Immediate text is chunked with Chunk; streaming text is regrouped by a
// Rechunker so both reach the client with the same cadence. The sequence
// always ends with one terminal chunk:
//
//   - done, carrying the full assistant message, when text was produced.
//   - error, carrying resp.Apology (or GenericErrorMessage), when the turn
//     failed before or during streaming, or produced nothing.
//
// If a write fails the client is gone and Relay stops at once.
//
// # Inputs
//
//   - ctx: Cancels the upstream stream.
//   - w: Destination.
//   - resp: Driver output.
//   - opts: Optional hooks.
//
// # Outputs
//
//   - Result: Outcome, final message and error for logs and metrics.
func Relay(ctx context.Context, w ChunkWriter, resp conversation.Response, opts Options) Result {
	var res Result

	if resp.Failed {
		res.Outcome = OutcomeFailed
		res.Err = errors.New("transport: turn failed before streaming")
		return finishWithError(w, resp, res)
	}

	write := func(fragment string) error {
		if err := w.WriteChunk(chat.TextChunk(fragment)); err != nil {
			return fmt.Errorf("%w: %v", ErrClientGone, err)
		}
		res.Fragments++
		if opts.OnFragment != nil {
			opts.OnFragment(fragment)
		}
		return nil
	}

	var full strings.Builder
	if resp.IsStreaming() {
		var rc Rechunker
		err := resp.Stream(ctx, func(delta string) error {
			full.WriteString(delta)
			for _, fragment := range rc.Push(delta) {
				if err := write(fragment); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			if rest := rc.Flush(); rest != "" {
				err = write(rest)
			}
		}
		if err != nil {
			res.Err = err
			if errors.Is(err, ErrClientGone) {
				res.Outcome = OutcomeDisconnected
				return res
			}
			res.Outcome = OutcomeFailed
			return finishWithError(w, resp, res)
		}
	} else {
		full.WriteString(resp.Text)
		for _, fragment := range Chunk(resp.Text) {
			if err := write(fragment); err != nil {
				res.Outcome = OutcomeDisconnected
				res.Err = err
				return res
			}
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		res.Outcome = OutcomeFailed
		res.Err = errEmptyOutput
		return finishWithError(w, resp, res)
	}

	final := chat.NewAssistantMessage(full.String())
	done := chat.DoneChunk(final)
	if resp.Stage != "" {
		done.Stage = resp.Stage
	}
	if opts.Decorate != nil {
		opts.Decorate(&done)
	}
	if err := w.WriteChunk(done); err != nil {
		res.Outcome = OutcomeDisconnected
		res.Err = fmt.Errorf("%w: %v", ErrClientGone, err)
		return res
	}

	res.Outcome = OutcomeCompleted
	res.Final = final
	return res
}

func finishWithError(w ChunkWriter, resp conversation.Response, res Result) Result {
	msg := resp.Apology
	if msg == "" {
		msg = GenericErrorMessage
	}
	if err := w.WriteChunk(chat.ErrorChunk(msg)); err != nil {
		res.Outcome = OutcomeDisconnected
		res.Err = errors.Join(res.Err, fmt.Errorf("%w: %v", ErrClientGone, err))
	}
	return res
}
