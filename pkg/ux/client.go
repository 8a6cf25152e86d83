// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/google/uuid"
)

// =============================================================================
// Interfaces
// =============================================================================

// HTTPDoer is the part of *http.Client the discovery client needs.
// Tests substitute a round-tripper backed by httptest.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// =============================================================================
// Configuration
// =============================================================================

// DefaultClientTimeout bounds a report request. Chat requests are bounded
// by the caller's context because a stream may legitimately take long.
const DefaultClientTimeout = 3 * time.Minute

// ErrServer is returned (wrapped) for non-2xx responses.
var ErrServer = errors.New("ux: server error")

// ReportPayload is the body posted to the report endpoint.
type ReportPayload struct {
	Locale                string         `json:"locale"`
	Messages              []chat.Message `json:"messages"`
	FinalAssistantMessage string         `json:"finalAssistantMessage"`
	UserEmail             string         `json:"userEmail,omitempty"`
	SessionID             string         `json:"sessionId,omitempty"`
}

// ReportReply is the report endpoint's answer.
type ReportReply struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error,omitempty"`
	ProposalGenerated *bool  `json:"proposalGenerated,omitempty"`
}

// =============================================================================
// Client
// =============================================================================

// Client talks to a discovery server.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no per-conversation state.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// NewClient returns a client for baseURL (e.g. "http://localhost:12210").
// A nil doer uses an http.Client without a global timeout.
func NewClient(baseURL string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// Chat posts the history and reads the streamed reply.
//
// # Description
//
// onText receives every text chunk as it arrives, so the caller can render
// progressively. The aggregated StreamResult is returned even when the
// stream breaks off; its Final then holds the partial text.
//
// # Inputs
//
//   - ctx: Cancels the request and the stream.
//   - messages: Conversation so far, oldest first.
//   - locale: Requested interface language.
//   - onText: Optional progressive renderer.
//
// # Outputs
//
//   - *StreamResult: Aggregated reply. Nil only if no response arrived.
//   - error: Transport failures and non-200 statuses.
func (c *Client) Chat(ctx context.Context, messages []chat.Message, locale string, onText func(string)) (*StreamResult, error) {
	body := map[string]any{"messages": messages, "locale": locale}
	resp, err := c.post(ctx, "/api/chat", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return ReadAll(ctx, resp.Body, onText)
}

// Report posts a discovery report. wait asks the server to finish the
// proposal and delivery before answering.
func (c *Client) Report(ctx context.Context, payload ReportPayload, wait bool) (*ReportReply, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultClientTimeout)
	defer cancel()

	path := "/api/discovery/report"
	if wait {
		path += "?wait=true"
	}
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply ReportReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w (%d): undecodable body: %v", ErrServer, resp.StatusCode, err)
	}
	return &reply, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("discovery request failed", "request_id", requestID, "path", path, "error", err)
		return nil, fmt.Errorf("http post: %w", err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%w (%d): %s", ErrServer, resp.StatusCode, strings.TrimSpace(string(raw)))
}
