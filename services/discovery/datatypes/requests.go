// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the request and response bodies of the
// discovery HTTP API.
package datatypes

import (
	"strconv"
	"unicode/utf8"

	"github.com/AleutianAI/nova-discovery/pkg/chat"
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageContentBytes bounds a single message. Longer content is
	// truncated on a rune boundary rather than rejected.
	MaxMessageContentBytes = 32 * 1024

	// MaxMessagesPerRequest bounds the history accepted per request. Older
	// messages beyond the limit are dropped.
	MaxMessagesPerRequest = 100

	// MaxFinalMessageBytes bounds the summary attached to a report.
	MaxFinalMessageBytes = 64 * 1024
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length against the tag parameter, or
// MaxMessageContentBytes when the tag has none.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit := MaxMessageContentBytes
	if p := fl.Param(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		limit = n
	}
	return len(fl.Field().String()) <= limit
}

// =============================================================================
// Chat
// =============================================================================

// ChatRequest is the body of POST /api/chat.
//
// # Description
//
// The endpoint never rejects a chat request for its shape. Normalize
// applies safe defaults instead: unknown roles are dropped, oversized
// content is truncated and only the newest MaxMessagesPerRequest messages
// are kept.
type ChatRequest struct {
	Messages []chat.Message `json:"messages"`
	Locale   string         `json:"locale"`
}

// Normalize applies the defaults described on ChatRequest in place.
func (r *ChatRequest) Normalize() {
	kept := make([]chat.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		if err := validate.Var(string(m.Role), "required,oneof=user assistant system"); err != nil {
			continue
		}
		m.Content = TruncateBytes(m.Content, MaxMessageContentBytes)
		kept = append(kept, m)
	}
	if len(kept) > MaxMessagesPerRequest {
		kept = kept[len(kept)-MaxMessagesPerRequest:]
	}
	r.Messages = kept
}

// TruncateBytes shortens s to at most limit bytes without splitting a rune.
func TruncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// =============================================================================
// Report
// =============================================================================

// ReportRequest is the body of POST /api/discovery/report.
type ReportRequest struct {
	Locale                string         `json:"locale" validate:"omitempty,max=35"`
	Messages              []chat.Message `json:"messages" validate:"required,min=1,max=100,dive"`
	FinalAssistantMessage string         `json:"finalAssistantMessage" validate:"maxbytes=65536"`
	UserEmail             string         `json:"userEmail,omitempty" validate:"omitempty,email,max=254"`
	SessionID             string         `json:"sessionId,omitempty" validate:"omitempty,max=128,printascii"`
}

// Validate checks the report request. Message content is truncated first
// so long transcripts are accepted.
func (r *ReportRequest) Validate() error {
	for i := range r.Messages {
		r.Messages[i].Content = TruncateBytes(r.Messages[i].Content, MaxMessageContentBytes)
	}
	return validate.Struct(r)
}

// ReportResponse is returned by the report endpoint. Error is a generic,
// user-safe sentence; it never names configuration.
type ReportResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error,omitempty"`
	ProposalGenerated *bool  `json:"proposalGenerated,omitempty"`
}

// =============================================================================
// Health
// =============================================================================

// ServiceStatus reports which dependencies are configured.
type ServiceStatus struct {
	CompletionService bool `json:"completionService"`
	MailService       bool `json:"mailService"`
	ReportsConfigured bool `json:"reportsConfigured"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Services  ServiceStatus `json:"services"`
}
