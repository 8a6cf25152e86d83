// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package handlers implements the HTTP endpoints of the discovery service.
//
// Handlers are constructors returning gin.HandlerFunc closures over their
// dependencies. Internal errors are logged with the request-scoped logger
// and never written to the client: clients only see the fixed sentences
// below, so configuration details cannot leak.
package handlers

import (
	"context"
	"errors"

	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/discovery/transport"
	"github.com/AleutianAI/nova-discovery/services/mail"
)

// =============================================================================
// Client-Facing Messages
// =============================================================================

const (
	msgServiceUnavailable = "Service temporarily unavailable"
	msgInvalidRequest     = "Invalid request."
	msgReportsUnavailable = "Report delivery is not available."
	msgReportFailed       = "Failed to send report email."
	msgBusy               = "The server is busy. Please try again shortly."
	msgTestEmailFailed    = "Failed to send test email."
)

// MaxRequestBodyBytes bounds request bodies. It leaves room for the
// largest accepted history; anything beyond is treated as malformed.
const MaxRequestBodyBytes = 8 << 20

// sanitizeErrorForClient logs err and returns the generic sentence safe to
// show to a visitor.
func sanitizeErrorForClient(ctx context.Context, err error) string {
	logging.FromContext(ctx).Debug("Sanitizing error for client", "original_error", err)
	if errors.Is(err, mail.ErrNotConfigured) {
		return msgReportsUnavailable
	}
	return transport.GenericErrorMessage
}

// errorCodeFor maps an unfinished turn to a metrics label.
func errorCodeFor(res transport.Result, resp conversation.Response) observability.ErrorCode {
	switch {
	case res.Outcome == transport.OutcomeDisconnected:
		return observability.ErrorCodeClientDisconnect
	case resp.Failed:
		return observability.ErrorCodeUnavailable
	case resp.IsStreaming():
		return observability.ErrorCodeLLMError
	default:
		return observability.ErrorCodeEmptyOutput
	}
}
