// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package handlers

import (
	"net/http"

	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/mail"
	"github.com/gin-gonic/gin"
)

const testEmailSubject = "NOVA - Test discovery report email"

const testEmailBody = "This is a TEST email from the NOVA discovery service.\n\n" +
	"If you see this, report delivery is configured correctly.\n"

// HandleTestEmail serves GET /api/discovery/test-email. The route is only
// registered when explicitly enabled.
func HandleTestEmail(mailer mail.Mailer, recipient string, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := logging.FromContext(ctx)

		if mailer == nil || !mailer.Configured() || recipient == "" {
			logger.Error("Test email requested but delivery is not configured")
			metrics.RecordError(observability.EndpointTestEmail, observability.ErrorCodeUnavailable)
			c.JSON(http.StatusServiceUnavailable, datatypes.ReportResponse{Error: msgReportsUnavailable})
			return
		}

		id, err := mailer.Send(ctx, mail.Message{
			To:      []string{recipient},
			Subject: testEmailSubject,
			Text:    testEmailBody,
		})
		if err != nil {
			logger.Error("Failed to send test email", "error", err)
			metrics.RecordError(observability.EndpointTestEmail, observability.ErrorCodeInternal)
			c.JSON(http.StatusInternalServerError, datatypes.ReportResponse{Error: msgTestEmailFailed})
			return
		}

		logger.Info("Test email sent", "message_id", id)
		c.JSON(http.StatusOK, datatypes.ReportResponse{OK: true})
	}
}
