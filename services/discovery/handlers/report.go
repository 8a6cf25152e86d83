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
	"errors"
	"net/http"

	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/discovery/redact"
	"github.com/AleutianAI/nova-discovery/services/discovery/report"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReportDeps are the collaborators of the report endpoint.
type ReportDeps struct {
	Dispatcher *report.Dispatcher
	Catalog    *i18n.Catalog
	Metrics    *observability.Metrics

	// Redactor masks secrets in the transcript. Nil sends it as is.
	Redactor *redact.Engine
}

// HandleReport serves POST /api/discovery/report.
//
// # Description
//
// By default the report is queued on the background dispatcher and the
// endpoint answers 202 {ok:true, proposalGenerated:false} at once: the
// visitor's next step never waits on the proposal or the mail service.
// With ?wait=true the dispatch runs inline and proposalGenerated reflects
// what happened.
//
// A session that already produced a report answers {ok:true} and sends
// nothing.
//
// # Outputs
//
//   - 202 queued, or 200 when ?wait=true.
//   - 400 {ok:false} for an invalid body.
//   - 503 {ok:false} when delivery is not configured or the report queue is full.
//   - 500 {ok:false} when ?wait=true and the email could not be sent.
func HandleReport(deps ReportDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleReport")
		defer span.End()
		logger := logging.FromContext(ctx)
		gen := deps.Dispatcher.Generator()

		if !gen.Configured() {
			logger.Error("Report requested but delivery is not configured")
			deps.Metrics.RecordReport("unavailable")
			deps.Metrics.RecordError(observability.EndpointReport, observability.ErrorCodeUnavailable)
			c.JSON(http.StatusServiceUnavailable, datatypes.ReportResponse{Error: msgReportsUnavailable})
			return
		}

		var req datatypes.ReportRequest
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodyBytes)
		if err := c.ShouldBindJSON(&req); err != nil {
			rejectReport(c, deps, err)
			return
		}
		if err := req.Validate(); err != nil {
			rejectReport(c, deps, err)
			return
		}

		r := report.Report{
			SessionID:             req.SessionID,
			Locale:                deps.Catalog.Match(req.Locale),
			Messages:              req.Messages,
			FinalAssistantMessage: req.FinalAssistantMessage,
			UserEmail:             req.UserEmail,
		}
		if deps.Redactor != nil {
			var n int
			if r.Messages, n = deps.Redactor.Messages(r.Messages); n > 0 {
				logging.FromContext(ctx).Info("Redacted sensitive content from report transcript", "count", n)
			}
		}
		span.SetAttributes(
			attribute.String("report.locale", r.Locale),
			attribute.Int("report.messages", len(r.Messages)),
			attribute.Bool("report.wait", c.Query("wait") == "true"),
		)

		if c.Query("wait") != "true" {
			if err := deps.Dispatcher.Enqueue(ctx, r); err != nil {
				span.RecordError(err)
				logger.Warn("Report queue is full", "error", err)
				deps.Metrics.RecordReport("busy")
				deps.Metrics.RecordError(observability.EndpointReport, observability.ErrorCodeBusy)
				c.JSON(http.StatusServiceUnavailable, datatypes.ReportResponse{Error: msgBusy})
				return
			}
			deps.Metrics.RecordReport("queued")
			queued := false
			c.JSON(http.StatusAccepted, datatypes.ReportResponse{OK: true, ProposalGenerated: &queued})
			return
		}

		out, err := gen.Dispatch(ctx, r)
		switch {
		case errors.Is(err, report.ErrAlreadySent):
			deps.Metrics.RecordReport("duplicate")
			c.JSON(http.StatusOK, datatypes.ReportResponse{OK: true})
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "dispatch failed")
			deps.Metrics.RecordReport("unavailable")
			c.JSON(http.StatusServiceUnavailable, datatypes.ReportResponse{Error: sanitizeErrorForClient(ctx, err)})
		case !out.Delivered:
			span.SetStatus(codes.Error, "mail delivery failed")
			deps.Metrics.RecordReport("failed")
			c.JSON(http.StatusInternalServerError, datatypes.ReportResponse{
				Error:             msgReportFailed,
				ProposalGenerated: &out.ProposalGenerated,
			})
		default:
			deps.Metrics.RecordReport("completed")
			c.JSON(http.StatusOK, datatypes.ReportResponse{OK: true, ProposalGenerated: &out.ProposalGenerated})
		}
	}
}

func rejectReport(c *gin.Context, deps ReportDeps, err error) {
	logging.FromContext(c.Request.Context()).Warn("Rejected report request", "error", err)
	deps.Metrics.RecordReport("invalid")
	deps.Metrics.RecordError(observability.EndpointReport, observability.ErrorCodeValidation)
	c.JSON(http.StatusBadRequest, datatypes.ReportResponse{Error: msgInvalidRequest})
}
