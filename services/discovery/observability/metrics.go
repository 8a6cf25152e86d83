// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package observability provides Prometheus metrics for the discovery
// service.
//
// # Description
//
// Metrics cover the chat streaming path and the HTTP edge:
//   - Chat turns by driver and outcome
//   - Text fragments written
//   - Stream duration and time to first fragment
//   - Active streams
//   - Rate-limited requests and errors by code
//
// Metrics are exposed via /metrics together with the OpenTelemetry
// instruments bridged onto the same registry.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// A nil *Metrics is valid and records nothing, which keeps handlers free of
// nil checks in tests.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const (
	metricsNamespace = "nova"
	metricsSubsystem = "discovery"
)

// Metrics holds the service's Prometheus collectors.
//
// # Fields
//
//   - TurnsTotal: chat turns by endpoint, driver and outcome
//   - FragmentsTotal: text chunks written by endpoint
//   - TimeToFirstFragmentSeconds: latency until the first text chunk
//   - StreamDurationSeconds: whole turn duration by endpoint and outcome
//   - ActiveStreams: turns currently streaming
//   - RateLimitedTotal: requests rejected with 429
//   - ErrorsTotal: errors by endpoint and code
//   - ReportsQueuedTotal: report requests by result
type Metrics struct {
	TurnsTotal                 *prometheus.CounterVec
	FragmentsTotal             *prometheus.CounterVec
	TimeToFirstFragmentSeconds *prometheus.HistogramVec
	StreamDurationSeconds      *prometheus.HistogramVec
	ActiveStreams              *prometheus.GaugeVec
	RateLimitedTotal           prometheus.Counter
	ErrorsTotal                *prometheus.CounterVec
	ReportsQueuedTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on reg.
//
// # Description
//
// Passing a private registry keeps tests independent; production passes
// the registry that also backs /metrics.
//
// # Limitations
//
//   - Panics if the collectors are already registered on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "chat_turns_total",
				Help:      "Chat turns by endpoint, driver and outcome",
			},
			[]string{"endpoint", "driver", "outcome"},
		),

		FragmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "chat_fragments_total",
				Help:      "Text chunks written to clients",
			},
			[]string{"endpoint"},
		),

		TimeToFirstFragmentSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "time_to_first_fragment_seconds",
				Help:      "Time from request to first text chunk in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		StreamDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total chat turn duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint", "outcome"},
		),

		ActiveStreams: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "active_streams",
				Help:      "Chat turns currently streaming",
			},
			[]string{"endpoint"},
		),

		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "errors_total",
				Help:      "Errors by endpoint and code",
			},
			[]string{"endpoint", "error_code"},
		),

		ReportsQueuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "report_requests_total",
				Help:      "Report requests by result",
			},
			[]string{"result"},
		),
	}
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates a rejected request body.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeUnavailable indicates a dependency is not configured.
	ErrorCodeUnavailable ErrorCode = "unavailable"

	// ErrorCodeLLMError indicates the completion service failed.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeEmptyOutput indicates a turn produced no text.
	ErrorCodeEmptyOutput ErrorCode = "empty_output"

	// ErrorCodeClientDisconnect indicates the client went away mid-stream.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"

	// ErrorCodeBusy indicates the report workers were saturated.
	ErrorCodeBusy ErrorCode = "busy"

	// ErrorCodeInternal indicates anything else.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint labels metrics by route.
type Endpoint string

const (
	EndpointChat      Endpoint = "chat"
	EndpointChatWS    Endpoint = "chat_ws"
	EndpointReport    Endpoint = "report"
	EndpointTestEmail Endpoint = "test_email"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordTurn counts a finished chat turn.
func (m *Metrics) RecordTurn(endpoint Endpoint, driver, outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(string(endpoint), driver, outcome).Inc()
}

// RecordFragment counts one text chunk.
func (m *Metrics) RecordFragment(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.FragmentsTotal.WithLabelValues(string(endpoint)).Inc()
}

// RecordTimeToFirstFragment observes first-chunk latency.
func (m *Metrics) RecordTimeToFirstFragment(endpoint Endpoint, seconds float64) {
	if m == nil {
		return
	}
	m.TimeToFirstFragmentSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordStreamDuration observes the whole turn.
func (m *Metrics) RecordStreamDuration(endpoint Endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), outcome).Observe(seconds)
}

// StreamStarted increments the active streams gauge.
func (m *Metrics) StreamStarted(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *Metrics) StreamEnded(endpoint Endpoint) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordRateLimited counts a 429.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// RecordError counts an error.
func (m *Metrics) RecordError(endpoint Endpoint, code ErrorCode) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordReport counts a report request by result
// (queued, completed, duplicate, busy, invalid, unavailable).
func (m *Metrics) RecordReport(result string) {
	if m == nil {
		return
	}
	m.ReportsQueuedTotal.WithLabelValues(result).Inc()
}
