// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), Config{
		ServiceName:    "nova-test",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterNone,
	})

	require.NoError(t, err)
	counter, err := tel.Meter("test").Int64Counter("noop")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"trace", Config{TraceExporter: "zipkin"}},
		{"metric", Config{MetricExporter: "statsd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Init(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, ErrUnknownExporter)
		})
	}
}

func TestInit_PrometheusBridge(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	tel, err := Init(context.Background(), Config{
		ServiceName:    "nova-test",
		MetricExporter: ExporterPrometheus,
		Registerer:     reg,
	})
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	// Act
	counter, err := tel.Meter("nova.test").Int64Counter("nova.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// Assert
	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "nova_test_events_total")
}

func TestInit_StdoutTraces(t *testing.T) {
	var buf bytes.Buffer
	tel, err := Init(context.Background(), Config{
		ServiceName:   "nova-test",
		TraceExporter: ExporterStdout,
		Writer:        &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "test-span")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "test-span")
}

func TestShutdown_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NotNil(t, tel.Meter("x"))
}
