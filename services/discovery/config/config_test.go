// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package config

import (
	"testing"
	"time"

	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, 12210, cfg.Port)
	assert.Equal(t, DriverModel, cfg.Driver)
	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.LLM.AnthropicModel)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, 4096, cfg.LLM.ProposalMaxTokens)
	assert.Equal(t, 20, cfg.LLM.HistoryLimit)
	assert.Equal(t, "NOVA Reports <no-reply@noreply.nova>", cfg.Mail.From)
	assert.Equal(t, 4, cfg.Mail.Workers)
	assert.Equal(t, 64, cfg.Mail.QueueSize)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.False(t, cfg.Strict)
	assert.False(t, cfg.Mail.EnableTestEmail)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"NOVA_PORT":              "8080",
		"NOVA_DRIVER":            " Scripted ",
		"NOVA_LLM_BACKEND":       "OpenAI",
		"OPENAI_API_KEY":         "sk-test",
		"RESEND_API_KEY":         "re_test",
		"NOVA_REPORTS_EMAIL":     "team@nova.example",
		"NOVA_STRICT_STARTUP":    "true",
		"NOVA_ENABLE_TEST_EMAIL": "true",
		"NOVA_RATE_LIMIT_RPS":    "0.5",
		"NOVA_LOG_LEVEL":         "debug",
		"NOVA_REPORT_QUEUE":      "8",
		"NOVA_TRUSTED_PROXIES":   "10.0.0.1,192.168.0.0/16",
	})

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverScripted, cfg.Driver)
	assert.Equal(t, "openai", cfg.LLM.Client().Backend)
	assert.Equal(t, "sk-test", cfg.LLM.Client().OpenAIAPIKey)
	assert.True(t, cfg.Mail.Mailer().Ready())
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.Mail.EnableTestEmail)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.Equal(t, logging.LevelDebug, cfg.Log.Logging("nova").Level)
	assert.Equal(t, 8, cfg.Mail.QueueSize)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.TrustedProxies)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown driver", map[string]string{"NOVA_DRIVER": "magic"}},
		{"unknown backend", map[string]string{"NOVA_LLM_BACKEND": "gemini"}},
		{"port not a number", map[string]string{"NOVA_PORT": "http"}},
		{"port out of range", map[string]string{"NOVA_PORT": "70000"}},
		{"bad log level", map[string]string{"NOVA_LOG_LEVEL": "loud"}},
		{"bad trusted proxy", map[string]string{"NOVA_TRUSTED_PROXIES": "proxy.internal"}},
		{"bad exporter", map[string]string{"OTEL_TRACES_EXPORTER": "zipkin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDegraded(t *testing.T) {
	empty, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Len(t, empty.Degraded(), 3)

	full, err := LoadFrom(map[string]string{
		"RESEND_API_KEY":     "re_test",
		"NOVA_REPORTS_EMAIL": "team@nova.example",
		"NOVA_CALENDAR_URL":  "https://calendar.example/nova",
	})
	require.NoError(t, err)
	assert.Empty(t, full.Degraded())
}
