// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nova-discovery/services/discovery/config"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/mail"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T, vars map[string]string, opts ...Option) *Service {
	t.Helper()
	cfg, err := config.LoadFrom(vars)
	require.NoError(t, err)
	opts = append([]Option{
		WithLogger(quietLogger),
		WithLLMClient(nil),
		WithRegistry(prometheus.NewRegistry()),
	}, opts...)
	svc, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return svc
}

func TestNew_HealthReflectsConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		mailer   mail.Mailer
		expected datatypes.ServiceStatus
	}{
		{
			name:     "nothing configured",
			vars:     map[string]string{},
			expected: datatypes.ServiceStatus{},
		},
		{
			name:     "mailer without recipient",
			vars:     map[string]string{},
			mailer:   mail.NewLogMailer(quietLogger, nil),
			expected: datatypes.ServiceStatus{MailService: true},
		},
		{
			name:     "reports configured",
			vars:     map[string]string{"NOVA_REPORTS_EMAIL": "team@nova.example"},
			mailer:   mail.NewLogMailer(quietLogger, nil),
			expected: datatypes.ServiceStatus{MailService: true, ReportsConfigured: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.mailer != nil {
				opts = append(opts, WithMailer(tt.mailer))
			}
			svc := newTestService(t, tt.vars, opts...)

			w := httptest.NewRecorder()
			svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, http.StatusOK, w.Code)
			var resp datatypes.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "ok", resp.Status)
			assert.Equal(t, tt.expected, resp.Services)
			assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
		})
	}
}

func TestNew_RateLimitKeysOnPeerUnlessProxyTrusted(t *testing.T) {
	tests := []struct {
		name     string
		trusted  string
		expected []int
	}{
		{
			name:     "forged forwarded-for from untrusted peer",
			expected: []int{200, 429, 429, 429, 429},
		},
		{
			name:     "forwarded-for from trusted proxy",
			trusted:  "203.0.113.1",
			expected: []int{200, 200, 200, 200, 200},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			vars := map[string]string{
				"NOVA_RATE_LIMIT_RPS":   "0.001",
				"NOVA_RATE_LIMIT_BURST": "1",
			}
			if tt.trusted != "" {
				vars["NOVA_TRUSTED_PROXIES"] = tt.trusted
			}
			svc := newTestService(t, vars)

			// Act
			var codes []int
			for i := 0; i < 5; i++ {
				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
				req.RemoteAddr = "203.0.113.1:40000"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
				svc.Router().ServeHTTP(w, req)
				codes = append(codes, w.Code)
			}

			// Assert
			assert.Equal(t, tt.expected, codes)
		})
	}
}

func TestNew_StrictModelDriverWithoutClient(t *testing.T) {
	svc := newTestService(t, map[string]string{"NOVA_STRICT_STARTUP": "true"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[],"locale":"en"}`))
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Service temporarily unavailable"}`, w.Body.String())
}

func TestNew_LenientModelDriverWithoutClient(t *testing.T) {
	svc := newTestService(t, map[string]string{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[],"locale":"en"}`))
	svc.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"type":"error"`)
}

func TestNew_ScriptedDriverAndMetrics(t *testing.T) {
	svc := newTestService(t, map[string]string{"NOVA_DRIVER": "scripted"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[],"locale":"en"}`))
	svc.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"done"`)

	m := httptest.NewRecorder()
	svc.Router().ServeHTTP(m, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), "nova_discovery_chat_turns_total")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{})
	require.NoError(t, err)
	cfg.Driver = "magic"

	_, err = New(context.Background(), cfg, WithLogger(quietLogger), WithRegistry(prometheus.NewRegistry()))

	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestServe_ShutsDownAndDrainsReports(t *testing.T) {
	// Arrange
	mailer := mail.NewLogMailer(quietLogger, nil)
	svc := newTestService(t, map[string]string{
		"NOVA_DRIVER":           "offline",
		"NOVA_REPORTS_EMAIL":    "team@nova.example",
		"NOVA_SHUTDOWN_TIMEOUT": "5s",
	}, WithMailer(mailer))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, listener) }()
	base := "http://" + listener.Addr().String()

	// Act
	body := `{"locale":"en","sessionId":"drain-1","finalAssistantMessage":"summary","messages":[{"id":"u1","role":"user","content":"a web app","createdAt":1710000000000}]}`
	resp, err := http.Post(base+"/api/discovery/report", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	cancel()

	// Assert
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not shut down")
	}
	assert.Len(t, mailer.Sent(), 1)
	assert.Error(t, svc.Serve(context.Background(), listener), "second Serve must fail")
}
