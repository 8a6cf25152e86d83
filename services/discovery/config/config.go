// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package config loads the discovery service configuration from the
// environment.
//
// # Description
//
// Every setting has a default, so an empty environment yields a runnable
// service. Missing credentials are not errors: the affected feature
// degrades and Degraded lists it for the startup log. Only malformed
// values (an unknown driver, a non-numeric port) fail Load.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/AleutianAI/nova-discovery/pkg/logging"
	"github.com/AleutianAI/nova-discovery/services/llm"
	"github.com/AleutianAI/nova-discovery/services/mail"
	"github.com/caarlos0/env/v11"
)

// Driver names accepted in NOVA_DRIVER.
const (
	DriverModel    = "model"
	DriverScripted = "scripted"
	DriverOffline  = "offline"
)

// ErrInvalid is returned (wrapped) for malformed settings.
var ErrInvalid = errors.New("config: invalid setting")

// =============================================================================
// Sections
// =============================================================================

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Backend string `env:"NOVA_LLM_BACKEND" envDefault:"anthropic"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	OllamaBaseURL string `env:"OLLAMA_BASE_URL"`
	OllamaModel   string `env:"OLLAMA_MODEL"`

	MaxTokens         int `env:"NOVA_MAX_TOKENS" envDefault:"1024"`
	ProposalMaxTokens int `env:"NOVA_PROPOSAL_MAX_TOKENS" envDefault:"4096"`
	HistoryLimit      int `env:"NOVA_HISTORY_LIMIT" envDefault:"20"`
}

// Client returns the llm package configuration.
func (c LLMConfig) Client() llm.Config {
	return llm.Config{
		Backend:          c.Backend,
		AnthropicAPIKey:  c.AnthropicAPIKey,
		AnthropicModel:   c.AnthropicModel,
		AnthropicBaseURL: c.AnthropicBaseURL,
		OpenAIAPIKey:     c.OpenAIAPIKey,
		OpenAIModel:      c.OpenAIModel,
		OpenAIBaseURL:    c.OpenAIBaseURL,
		OllamaBaseURL:    c.OllamaBaseURL,
		OllamaModel:      c.OllamaModel,
	}
}

// MailConfig configures report delivery.
type MailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	Recipient    string `env:"NOVA_REPORTS_EMAIL"`
	From         string `env:"NOVA_REPORTS_FROM_EMAIL" envDefault:"NOVA Reports <no-reply@noreply.nova>"`

	// DryRun captures reports in the log instead of sending them.
	DryRun bool `env:"NOVA_MAIL_DRY_RUN"`

	EnableTestEmail bool `env:"NOVA_ENABLE_TEST_EMAIL"`
	Workers         int  `env:"NOVA_REPORT_WORKERS" envDefault:"4"`
	QueueSize       int  `env:"NOVA_REPORT_QUEUE" envDefault:"64"`
}

// Mailer returns the mail package configuration.
func (c MailConfig) Mailer() mail.Config {
	return mail.Config{APIKey: c.ResendAPIKey, From: c.From, Recipient: c.Recipient}
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level  string `env:"NOVA_LOG_LEVEL" envDefault:"info"`
	Format string `env:"NOVA_LOG_FORMAT" envDefault:"text"`
	File   string `env:"NOVA_LOG_FILE"`
}

// Logging returns the logging configuration for service.
func (c LogConfig) Logging(service string) logging.Config {
	level, _ := logging.ParseLevel(c.Level)
	return logging.Config{
		Level:      level,
		Format:     logging.Format(strings.ToLower(c.Format)),
		File:       c.File,
		Service:    service,
		SetDefault: true,
	}
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `env:"OTEL_TRACES_EXPORTER" envDefault:"none"`
	MetricExporter string `env:"OTEL_METRICS_EXPORTER" envDefault:"prometheus"`
	OTLPEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Environment    string `env:"NOVA_ENVIRONMENT" envDefault:"development"`
}

// =============================================================================
// Config
// =============================================================================

// Config is the whole service configuration.
type Config struct {
	Port    int    `env:"NOVA_PORT" envDefault:"12210"`
	GinMode string `env:"GIN_MODE"`

	// Driver selects the conversation strategy: model, scripted or offline.
	Driver string `env:"NOVA_DRIVER" envDefault:"model"`

	// Strict makes the chat endpoint answer 503 when the model driver has
	// no completion client, instead of an in-stream apology.
	Strict bool `env:"NOVA_STRICT_STARTUP"`

	CalendarURL string `env:"NOVA_CALENDAR_URL"`
	CatalogDir  string `env:"NOVA_CATALOG_DIR"`

	RateLimitRPS   float64 `env:"NOVA_RATE_LIMIT_RPS" envDefault:"2"`
	RateLimitBurst int     `env:"NOVA_RATE_LIMIT_BURST" envDefault:"100"`

	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is the client.
	TrustedProxies []string `env:"NOVA_TRUSTED_PROXIES" envSeparator:","`

	ShutdownTimeout time.Duration `env:"NOVA_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	LLM       LLMConfig
	Mail      MailConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from vars only, ignoring the process
// environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.LLM.Backend = strings.ToLower(strings.TrimSpace(cfg.LLM.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects malformed values. Absent credentials are not checked.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverModel, DriverScripted, DriverOffline:
	default:
		return fmt.Errorf("%w: NOVA_DRIVER=%q (want model, scripted or offline)", ErrInvalid, c.Driver)
	}
	switch c.LLM.Backend {
	case llm.BackendAnthropic, "claude", llm.BackendOpenAI, llm.BackendOllama:
	default:
		return fmt.Errorf("%w: NOVA_LLM_BACKEND=%q", ErrInvalid, c.LLM.Backend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: NOVA_PORT=%d", ErrInvalid, c.Port)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: NOVA_LOG_LEVEL=%q", ErrInvalid, c.Log.Level)
	}
	switch strings.ToLower(c.Telemetry.TraceExporter) {
	case "none", "otlp", "stdout":
	default:
		return fmt.Errorf("%w: OTEL_TRACES_EXPORTER=%q", ErrInvalid, c.Telemetry.TraceExporter)
	}
	switch strings.ToLower(c.Telemetry.MetricExporter) {
	case "none", "prometheus", "stdout":
	default:
		return fmt.Errorf("%w: OTEL_METRICS_EXPORTER=%q", ErrInvalid, c.Telemetry.MetricExporter)
	}
	for _, p := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return fmt.Errorf("%w: NOVA_TRUSTED_PROXIES entry %q", ErrInvalid, p)
		}
	}
	return nil
}

// Degraded lists features that will run in a reduced mode because their
// settings are absent. Completion credentials are checked by the service,
// which also considers mounted secrets.
func (c Config) Degraded() []string {
	var out []string
	if !c.Mail.DryRun && c.Mail.ResendAPIKey == "" {
		out = append(out, "report email delivery (RESEND_API_KEY unset)")
	}
	if c.Mail.Recipient == "" {
		out = append(out, "report email delivery (NOVA_REPORTS_EMAIL unset)")
	}
	if c.CalendarURL == "" {
		out = append(out, "call scheduling link (NOVA_CALENDAR_URL unset)")
	}
	return out
}
