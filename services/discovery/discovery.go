// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package discovery assembles the NOVA discovery service: catalog,
// conversation driver, completion client, report pipeline, middleware,
// telemetry and the HTTP server.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/nova-discovery/pkg/i18n"
	"github.com/AleutianAI/nova-discovery/services/discovery/config"
	"github.com/AleutianAI/nova-discovery/services/discovery/conversation"
	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/AleutianAI/nova-discovery/services/discovery/handlers"
	"github.com/AleutianAI/nova-discovery/services/discovery/middleware"
	"github.com/AleutianAI/nova-discovery/services/discovery/observability"
	"github.com/AleutianAI/nova-discovery/services/discovery/redact"
	"github.com/AleutianAI/nova-discovery/services/discovery/report"
	"github.com/AleutianAI/nova-discovery/services/discovery/routes"
	"github.com/AleutianAI/nova-discovery/services/discovery/signals"
	"github.com/AleutianAI/nova-discovery/services/discovery/telemetry"
	"github.com/AleutianAI/nova-discovery/services/llm"
	"github.com/AleutianAI/nova-discovery/services/mail"
)

// ServiceName identifies the service in logs, traces and metrics.
const ServiceName = "nova-discovery"

// Version is set at build time with -ldflags "-X ...discovery.Version=...".
var Version = "dev"

// drainTimeout bounds how long shutdown waits for queued reports.
const drainTimeout = 2 * time.Minute

// =============================================================================
// Options
// =============================================================================

// Option customises New. Tests use them to inject fakes.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	client   llm.Client
	clientOK bool
	mailer   mail.Mailer
	registry *prometheus.Registry
}

// WithLogger sets the base logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLLMClient replaces the configured completion client. A nil client
// simulates missing credentials.
func WithLLMClient(client llm.Client) Option {
	return func(o *options) {
		o.client = client
		o.clientOK = true
	}
}

// WithMailer replaces the configured mailer.
func WithMailer(m mail.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// WithRegistry sets the Prometheus registry. Defaults to a new registry
// carrying the Go and process collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// =============================================================================
// Service
// =============================================================================

// Service is one configured discovery server.
//
// # Thread Safety
//
// Run may be called once. Router and Status are safe for concurrent use.
type Service struct {
	cfg    config.Config
	logger *slog.Logger

	catalog     *i18n.Catalog
	client      llm.Client
	mailer      mail.Mailer
	driver      conversation.Driver
	dispatcher  *report.Dispatcher
	rateLimiter *middleware.RateLimiter
	registry    *prometheus.Registry
	telemetry   *telemetry.Telemetry
	router      *gin.Engine

	runOnce sync.Once
}

// New builds the service from cfg.
//
// # Description
//
// Missing credentials never fail New. Without a completion key the model
// driver is built but not ready; without mail settings reports answer
// "not available". Both are logged once here.
//
// # Inputs
//
//   - ctx: Used while initialising telemetry exporters.
//   - cfg: Validated configuration.
//   - opts: Test overrides.
//
// # Outputs
//
//   - *Service: Ready to Run.
//   - error: Catalog, telemetry or report pipeline construction failures.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Service, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{cfg: cfg, logger: o.logger, registry: o.registry}

	catalog, err := i18n.Load()
	if err != nil {
		return nil, fmt.Errorf("discovery: load catalog: %w", err)
	}
	if cfg.CatalogDir != "" {
		if err := catalog.LoadDir(cfg.CatalogDir); err != nil {
			return nil, fmt.Errorf("discovery: load catalog overlay: %w", err)
		}
	}
	s.catalog = catalog

	s.telemetry, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Telemetry.Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Registerer:     s.registry,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	s.client = o.client
	if !o.clientOK {
		s.client = s.buildClient()
	}
	s.driver = s.buildDriver()

	s.mailer = o.mailer
	if s.mailer == nil {
		s.mailer = s.buildMailer()
	}

	gen, err := report.NewGenerator(report.Config{
		Client:            s.client,
		Mailer:            s.mailer,
		Recipient:         cfg.Mail.Recipient,
		Catalog:           catalog,
		ProposalMaxTokens: cfg.LLM.ProposalMaxTokens,
		Meter:             s.telemetry.Meter("nova.discovery.report"),
	})
	if err != nil {
		_ = s.telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("discovery: %w", err)
	}
	s.dispatcher = report.NewDispatcher(gen, cfg.Mail.Workers, cfg.Mail.QueueSize)

	metrics := observability.NewMetrics(s.registry)
	s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, metrics)

	router, err := s.buildRouter(metrics)
	if err != nil {
		s.dispatcher.Close()
		_ = s.telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("discovery: %w", err)
	}
	s.router = router

	for _, feature := range cfg.Degraded() {
		s.logger.Warn("Running in degraded mode", "feature", feature)
	}
	s.logger.Info("Discovery service configured",
		"driver", s.driver.Name(),
		"driver_ready", s.driver.Ready(),
		"reports_configured", gen.Configured(),
		"strict", cfg.Strict,
		"version", Version)
	return s, nil
}

func (s *Service) buildClient() llm.Client {
	client, err := llm.New(s.cfg.LLM.Client())
	switch {
	case err == nil:
		return client
	case !errors.Is(err, llm.ErrNotConfigured):
		s.logger.Error("Failed to create completion client", "error", err)
	case s.cfg.Driver == config.DriverModel:
		s.logger.Warn("Completion service not configured; chat will answer with an apology", "error", err)
	default:
		// Scripted and offline drivers only need the client for proposals.
		s.logger.Info("Completion service not configured; proposals will be skipped", "error", err)
	}
	return nil
}

func (s *Service) buildDriver() conversation.Driver {
	switch s.cfg.Driver {
	case config.DriverScripted:
		return conversation.NewScriptedDriver(s.catalog, s.cfg.CalendarURL)
	case config.DriverOffline:
		return conversation.NewOfflineDriver()
	default:
		return conversation.NewModelDriver(conversation.ModelDriverConfig{
			Client:       s.client,
			Catalog:      s.catalog,
			HistoryLimit: s.cfg.LLM.HistoryLimit,
			MaxTokens:    s.cfg.LLM.MaxTokens,
		})
	}
}

func (s *Service) buildMailer() mail.Mailer {
	if s.cfg.Mail.DryRun {
		s.logger.Info("Mail dry-run enabled; reports are written to the log")
		return mail.NewLogMailer(s.logger, nil)
	}
	return mail.New(s.cfg.Mail.Mailer())
}

func (s *Service) buildRouter(metrics *observability.Metrics) (*gin.Engine, error) {
	router := gin.New()
	// Nil trusts no proxy, so ClientIP is the peer address and a forged
	// X-Forwarded-For cannot pick its own rate-limit bucket.
	if err := router.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery(), otelgin.Middleware(ServiceName))

	routes.SetupRoutes(router, routes.Deps{
		Chat: handlers.ChatDeps{
			Driver:   s.driver,
			Detector: signals.NewDetector(s.catalog),
			Catalog:  s.catalog,
			Metrics:  metrics,
			Strict:   s.cfg.Strict,
			Redactor: redact.Default(),
		},
		Report: handlers.ReportDeps{
			Dispatcher: s.dispatcher,
			Catalog:    s.catalog,
			Metrics:    metrics,
			Redactor:   redact.Default(),
		},
		Health:             s.Status,
		RateLimiter:        s.rateLimiter,
		Gatherer:           s.registry,
		TestEmail:          s.cfg.Mail.EnableTestEmail,
		TestEmailMailer:    s.mailer,
		TestEmailRecipient: s.cfg.Mail.Recipient,
		Logger:             s.logger,
	})
	return router, nil
}

// Router returns the HTTP handler. Exposed for tests and embedding.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Status reports which external services are usable. It never includes
// configuration values.
func (s *Service) Status() datatypes.ServiceStatus {
	return datatypes.ServiceStatus{
		CompletionService: s.client != nil,
		MailService:       s.mailer.Configured(),
		ReportsConfigured: s.dispatcher.Generator().Configured(),
	}
}

// Addr returns the listen address derived from the port.
func (s *Service) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(s.cfg.Port))
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// # Description
//
//  1. Starts the rate limiter sweeper and, when configured, the catalog
//     overlay watcher.
//  2. Serves until ctx is done or the listener fails.
//  3. Stops accepting requests and waits up to ShutdownTimeout for open
//     streams, then drains queued reports and flushes telemetry.
//
// # Outputs
//
//   - error: Listener failures. A clean shutdown returns nil.
func (s *Service) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("discovery: listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, listener net.Listener) error {
	err := errors.New("discovery: service already ran")
	s.runOnce.Do(func() {
		err = s.serve(ctx, listener)
	})
	return err
}

func (s *Service) serve(ctx context.Context, listener net.Listener) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	go s.rateLimiter.Run(bgCtx)
	if s.cfg.CatalogDir != "" {
		go func() {
			if err := s.catalog.Watch(bgCtx, s.cfg.CatalogDir, s.logger); err != nil {
				s.logger.Warn("Catalog watcher stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("Discovery service listening", "addr", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("discovery: serve: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("Shutting down discovery service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Graceful shutdown incomplete", "error", err)
			_ = server.Close()
		}
		cancel()
	}

	s.close()
	return runErr
}

func (s *Service) close() {
	if !s.dispatcher.Wait(drainTimeout) {
		s.logger.Warn("Queued reports still running at shutdown")
	}
	s.dispatcher.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Warn("Telemetry shutdown failed", "error", err)
	}
}
