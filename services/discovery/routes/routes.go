// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package routes

import (
	"log/slog"

	"github.com/AleutianAI/nova-discovery/services/discovery/handlers"
	"github.com/AleutianAI/nova-discovery/services/discovery/middleware"
	"github.com/AleutianAI/nova-discovery/services/mail"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps collects everything the routes need.
type Deps struct {
	Chat   handlers.ChatDeps
	Report handlers.ReportDeps
	Health handlers.StatusFunc

	// RateLimiter guards /api. Nil disables rate limiting.
	RateLimiter *middleware.RateLimiter

	// Gatherer backs /metrics. Nil omits the route.
	Gatherer prometheus.Gatherer

	// TestEmail enables GET /api/discovery/test-email.
	TestEmail          bool
	TestEmailMailer    mail.Mailer
	TestEmailRecipient string

	Logger *slog.Logger
}

// SetupRoutes registers middleware and endpoints on router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(middleware.SecurityHeaders(), middleware.RequestID(deps.Logger))

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}
	{
		api.GET("/health", handlers.HandleHealth(deps.Health))
		api.POST("/chat", handlers.HandleChat(deps.Chat))
		api.GET("/chat/ws", handlers.HandleChatWebSocket(deps.Chat))

		discovery := api.Group("/discovery")
		{
			discovery.POST("/report", handlers.HandleReport(deps.Report))
			if deps.TestEmail {
				discovery.GET("/test-email", handlers.HandleTestEmail(deps.TestEmailMailer, deps.TestEmailRecipient, deps.Report.Metrics))
			}
		}
	}
}
