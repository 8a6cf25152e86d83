// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
// Package middleware provides the gin middleware of the discovery service:
// security headers, per-client rate limiting and request ids.
package middleware

import (
	"github.com/gin-gonic/gin"
)

// securityHeaders are set on every response.
var securityHeaders = map[string]string{
	"X-DNS-Prefetch-Control": "on",
	"X-Frame-Options":        "SAMEORIGIN",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"X-XSS-Protection":       "1; mode=block",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

// SecurityHeaders sets the fixed browser hardening headers before the
// handler runs, so streamed responses carry them too.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		c.Next()
	}
}
