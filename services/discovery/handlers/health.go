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
	"time"

	"github.com/AleutianAI/nova-discovery/services/discovery/datatypes"
	"github.com/gin-gonic/gin"
)

// StatusFunc reports which dependencies are configured right now.
type StatusFunc func() datatypes.ServiceStatus

// HandleHealth serves GET /api/health. The body holds booleans only.
func HandleHealth(status StatusFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  status(),
		})
	}
}
