// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all audit routes with the router.
//
// Description:
//
//	Registers all /v1/audit/* endpoints with the given Gin router
//	group. The router group should already have any required
//	middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/audit/package - Audit one package version
//	POST /v1/audit/compare - Compare two versions of a package
//	GET  /v1/audit/history/*name - Recent audits for a package
//	GET  /v1/audit/health - Health check
//
// Example:
//
//	service := audit.NewService(audit.DefaultConfig())
//	handlers := audit.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	audit.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	auditGroup := rg.Group("/audit")
	{
		auditGroup.POST("/package", handlers.HandleAuditPackage)
		auditGroup.POST("/compare", handlers.HandleComparePackage)

		// Wildcard so scoped names (@scope/name) route correctly.
		auditGroup.GET("/history/*name", handlers.HandleHistory)

		auditGroup.GET("/health", handlers.HandleHealth)
	}
}
