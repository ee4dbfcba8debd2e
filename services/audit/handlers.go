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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handlers contains the HTTP handlers for the audit service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAuditPackage handles POST /v1/audit/package.
//
// Description:
//
//	Runs a full risk audit for one package version: provider fan-out,
//	signal analysis, and scoring. A degraded audit (one or more
//	providers unavailable) is still a 200 with availability flags set.
//
// Request Body:
//
//	AuditRequest
//
// Response:
//
//	200 OK: AuditResponse
//	404 Not Found: Package or version does not exist
//	422 Unprocessable Entity: Invalid package name or version
//	502 Bad Gateway: Registry unavailable
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleAuditPackage(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAuditPackage")

	var req AuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Auditing package", "package", req.Name, "version", req.Version)

	resp, err := h.svc.Audit(c.Request.Context(), req)
	if err != nil {
		h.writeAuditError(c, logger, err, requestID)
		return
	}

	resp.RequestID = requestID
	logger.Info("Audit complete",
		"package", req.Name,
		"resolved_version", resp.ResolvedVersion,
		"risk_score", resp.RiskScore,
		"risk_level", resp.RiskLevel,
		"degraded", resp.Degraded,
	)
	c.JSON(http.StatusOK, resp)
}

// HandleComparePackage handles POST /v1/audit/compare.
//
// Description:
//
//	Audits two versions of the same package and reports the score
//	delta plus fixed and introduced vulnerabilities.
//
// Request Body:
//
//	CompareRequest
//
// Response:
//
//	200 OK: CompareResponse
//	404 Not Found: Package or either version does not exist
//	422 Unprocessable Entity: Invalid name or versions
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleComparePackage(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleComparePackage")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Comparing versions",
		"package", req.Name, "old", req.OldVersion, "new", req.NewVersion)

	resp, err := h.svc.Compare(c.Request.Context(), req)
	if err != nil {
		h.writeAuditError(c, logger, err, requestID)
		return
	}

	resp.RequestID = requestID
	c.JSON(http.StatusOK, resp)
}

// HandleHistory handles GET /v1/audit/history/*name.
//
// Response:
//
//	200 OK: []HistoryEntry (empty when history is disabled)
//	400 Bad Request: Missing package name
//	500 Internal Server Error: Storage error
func (h *Handlers) HandleHistory(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleHistory")

	// Wildcard params keep their leading slash; scoped package names
	// keep their own.
	name := c.Param("name")
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Package name is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	entries, err := h.svc.History(name, limit)
	if err != nil {
		logger.Error("Failed to read history", "package", name, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to read audit history",
			Code:    "HISTORY_FAILED",
			Details: requestID,
		})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// HandleHealth handles GET /v1/audit/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

// writeAuditError maps service errors onto HTTP responses. Internal
// errors are logged in full but surfaced only as a generic message
// plus the request ID.
func (h *Handlers) writeAuditError(c *gin.Context, logger *slog.Logger, err error, requestID string) {
	switch {
	case errors.Is(err, ErrPackageNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "package_not_found",
			Code:  "PACKAGE_NOT_FOUND",
		})
	case errors.Is(err, ErrVersionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "version_not_found",
			Code:  "VERSION_NOT_FOUND",
		})
	case errors.Is(err, ErrInvalidPackageName):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "invalid_package_name",
			Code:  "INVALID_PACKAGE_NAME",
		})
	case errors.Is(err, ErrInvalidVersion):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: "invalid_version",
			Code:  "INVALID_VERSION",
		})
	case errors.Is(err, ErrRegistryUnavailable):
		logger.Warn("Registry unavailable", "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "registry_unavailable",
			Code:  "REGISTRY_UNAVAILABLE",
		})
	default:
		logger.Error("Audit failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Audit failed",
			Code:    "AUDIT_FAILED",
			Details: requestID,
		})
	}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
