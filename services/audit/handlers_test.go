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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleAuditPackage(t *testing.T) {
	t.Run("successful audit returns 200 with request id", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package",
			`{"name": "lodash", "version": "4.17.21"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		var resp AuditResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "lodash", resp.Package)
		assert.Equal(t, "4.17.21", resp.ResolvedVersion)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("missing package returns 404 with stable error token", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{registryStatus: http.StatusNotFound})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package", `{"name": "ghost-pkg"}`)
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "package_not_found", resp.Error)
	})

	t.Run("unknown version returns 404", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package",
			`{"name": "lodash", "version": "0.0.0-nope"}`)
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "version_not_found", resp.Error)
	})

	t.Run("invalid package name returns 422", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package",
			`{"name": "UPPERCASE-Not-Allowed"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_package_name", resp.Error)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package", `{not json`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing name field returns 400", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package", `{"version": "1.0.0"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("registry outage returns 502", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{registryStatus: http.StatusServiceUnavailable})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/package", `{"name": "lodash"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("caller request id is echoed", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		req := httptest.NewRequest(http.MethodPost, "/v1/audit/package",
			strings.NewReader(`{"name": "lodash"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-ID", "caller-supplied-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "caller-supplied-id", w.Header().Get("X-Request-ID"))
	})
}

func TestHandleComparePackage(t *testing.T) {
	t.Run("compare returns the diff", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{vulnBody: lodashVulnDoc})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/compare",
			`{"name": "lodash", "old_version": "4.17.11", "new_version": "4.17.21"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp CompareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Positive(t, resp.ScoreDelta)
		assert.Equal(t, []string{"GHSA-p6mc-m468-83gw"}, resp.FixedVulnerabilities)
	})

	t.Run("missing fields return 400", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodPost, "/v1/audit/compare", `{"name": "lodash"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	u := newUpstream(t, upstreamOverrides{})
	router := newTestRouter(newTestService(u))

	w := doJSON(router, http.MethodGet, "/v1/audit/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleHistory(t *testing.T) {
	t.Run("history disabled returns empty list", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodGet, "/v1/audit/history/lodash", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})

	t.Run("scoped package names route through the wildcard", func(t *testing.T) {
		u := newUpstream(t, upstreamOverrides{})
		router := newTestRouter(newTestService(u))

		w := doJSON(router, http.MethodGet, "/v1/audit/history/@babel/core", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
