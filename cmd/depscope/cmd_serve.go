// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/depscope/services/audit"
	"github.com/AleutianAI/depscope/services/audit/history"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the audit HTTP service",
	Long: `Starts the depscope HTTP service.

Endpoints:

  POST /v1/audit/package      - Audit one package version
  POST /v1/audit/compare      - Compare two versions of a package
  GET  /v1/audit/history/*name - Recent audits for a package
  GET  /v1/audit/health       - Health check
  GET  /metrics               - Prometheus metrics`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := setupLogging(true)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := initTelemetry(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			slog.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	opts := []audit.ServiceOption{}
	if cfg.HistoryDir != "" {
		store, err := history.Open(history.Options{
			Path: cfg.HistoryDir,
			TTL:  cfg.HistoryTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		opts = append(opts, audit.WithHistory(store))
		slog.Info("Audit history enabled", "dir", cfg.HistoryDir)
	}

	service := audit.NewService(cfg, opts...)
	handlers := audit.NewHandlers(service)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("depscope"))

	v1 := router.Group("/v1")
	audit.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting depscope server",
			"addr", cfg.ListenAddr, "version", audit.ServiceVersion)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
