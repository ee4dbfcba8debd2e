// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command depscope audits npm packages for supply-chain risk, either
// as a one-shot CLI or as an HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/depscope/pkg/logging"
	"github.com/AleutianAI/depscope/services/audit"
)

var (
	rootCmd = &cobra.Command{
		Use:   "depscope",
		Short: "A dependency risk audit engine for npm packages",
		Long: `Depscope audits npm packages for supply-chain risk: typosquatting,
malicious install scripts, abandoned maintainership, known CVEs, and
reputation anomalies. Run one-shot audits from the CLI or serve the
audit API over HTTP.`,
	}

	// Global flags
	configPath string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the depscope version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("depscope", audit.ServiceVersion)
	},
}

// loadConfig resolves the effective configuration for any command.
func loadConfig() (audit.Config, error) {
	return audit.LoadConfig(configPath)
}

// setupLogging installs the process logger. Serve mode wants JSON
// lines; interactive commands keep text on stderr.
func setupLogging(json bool) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		JSON:    json,
		Service: "depscope",
	})
	if err != nil {
		return nil, err
	}
	logger.InstallDefault()
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
