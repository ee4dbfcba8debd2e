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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/depscope/pkg/ux"
	"github.com/AleutianAI/depscope/services/audit"
)

var jsonOutput bool

var auditCmd = &cobra.Command{
	Use:   "audit <package> [version]",
	Short: "Audit one npm package version",
	Long: `Audits an npm package for supply-chain risk and prints the scored
result. Omitting the version audits the "latest" dist-tag.

Examples:

  depscope audit lodash
  depscope audit lodash 4.17.11
  depscope audit @babel/core --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAudit,
}

var compareCmd = &cobra.Command{
	Use:   "compare <package> <old-version> <new-version>",
	Short: "Compare the risk of two versions of a package",
	Long: `Audits two versions of the same package and reports the score delta
and vulnerability movement between them.

Example:

  depscope compare lodash 4.17.11 4.17.21`,
	Args: cobra.ExactArgs(3),
	RunE: runCompare,
}

func init() {
	auditCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the raw JSON response")
	compareCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the raw JSON response")
}

func runAudit(cmd *cobra.Command, args []string) error {
	logger, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service := audit.NewService(cfg)
	req := audit.AuditRequest{Name: args[0]}
	if len(args) == 2 {
		req.Version = args[1]
	}

	resp, err := service.Audit(cmd.Context(), req)
	if err != nil {
		return auditCmdError(err)
	}

	if jsonOutput {
		return printJSON(resp)
	}
	renderAudit(resp)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service := audit.NewService(cfg)
	resp, err := service.Compare(cmd.Context(), audit.CompareRequest{
		Name:       args[0],
		OldVersion: args[1],
		NewVersion: args[2],
	})
	if err != nil {
		return auditCmdError(err)
	}

	if jsonOutput {
		return printJSON(resp)
	}
	renderCompare(resp)
	return nil
}

// auditCmdError turns service errors into friendly CLI messages while
// keeping a non-zero exit.
func auditCmdError(err error) error {
	switch {
	case errors.Is(err, audit.ErrPackageNotFound):
		ux.Errorf("package not found in the registry")
	case errors.Is(err, audit.ErrVersionNotFound):
		ux.Errorf("version not found for this package")
	case errors.Is(err, audit.ErrInvalidPackageName):
		ux.Errorf("invalid package name")
	case errors.Is(err, audit.ErrInvalidVersion):
		ux.Errorf("invalid version")
	case errors.Is(err, audit.ErrRegistryUnavailable):
		ux.Errorf("registry unavailable, try again later")
	default:
		ux.Errorf("audit failed: %v", err)
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
