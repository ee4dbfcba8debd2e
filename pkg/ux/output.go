// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the depscope CLI.
package ux

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Depscope color palette - deep ocean teals with severity accents.
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // borders, accents
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	// Severity colors, matching risk levels
	ColorCritical = lipgloss.Color("#E74C3C") // red
	ColorHigh     = lipgloss.Color("#E67E22") // orange
	ColorMedium   = lipgloss.Color("#F4D03F") // gold
	ColorLow      = lipgloss.Color("#2CD7C7") // bright teal
	ColorInfo     = lipgloss.Color("#5D8AA8") // steel blue
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box lipgloss.Style

	Critical lipgloss.Style
	High     lipgloss.Style
	Medium   lipgloss.Style
	Low      lipgloss.Style
	Info     lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning:   lipgloss.NewStyle().Foreground(ColorMedium),
	Error:     lipgloss.NewStyle().Foreground(ColorCritical),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),

	Critical: lipgloss.NewStyle().Bold(true).Foreground(ColorCritical),
	High:     lipgloss.NewStyle().Foreground(ColorHigh),
	Medium:   lipgloss.NewStyle().Foreground(ColorMedium),
	Low:      lipgloss.NewStyle().Foreground(ColorLow),
	Info:     lipgloss.NewStyle().Foreground(ColorInfo),
}

// SeverityStyle returns the style for a severity or risk-level string.
func SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "critical":
		return Styles.Critical
	case "high":
		return Styles.High
	case "medium":
		return Styles.Medium
	case "low":
		return Styles.Low
	default:
		return Styles.Info
	}
}

// IsInteractive reports whether stdout is a real terminal. Pipelines
// and CI get plain output.
func IsInteractive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Title prints a styled title line.
func Title(text string) {
	fmt.Println(Styles.Title.Render(text))
}

// Successf prints a success line with a check mark.
func Successf(format string, args ...any) {
	fmt.Println(Styles.Success.Render("✓ ") + fmt.Sprintf(format, args...))
}

// Warnf prints a warning line.
func Warnf(format string, args ...any) {
	fmt.Println(Styles.Warning.Render("⚠ ") + fmt.Sprintf(format, args...))
}

// Errorf prints an error line to stderr.
func Errorf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, Styles.Error.Render("✗ ")+fmt.Sprintf(format, args...))
}

// Mutedf prints a muted detail line.
func Mutedf(format string, args ...any) {
	fmt.Println(Styles.Muted.Render(fmt.Sprintf(format, args...)))
}
