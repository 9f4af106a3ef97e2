// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// --- lipgloss styles ---

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

type row struct {
	key   string
	value any
}

// renderReport lays rows out as an aligned key/value block under a title.
func renderReport(title string, rows []row) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.key))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-*s", width, r.key)))
		b.WriteString("  ")
		b.WriteString(fmt.Sprint(r.value))
	}
	return boxStyle.Render(b.String())
}

func status(ok bool) string {
	if ok {
		return successStyle.Render("ok")
	}
	return errorStyle.Render("mismatch")
}
