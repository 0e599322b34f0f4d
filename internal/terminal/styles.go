// Package terminal is the command-line front end: it prints sessions and
// summaries, feeds typed lines to the voice session as transcripts and
// speaks through an external command.
package terminal

import (
	"fmt"
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme is the palette shared by the printer and the markdown renderer.
type Theme struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color

	FgBase   color.Color
	FgMuted  color.Color
	FgSubtle color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color
}

// DefaultTheme is a dark palette with blue and cyan tones.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("#61afef"),
		Secondary: lipgloss.Color("#56b6c2"),
		Accent:    lipgloss.Color("#c678dd"),

		FgBase:   lipgloss.Color("#abb2bf"),
		FgMuted:  lipgloss.Color("#7f848e"),
		FgSubtle: lipgloss.Color("#5c6370"),

		Success: lipgloss.Color("#98c379"),
		Error:   lipgloss.Color("#e06c75"),
		Warning: lipgloss.Color("#e5c07b"),
	}
}

// Styles are the lipgloss styles used for non-markdown output.
type Styles struct {
	Title    lipgloss.Style
	Current  lipgloss.Style
	Row      lipgloss.Style
	Muted    lipgloss.Style
	Prompt   lipgloss.Style
	Notice   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Listen   lipgloss.Style
	Question lipgloss.Style
}

// NewStyles derives Styles from t.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Current:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Row:      lipgloss.NewStyle().Foreground(t.FgBase),
		Muted:    lipgloss.NewStyle().Foreground(t.FgMuted),
		Prompt:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Notice:   lipgloss.NewStyle().Foreground(t.Warning),
		Error:    lipgloss.NewStyle().Foreground(t.Error),
		Success:  lipgloss.NewStyle().Foreground(t.Success),
		Listen:   lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		Question: lipgloss.NewStyle().Foreground(t.Primary).Italic(true),
	}
}

func colorToHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
