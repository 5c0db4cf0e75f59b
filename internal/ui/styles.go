// Package ui provides terminal styling for tempo CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/tempo/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	// CategoryStyle for section headers - bold with accent color
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	// FocusStyle marks items in the focus band.
	FocusStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
)

// Status icons
const (
	IconActive = "○"
	IconDone   = "✓"
	IconNA     = "-"
	IconWarn   = "⚠"
	IconFail   = "✗"
	IconFocus  = "★"
)

const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderCategory renders a section header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderStatusIcon renders the icon for a per-window status.
func RenderStatusIcon(s types.ViewStatus) string {
	switch s {
	case types.ViewDone:
		return PassStyle.Render(IconDone)
	case types.ViewNA:
		return MutedStyle.Render(IconNA)
	default:
		return IconActive
	}
}

// RenderPriority renders "P3" style labels; focus-band priorities stand out.
func RenderPriority(p int) string {
	label := "P" + itoa(p)
	if p >= types.MinPriority && p <= types.FocusBandMax {
		return FocusStyle.Render(label)
	}
	if p == types.DefaultPriority {
		return MutedStyle.Render(label)
	}
	return label
}

// RenderPeriod renders a period kind name.
func RenderPeriod(k types.PeriodKind) string {
	if k.IsCalendar() {
		return AccentStyle.Render(string(k))
	}
	return MutedStyle.Render(string(k))
}
