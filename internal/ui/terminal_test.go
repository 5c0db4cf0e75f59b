package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestShouldUseColor(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		setNoColor    bool
		cliColor      string
		cliColorForce string
		wantColor     bool
	}{
		{
			name:       "NO_COLOR disables color",
			noColor:    "1",
			setNoColor: true,
			wantColor:  false,
		},
		{
			name:       "NO_COLOR empty string value still disables",
			setNoColor: true,
			wantColor:  false,
		},
		{
			name:      "CLICOLOR=0 disables color",
			cliColor:  "0",
			wantColor: false,
		},
		{
			name:          "CLICOLOR_FORCE enables color even in non-TTY",
			cliColorForce: "1",
			wantColor:     true,
		},
		{
			name:          "NO_COLOR takes precedence over CLICOLOR_FORCE",
			noColor:       "1",
			setNoColor:    true,
			cliColorForce: "1",
			wantColor:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetenv(t, "NO_COLOR")
			t.Setenv("CLICOLOR", tt.cliColor)
			t.Setenv("CLICOLOR_FORCE", tt.cliColorForce)
			if tt.setNoColor {
				t.Setenv("NO_COLOR", tt.noColor)
			}

			if got := ShouldUseColor(); got != tt.wantColor {
				t.Errorf("ShouldUseColor() = %v, want %v", got, tt.wantColor)
			}
		})
	}
}

func TestApplyColorProfile(t *testing.T) {
	prev := lipgloss.ColorProfile()
	defer lipgloss.SetColorProfile(prev)

	t.Setenv("NO_COLOR", "1")
	ApplyColorProfile()
	if got := lipgloss.ColorProfile(); got != termenv.Ascii {
		t.Errorf("profile with NO_COLOR = %v, want Ascii", got)
	}
	if got := RenderFail("x"); got != "x" {
		t.Errorf("RenderFail under Ascii = %q, want plain text", got)
	}

	unsetenv(t, "NO_COLOR")
	t.Setenv("CLICOLOR_FORCE", "1")
	ApplyColorProfile()
	if got := lipgloss.ColorProfile(); got == termenv.Ascii {
		t.Error("CLICOLOR_FORCE should select a color profile")
	}
}

func TestIsTerminal(t *testing.T) {
	// Under go test stdout is normally not a TTY; this only checks it doesn't panic.
	t.Logf("IsTerminal() = %v", IsTerminal())
	if w := TerminalWidth(80); w <= 0 {
		t.Errorf("TerminalWidth() = %d", w)
	}
}
