package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic colors for status indication. ANSI codes keep them readable on
// any terminal theme.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// spinnerColors is the cycle the spinner frame walks through.
var spinnerColors = []lipgloss.Color{ColorSecondary, ColorInfo, ColorSuccess, ColorInfo}

// DisableColors switches all rendering to plain text (for --no-color and
// NO_COLOR).
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
