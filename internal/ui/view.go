package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/portctl/internal/port"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(ColorMuted)
	connectedStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	idleStyle      = lipgloss.NewStyle().Foreground(ColorMuted)
	actionStyle    = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().Foreground(ColorInfo).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(ColorError)
	okStyle     = lipgloss.NewStyle().Foreground(ColorInfo)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorInfo).
			Padding(1, 2)
	helpKeyStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true).Width(12)
)

// HelpBinding is one keyboard shortcut in the help overlay.
type HelpBinding struct {
	Key  string
	Desc string
}

var helpBindings = []HelpBinding{
	{Key: "enter / c", Desc: "Connect or disconnect"},
	{Key: "r", Desc: "Refresh port list"},
	{Key: "s", Desc: "Port settings"},
	{Key: "y", Desc: "Copy port name"},
	{Key: "up / k", Desc: "Select previous port"},
	{Key: "down / j", Desc: "Select next port"},
	{Key: "?", Desc: "Toggle this help"},
	{Key: "q / Ctrl+C", Desc: "Quit"},
}

// View implements tea.Model.
func (m PortView) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(renderHeader(m.actions.Name(), m.snap))
	b.WriteString("\n\n")
	b.WriteString(actionStyle.Render(m.snap.Display.ActionLabel))
	if m.pending != "" {
		b.WriteString(" " + okStyle.Render(SymbolWaiting+" "+m.pending))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderPorts())
	if stats := renderStats(m.snap.Stats); stats != "" {
		b.WriteString("\n" + stats + "\n")
	}
	if m.status != "" {
		style := okStyle
		if m.failed {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}
	b.WriteString("\n" + labelStyle.Render("enter connect · r refresh · s settings · y copy · ? help · q quit"))
	return b.String()
}

func (m PortView) renderPorts() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Ports") + "\n")
	if len(m.snap.PossiblePorts) == 0 {
		b.WriteString(labelStyle.Render("  none reported yet") + "\n")
		return b.String()
	}
	for i, p := range m.snap.PossiblePorts {
		cursor := "  "
		if i == m.selected {
			cursor = cursorStyle.Render(SymbolCursor) + " "
		}
		line := p
		if m.snap.Display.Connected && p == m.snap.Display.Port {
			line = connectedStyle.Render(p + " (connected)")
		}
		b.WriteString(cursor + line + "\n")
	}
	return b.String()
}

func (m PortView) renderHelp() string {
	lines := []string{titleStyle.Render("Keyboard Shortcuts"), ""}
	for _, h := range helpBindings {
		lines = append(lines, helpKeyStyle.Render(h.Key)+labelStyle.Render(h.Desc))
	}
	lines = append(lines, "", labelStyle.Render("Press ? to close"))
	box := helpBoxStyle.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderHeader renders "name  ● connected  /dev/ttyUSB0".
func renderHeader(name string, s port.Snapshot) string {
	state := idleStyle.Render(ConnectionSymbol(false) + " " + port.IconDisconnected)
	if s.Display.Connected {
		state = connectedStyle.Render(ConnectionSymbol(true) + " " + port.IconConnected)
	}
	portName := s.Display.Port
	if portName == "" {
		portName = labelStyle.Render("no port")
	}
	return fmt.Sprintf("%s  %s  %s", titleStyle.Render(name), state, portName)
}

// renderStats flattens a stats payload into sorted key=value pairs. Payloads
// that are not objects print as-is.
func renderStats(stats any) string {
	if stats == nil {
		return ""
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return labelStyle.Render(fmt.Sprintf("stats %v", stats))
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return labelStyle.Render("stats " + string(raw))
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return labelStyle.Render("stats " + strings.Join(parts, " "))
}

// RenderStatic renders a snapshot for non-interactive output.
func RenderStatic(name string, s port.Snapshot) string {
	var b strings.Builder
	b.WriteString(renderHeader(name, s) + "\n")
	b.WriteString(labelStyle.Render("action ") + s.Display.ActionLabel + "\n")
	if len(s.PossiblePorts) == 0 {
		b.WriteString(labelStyle.Render("ports  ") + "none reported\n")
	} else {
		b.WriteString(labelStyle.Render("ports  ") + strings.Join(s.PossiblePorts, ", ") + "\n")
	}
	if stats := renderStats(s.Stats); stats != "" {
		b.WriteString(stats + "\n")
	}
	return b.String()
}
