package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/port"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyAction      = "enter"
	KeyActionAlt   = "c"
	KeyRefresh     = "r"
	KeySettings    = "s"
	KeyCopy        = "y"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeyToggleHelp  = "?"
	KeyCloseHelp   = "esc"
)

// HandleKeyMsg processes keyboard input and returns whether the key was
// handled and the command to run.
func (m *PortView) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCloseHelp {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyAction, KeyActionAlt:
		return true, m.runAction()

	case KeyRefresh:
		m.pending = "refresh"
		m.setStatus("refreshing ports", false)
		return true, m.refreshCmd()

	case KeySettings:
		m.actions.Settings()
		m.setStatus("settings are not available for this port", false)
		return true, nil

	case KeyCopy:
		p := m.snap.Display.Port
		if p == "" {
			m.setStatus("no port to copy", true)
			return true, nil
		}
		if err := m.clip(p); err != nil {
			m.setStatus("copy failed: "+errors.Summary(err), true)
			return true, nil
		}
		m.setStatus(fmt.Sprintf("copied %s", p), false)
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.snap.PossiblePorts)-1 {
			m.selected++
		}
		return true, nil
	}

	return false, nil
}

// runAction performs whatever the action label currently offers.
func (m *PortView) runAction() tea.Cmd {
	if m.snap.Display.ActionLabel == port.ActionDisconnect {
		m.actions.Disconnect()
		m.setStatus("disconnect is not available from this view", false)
		return nil
	}

	target := m.SelectedPort()
	if target == "" {
		m.setStatus("no port to connect to, press r to refresh", true)
		return nil
	}
	m.pending = "connect"
	m.setStatus(fmt.Sprintf("connecting to %s", target), false)
	return m.connectCmd(target)
}
