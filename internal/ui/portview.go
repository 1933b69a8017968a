package ui

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/port"
)

// Actions is what the port view drives. *port.Widget implements it.
type Actions interface {
	Name() string
	Snapshot() port.Snapshot
	Connect(ctx context.Context, portName string, rate, dataBits int, stopBits float64, parity string) error
	Disconnect()
	Refresh(ctx context.Context) error
	Settings()
}

// SnapshotMsg carries a committed widget state into the program.
type SnapshotMsg struct {
	Snapshot port.Snapshot
}

// actionResultMsg reports how a request the user triggered went.
type actionResultMsg struct {
	action string
	err    error
}

// PortView is the Bubble Tea model for one serial port widget.
type PortView struct {
	ctx     context.Context
	actions Actions
	serial  config.SerialConfig
	clip    func(string) error

	snap     port.Snapshot
	selected int
	pending  string
	status   string
	failed   bool
	showHelp bool
	quitting bool
	width    int
	height   int
}

// NewPortView creates the view for a widget. serial supplies the parameters
// sent with connect.
func NewPortView(ctx context.Context, actions Actions, serial config.SerialConfig) PortView {
	m := PortView{
		ctx:     ctx,
		actions: actions,
		serial:  serial,
		clip:    writeClipboard,
		snap:    actions.Snapshot(),
		width:   80,
		height:  24,
	}
	m.selectDisplayedPort()
	return m
}

// Init implements tea.Model. It re-reads the widget, since events committed
// before the program started never reach the bridge, and asks for a fresh
// port list once.
func (m PortView) Init() tea.Cmd {
	return tea.Batch(m.snapshotCmd(), m.refreshCmd())
}

// Update implements tea.Model.
func (m PortView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if _, cmd := m.HandleKeyMsg(msg); cmd != nil {
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case actionResultMsg:
		if m.pending == msg.action {
			m.pending = ""
		}
		if msg.err != nil {
			m.setStatus(msg.action+" failed: "+errors.Summary(msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("%s sent", msg.action), false)
		}
		return m, nil
	}

	return m, nil
}

// applySnapshot ignores snapshots older than the one on screen. Bridge
// deliveries arrive in commit order, so only the startup read from Init can
// be older than what is already shown.
func (m *PortView) applySnapshot(s port.Snapshot) {
	if s.Seq < m.snap.Seq {
		return
	}
	prevPorts := m.snap.PossiblePorts
	m.snap = s
	if !slices.Equal(prevPorts, s.PossiblePorts) {
		m.selectDisplayedPort()
	}
	m.clampSelection()
}

// selectDisplayedPort moves the cursor onto the displayed port when it is in
// the list.
func (m *PortView) selectDisplayedPort() {
	if i := slices.Index(m.snap.PossiblePorts, m.snap.Display.Port); i >= 0 {
		m.selected = i
	}
	m.clampSelection()
}

func (m *PortView) clampSelection() {
	n := len(m.snap.PossiblePorts)
	switch {
	case n == 0:
		m.selected = 0
	case m.selected >= n:
		m.selected = n - 1
	case m.selected < 0:
		m.selected = 0
	}
}

func (m *PortView) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// Snapshot returns the state currently rendered.
func (m PortView) Snapshot() port.Snapshot {
	return m.snap
}

// SelectedPort returns the port under the cursor, falling back to the
// displayed port when the list is empty.
func (m PortView) SelectedPort() string {
	if len(m.snap.PossiblePorts) > 0 {
		return m.snap.PossiblePorts[m.selected]
	}
	return m.snap.Display.Port
}

// Status returns the last feedback line and whether it reports a failure.
func (m PortView) Status() (string, bool) {
	return m.status, m.failed
}

func (m PortView) snapshotCmd() tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: actions.Snapshot()}
	}
}

func (m PortView) refreshCmd() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		return actionResultMsg{action: "refresh", err: actions.Refresh(ctx)}
	}
}

func (m PortView) connectCmd(portName string) tea.Cmd {
	ctx, actions, p := m.ctx, m.actions, m.serial
	return func() tea.Msg {
		err := actions.Connect(ctx, portName, p.Rate, p.DataBits, p.StopBits, p.Parity)
		return actionResultMsg{action: "connect", err: err}
	}
}
