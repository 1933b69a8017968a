package ui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/portctl/internal/port"
)

// Bridge forwards widget state changes into a Bubble Tea program via
// program.Send(). Changes that arrive before a program is attached are
// dropped; the view reads the widget once on Init to cover them.
type Bridge struct {
	program atomic.Pointer[tea.Program]
}

// NewBridge creates a bridge with no program attached.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes later state changes to program.
func (b *Bridge) Attach(program *tea.Program) {
	b.program.Store(program)
}

// StateChanged is the widget's state-changed hook. It blocks until the
// program accepts the message or has exited.
func (b *Bridge) StateChanged(s port.Snapshot) {
	if p := b.program.Load(); p != nil {
		p.Send(SnapshotMsg{Snapshot: s})
	}
}
