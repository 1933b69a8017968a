package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner shows an animated line while a blocking step runs, such as
// reaching the bus or waiting for a service to register.
type Spinner struct {
	mu        sync.Mutex
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
	output    func(string)
	running   bool
	lastWidth int
}

// NewSpinner creates a spinner with the given label that prints to stdout.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		label:  label,
		output: func(s string) { fmt.Print(s) },
	}
}

// SetOutput redirects spinner output.
func (s *Spinner) SetOutput(fn func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = fn
}

// Start begins the animation. Calling Start on a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	s.render()
	go s.animate()
}

func (s *Spinner) stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan
}

// Success stops the spinner and prints a success line.
func (s *Spinner) Success() {
	s.finish(SpinnerSuccess)
}

// Fail stops the spinner and prints a failure line.
func (s *Spinner) Fail() {
	s.finish(SpinnerFailed)
}

func (s *Spinner) finish(state SpinnerState) {
	s.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	symbol, color := SymbolSuccess, ColorSuccess
	if state == SpinnerFailed {
		symbol, color = SymbolFail, ColorError
	}
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(time.Since(s.startTime)))

	s.clearLine()
	s.output(fmt.Sprintf("%s %s %s\n", lipgloss.NewStyle().Foreground(color).Render(symbol), s.label, timing))
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := lipgloss.NewStyle().Foreground(spinnerColors[(s.frame/2)%len(spinnerColors)])
	line := fmt.Sprintf("%s %s...", style.Render(spinnerFrames[s.frame]), s.label)

	s.clearLine()
	s.output("\r" + line)
	s.lastWidth = lipgloss.Width(line)
}

// clearLine must be called with s.mu held.
func (s *Spinner) clearLine() {
	if s.lastWidth > 0 {
		s.output("\r" + strings.Repeat(" ", s.lastWidth) + "\r")
		s.lastWidth = 0
	}
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
