package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/portctl/internal/errors"
)

// ServiceInfo describes a registered service for the picker.
type ServiceInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Port      string `json:"port,omitempty"`
	Connected bool   `json:"connected"`
}

// serviceItem implements list.Item for the Bubbles list component.
type serviceItem struct {
	svc ServiceInfo
}

func (i serviceItem) Title() string {
	return i.svc.Name
}

func (i serviceItem) Description() string {
	var parts []string
	if i.svc.Type != "" {
		parts = append(parts, i.svc.Type)
	}
	if i.svc.Port != "" {
		state := "last used"
		if i.svc.Connected {
			state = "connected"
		}
		parts = append(parts, ConnectionSymbol(i.svc.Connected)+" "+i.svc.Port+" ("+state+")")
	}
	return strings.Join(parts, " | ")
}

func (i serviceItem) FilterValue() string {
	return i.svc.Name + " " + i.svc.Type + " " + i.svc.Port
}

// ServicePickerModel is a Bubble Tea model for choosing a service.
type ServicePickerModel struct {
	list     list.Model
	selected *ServiceInfo
	quitting bool
}

type servicePickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var servicePickerKeys = servicePickerKeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewServicePickerModel creates a picker over services.
func NewServicePickerModel(services []ServiceInfo) ServicePickerModel {
	items := make([]list.Item, len(services))
	for i, s := range services {
		items[i] = serviceItem{svc: s}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorSecondary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Select a serial service"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)
	l.Styles.HelpStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	return ServicePickerModel{list: l}
}

// Init implements tea.Model.
func (m ServicePickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ServicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the list own keys while the filter prompt is open.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, servicePickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(serviceItem); ok {
				m.selected = &item.svc
			}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, servicePickerKeys.Quit):
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ServicePickerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.list.View()
}

// Selected returns the chosen service, or nil if cancelled.
func (m ServicePickerModel) Selected() *ServiceInfo {
	return m.selected
}

// PickService shows an interactive picker and returns the chosen service,
// or nil when the user cancels.
func PickService(services []ServiceInfo) (*ServiceInfo, error) {
	return PickServiceWithIO(services, os.Stdout, os.Stdin)
}

// PickServiceWithIO is PickService with custom I/O.
func PickServiceWithIO(services []ServiceInfo, output io.Writer, input io.Reader) (*ServiceInfo, error) {
	if len(services) == 0 {
		return nil, errors.New(errors.ErrServiceNotFound,
			"No services registered on the bus",
			"Start one with 'portctl serve' first")
	}
	if len(services) == 1 {
		return &services[0], nil
	}

	p := tea.NewProgram(
		NewServicePickerModel(services),
		tea.WithOutput(output),
		tea.WithInput(input),
	)
	final, err := p.Run()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrUI,
			"Service picker failed",
			"Pass the service name as an argument instead")
	}
	if m, ok := final.(ServicePickerModel); ok {
		return m.Selected(), nil
	}
	return nil, nil
}
