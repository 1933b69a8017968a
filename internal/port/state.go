package port

import (
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// Icon names shown for the connection state.
const (
	IconConnected    = "connected"
	IconDisconnected = "disconnected"
)

// Action labels for the connect/disconnect affordance.
const (
	ActionConnect    = "connect"
	ActionDisconnect = "disconnect"
)

// ConnectionState is the part of the service state the widget displays.
// Empty strings mean absent.
type ConnectionState struct {
	ConnectedPortName string
	LastPortName      string
}

// ConnectionFrom extracts the connection fields of a service state record.
func ConnectionFrom(s protocol.SerialState) ConnectionState {
	return ConnectionState{
		ConnectedPortName: s.ConnectedPortName,
		LastPortName:      s.LastPortName,
	}
}

// Display holds the derived, view-ready connection fields.
type Display struct {
	Connected   bool   `json:"isConnected"`
	Icon        string `json:"isConnectedImage"`
	ActionLabel string `json:"connectText"`
	Port        string `json:"portName"`
}

// Derive computes the display fields from a connection state alone.
func Derive(c ConnectionState) Display {
	if c.ConnectedPortName != "" {
		return Display{
			Connected:   true,
			Icon:        IconConnected,
			ActionLabel: ActionDisconnect,
			Port:        c.ConnectedPortName,
		}
	}
	return Display{
		Connected:   false,
		Icon:        IconDisconnected,
		ActionLabel: ActionConnect,
		Port:        c.LastPortName,
	}
}

// Snapshot is one committed widget state. Values handed out by the widget
// are copies; mutating them does not affect the widget.
type Snapshot struct {
	// Seq counts committed events; later snapshots have larger values.
	Seq           uint64
	Service       protocol.SerialState
	Connection    ConnectionState
	Display       Display
	PossiblePorts []string
	// Stats mirrors the last onStats payload verbatim.
	Stats any
}

func newSnapshot(svc protocol.SerialState) Snapshot {
	conn := ConnectionFrom(svc)
	return Snapshot{
		Service:    svc,
		Connection: conn,
		Display:    Derive(conn),
	}
}

// withService replaces the service record and everything derived from it.
func (s Snapshot) withService(svc protocol.SerialState) Snapshot {
	conn := ConnectionFrom(svc)
	s.Service = svc
	s.Connection = conn
	s.Display = Derive(conn)
	return s
}

func (s Snapshot) withPorts(ports []string) Snapshot {
	s.PossiblePorts = append(make([]string, 0, len(ports)), ports...)
	return s
}

func (s Snapshot) withStats(stats any) Snapshot {
	s.Stats = stats
	return s
}

// clone returns a copy that shares no mutable slices with s.
func (s Snapshot) clone() Snapshot {
	if s.PossiblePorts != nil {
		s.PossiblePorts = append([]string(nil), s.PossiblePorts...)
	}
	return s
}

// Bindings returns the view-facing fields keyed by their template names.
// The connect, refresh and settings actions are methods on Widget.
func (s Snapshot) Bindings() map[string]any {
	return map[string]any{
		"service":          s.Service,
		"isConnected":      s.Display.Connected,
		"isConnectedImage": s.Display.Icon,
		"connectText":      s.Display.ActionLabel,
		"portName":         s.Display.Port,
		"possiblePorts":    append([]string(nil), s.PossiblePorts...),
		"stats":            s.Stats,
	}
}
