// Package ui renders portctl in the terminal.
//
// PortView is the Bubble Tea model for one port widget. A Bridge installed
// as the widget's state-changed hook forwards every committed snapshot into
// the running program, and RunPortView falls back to a one-shot static
// render when stdout is not a terminal.
//
// Keys in the port view:
//
//	enter / c   perform the action label (connect or disconnect)
//	r           refresh the port list
//	s           settings
//	y           copy the displayed port name
//	up/k down/j move the port cursor
//	?           toggle help
//	q / ctrl+c  quit
//
// Colors are ANSI codes so they follow the terminal theme. DisableColors
// switches to plain text for --no-color.
package ui
