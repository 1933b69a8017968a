// Package port implements the port widget: a view binding for one named
// serial-port service on the bus.
//
// The widget resolves the service once, subscribes to four of its topic
// methods and mirrors whatever the service publishes into an immutable
// Snapshot. User intent (connect, refresh) is forwarded to the service as
// fire-and-forget sends; the effect shows up later, if at all, as an onState
// or onRefresh event. Every committed snapshot is handed to the
// OnStateChanged hook, which is how a view learns it must redraw.
//
// Disconnect and Settings exist for the view contract but do nothing.
package port
