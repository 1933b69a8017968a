package port

import (
	"fmt"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// EventKind enumerates the inbound events the widget understands.
type EventKind int

const (
	EventPortNames EventKind = iota
	EventRefresh
	EventState
	EventStats

	eventKindCount
)

// eventRoute ties a kind to the topic it is subscribed under and the callback
// name it arrives as.
type eventRoute struct {
	topic    string
	callback string
}

var eventRoutes = [eventKindCount]eventRoute{
	EventPortNames: {topic: protocol.TopicPortNames, callback: protocol.CallbackPortNames},
	EventRefresh:   {topic: protocol.TopicRefresh, callback: protocol.CallbackRefresh},
	EventState:     {topic: protocol.TopicState, callback: protocol.CallbackState},
	EventStats:     {topic: protocol.TopicStats, callback: protocol.CallbackStats},
}

// EventKinds returns every kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, eventKindCount)
	for k := EventKind(0); k < eventKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the callback name of the kind.
func (k EventKind) String() string {
	if k < 0 || k >= eventKindCount {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventRoutes[k].callback
}

// Topic returns the topic method subscribed for the kind.
func (k EventKind) Topic() string {
	if k < 0 || k >= eventKindCount {
		return ""
	}
	return eventRoutes[k].topic
}

// ParseEventKind maps a delivered callback name to its kind.
func ParseEventKind(method string) (EventKind, bool) {
	for k, r := range eventRoutes {
		if r.callback == method {
			return EventKind(k), true
		}
	}
	return 0, false
}

// eventHandler computes the next snapshot from the current one and the
// event payload. Handlers never touch the widget directly.
type eventHandler func(cur Snapshot, payload any) (Snapshot, error)

// handlers is indexed by EventKind. Its fixed length keeps it in step with
// the enum; TestHandlersCoverEveryKind checks no entry is nil.
var handlers = [eventKindCount]eventHandler{
	EventPortNames: replacePorts,
	EventRefresh:   replacePorts,
	EventState:     replaceState,
	EventStats:     replaceStats,
}

// replacePorts accepts only a list whose elements are all strings. Scalars
// and mixed lists are rejected rather than coerced.
func replacePorts(cur Snapshot, payload any) (Snapshot, error) {
	var ports []string
	switch v := payload.(type) {
	case nil:
	case []string:
		ports = v
	case []any:
		ports = make([]string, len(v))
		for i, e := range v {
			name, ok := e.(string)
			if !ok {
				return cur, errors.New(errors.ErrPayload,
					fmt.Sprintf("Port list element %d is %T, not a port name", i, e), "")
			}
			ports[i] = name
		}
	default:
		return cur, errors.New(errors.ErrPayload,
			fmt.Sprintf("Port list payload is %T, not a list of port names", payload), "")
	}
	return cur.withPorts(ports), nil
}

func replaceState(cur Snapshot, payload any) (Snapshot, error) {
	if payload == nil {
		return cur, errors.New(errors.ErrPayload, "onState arrived without a state record", "")
	}
	var svc protocol.SerialState
	if err := bus.Decode(payload, &svc); err != nil {
		return cur, errors.WrapWithCode(err, errors.ErrPayload,
			"State payload is not a service state record", "")
	}
	if svc.Name == "" {
		svc.Name = cur.Service.Name
	}
	return cur.withService(svc), nil
}

func replaceStats(cur Snapshot, payload any) (Snapshot, error) {
	return cur.withStats(payload), nil
}
