// Package protocol defines the message-bus contract of the serial-port
// service: request and topic method names, the callback naming rule, and
// the state and stats records the service publishes.
package protocol

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Request methods understood by the serial service.
const (
	MethodConnect      = "connect"
	MethodDisconnect   = "disconnect"
	MethodRefresh      = "refresh"
	MethodGetPortNames = "getPortNames"
)

// Topic methods the serial service publishes under. Subscribers register
// against these; refresh doubles as a request and a topic.
const (
	TopicPortNames = "publishPortNames"
	TopicRefresh   = MethodRefresh
	TopicState     = "publishState"
	TopicStats     = "publishStats"
)

// Callback method names carried by delivered events.
const (
	CallbackPortNames = "onPortNames"
	CallbackRefresh   = "onRefresh"
	CallbackState     = "onState"
	CallbackStats     = "onStats"
)

// ServiceType identifies serial services in the registry.
const ServiceType = "Serial"

// Parity names accepted by connect.
const (
	ParityNone  = "none"
	ParityOdd   = "odd"
	ParityEven  = "even"
	ParityMark  = "mark"
	ParitySpace = "space"
)

// CallbackName maps a topic method to the callback name its events are
// delivered under: publishX becomes onX, anything else gets an "on" prefix
// and a capitalized first letter.
func CallbackName(topicMethod string) string {
	if rest, ok := strings.CutPrefix(topicMethod, "publish"); ok && rest != "" {
		return "on" + rest
	}
	if topicMethod == "" {
		return "on"
	}
	r, size := utf8.DecodeRuneInString(topicMethod)
	return "on" + string(unicode.ToUpper(r)) + topicMethod[size:]
}

// SerialState is the full state record of a serial service.
// An empty ConnectedPortName means the service is not connected.
type SerialState struct {
	Name              string  `json:"name"`
	Type              string  `json:"type,omitempty"`
	ConnectedPortName string  `json:"connectedPortName,omitempty"`
	LastPortName      string  `json:"lastPortName,omitempty"`
	Rate              int     `json:"rate,omitempty"`
	DataBits          int     `json:"dataBits,omitempty"`
	StopBits          float64 `json:"stopBits,omitempty"`
	Parity            string  `json:"parity,omitempty"`
}

// Connected reports whether a port is currently connected.
func (s SerialState) Connected() bool {
	return s.ConnectedPortName != ""
}

// SerialStats are the counters a serial service publishes periodically.
type SerialStats struct {
	Connects    int       `json:"connects"`
	Disconnects int       `json:"disconnects"`
	Refreshes   int       `json:"refreshes"`
	PortCount   int       `json:"portCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
