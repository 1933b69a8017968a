package port

import (
	"context"
	"fmt"
	"sync"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// Widget mirrors one named serial service.
type Widget struct {
	name     string
	registry bus.Registry
	log      logger.Logger
	onChange func(Snapshot)

	// notifyMu serializes commit+notify so the hook sees snapshots in
	// commit order; mu guards snap only.
	notifyMu sync.Mutex
	mu       sync.RWMutex
	snap     Snapshot

	subsMu sync.Mutex
	subs   []bus.Subscription
	closed bool
}

// Option configures a Widget.
type Option func(*Widget)

// WithLogger sets the logger for unrecognized events and payload errors.
func WithLogger(l logger.Logger) Option {
	return func(w *Widget) { w.log = l }
}

// WithOnStateChanged registers the hook called after every committed
// snapshot. The hook runs on a bus delivery goroutine and must not call
// Close.
func WithOnStateChanged(fn func(Snapshot)) Option {
	return func(w *Widget) { w.onChange = fn }
}

// New resolves the named service and subscribes to its port-name, refresh,
// state and stats topics. When the service cannot be resolved no
// subscription is made and the error carries ErrServiceNotFound.
func New(ctx context.Context, name string, reg bus.Registry, sub bus.Subscriber, opts ...Option) (*Widget, error) {
	w := &Widget{
		name:     name,
		registry: reg,
		log:      logger.NewEnvLogger("[port]"),
	}
	for _, opt := range opts {
		opt(w)
	}

	svc, err := reg.Resolve(ctx, name)
	if err != nil {
		if errors.IsCode(err, errors.ErrServiceNotFound) {
			return nil, errors.WrapWithCode(err, errors.ErrServiceNotFound,
				fmt.Sprintf("Cannot bind port widget: service '%s' not found", name),
				"Check the service name or start the service first")
		}
		return nil, errors.WrapWithCode(err, errors.ErrBus,
			fmt.Sprintf("Cannot bind port widget: resolving '%s' failed", name),
			"Check the bus connection")
	}

	var state protocol.SerialState
	if svc.State != nil {
		if err := bus.Decode(svc.State, &state); err != nil {
			return nil, err
		}
	}
	if state.Name == "" {
		state.Name = name
	}
	w.snap = newSnapshot(state)

	for _, kind := range EventKinds() {
		s, err := sub.Subscribe(ctx, name, kind.Topic(), w.onMessage)
		if err != nil {
			w.Close()
			return nil, errors.WrapWithCode(err, errors.ErrBus,
				fmt.Sprintf("Cannot subscribe to %s/%s", name, kind.Topic()),
				"Check the bus connection")
		}
		w.subsMu.Lock()
		w.subs = append(w.subs, s)
		w.subsMu.Unlock()
	}

	return w, nil
}

// Name returns the service name the widget is bound to.
func (w *Widget) Name() string {
	return w.name
}

// Snapshot returns a copy of the current state.
func (w *Widget) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap.clone()
}

// onMessage is the single bus callback for all four subscriptions.
func (w *Widget) onMessage(msg bus.Message) {
	if err := w.Dispatch(msg); err != nil {
		if errors.IsCode(err, errors.ErrUnrecognizedEvent) {
			w.log.Warn("unhandled method %s from %s", msg.Method, msg.Name)
			return
		}
		w.log.Error("%s from %s: %v", msg.Method, msg.Name, err)
	}
}

// Dispatch applies one inbound event. Unknown methods return an
// ErrUnrecognizedEvent error and bad payloads an ErrPayload error; in both
// cases the state is left as it was and no hook fires.
func (w *Widget) Dispatch(msg bus.Message) error {
	kind, ok := ParseEventKind(msg.Method)
	if !ok {
		return errors.New(errors.ErrUnrecognizedEvent,
			fmt.Sprintf("Unhandled method %s", msg.Method), "")
	}

	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()

	w.mu.Lock()
	next, err := handlers[kind](w.snap, msg.Payload())
	if err != nil {
		w.mu.Unlock()
		return err
	}
	next.Seq = w.snap.Seq + 1
	w.snap = next
	out := next.clone()
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(out)
	}
	return nil
}

// Connect asks the service to open portName with the given serial
// parameters. Nothing is validated here and no reply is awaited; the result
// arrives later as an onState event.
func (w *Widget) Connect(ctx context.Context, portName string, rate, dataBits int, stopBits float64, parity string) error {
	return w.send(ctx, protocol.MethodConnect, portName, rate, dataBits, stopBits, parity)
}

// Refresh asks the service to re-enumerate its ports. The list arrives as
// onRefresh or onPortNames.
func (w *Widget) Refresh(ctx context.Context) error {
	return w.send(ctx, protocol.MethodRefresh)
}

// Disconnect is offered by the view but intentionally sends nothing.
func (w *Widget) Disconnect() {
	w.log.Debug("disconnect requested for %s: not implemented by the widget", w.name)
}

// Settings is a placeholder action and intentionally does nothing.
func (w *Widget) Settings() {
	w.log.Debug("settings requested for %s: not implemented by the widget", w.name)
}

func (w *Widget) send(ctx context.Context, method string, args ...any) error {
	if err := w.registry.Send(ctx, w.name, method, args...); err != nil {
		return errors.WrapWithCode(err, errors.ErrBus,
			fmt.Sprintf("Failed to send %s to %s", method, w.name),
			"Check the bus connection")
	}
	return nil
}

// Close releases every subscription. Safe to call more than once.
func (w *Widget) Close() {
	w.subsMu.Lock()
	if w.closed {
		w.subsMu.Unlock()
		return
	}
	w.closed = true
	subs := w.subs
	w.subs = nil
	w.subsMu.Unlock()

	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil {
			w.log.Warn("unsubscribe from %s failed: %v", w.name, err)
		}
	}
}
