// Package portsvc is a serial-port service that lives on the bus. It
// enumerates ports, validates connect requests and tracks which port is
// connected, then publishes that state for widgets to mirror. It never opens
// a device.
package portsvc

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/internal/util"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// DefaultStatsInterval is used when no interval is configured.
const DefaultStatsInterval = 5 * time.Second

// Bus is what the service needs from the message bus.
type Bus interface {
	bus.Publisher
	Register(ctx context.Context, name string, state any) error
	Listen(ctx context.Context, name string, h bus.Handler) (bus.Subscription, error)
}

// Service answers connect, disconnect, refresh and getPortNames requests for
// one named serial service.
type Service struct {
	name     string
	bus      Bus
	lister   PortLister
	log      logger.Logger
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	state protocol.SerialState
	ports []string
	stats protocol.SerialStats
}

// Option configures a Service.
type Option func(*Service)

// WithLister replaces the system port enumerator.
func WithLister(l PortLister) Option {
	return func(s *Service) { s.lister = l }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithStatsInterval sets how often stats are published. Zero or negative
// disables periodic stats.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithDefaults seeds the serial parameters reported before the first connect.
func WithDefaults(p config.SerialConfig) Option {
	return func(s *Service) {
		s.state.Rate = p.Rate
		s.state.DataBits = p.DataBits
		s.state.StopBits = p.StopBits
		s.state.Parity = p.Parity
	}
}

// New creates a service named name on b. Call Run to put it on the bus.
func New(name string, b Bus, opts ...Option) *Service {
	s := &Service{
		name:     name,
		bus:      b,
		lister:   SystemLister{},
		log:      logger.NewEnvLogger("[portsvc]"),
		interval: DefaultStatsInterval,
		now:      time.Now,
		state: protocol.SerialState{
			Name: name,
			Type: protocol.ServiceType,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the service name.
func (s *Service) Name() string {
	return s.name
}

// State returns the current state record.
func (s *Service) State() protocol.SerialState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns the current counters.
func (s *Service) Stats() protocol.SerialStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotStats()
}

// Ports returns the last enumerated port names.
func (s *Service) Ports() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ports)
}

// snapshotStats must be called with s.mu held.
func (s *Service) snapshotStats() protocol.SerialStats {
	st := s.stats
	st.PortCount = len(s.ports)
	st.UpdatedAt = s.now()
	return st
}

// Run registers the service, answers requests and publishes stats until ctx
// is cancelled. The initial port list and state are published once before
// the loop starts.
func (s *Service) Run(ctx context.Context) error {
	if err := s.enumerate(); err != nil {
		s.log.Warn("initial port enumeration failed: %v", err)
	}

	sub, err := s.bus.Listen(ctx, s.name, func(msg bus.Message) {
		s.Handle(ctx, msg)
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrBus,
			fmt.Sprintf("Failed to listen for requests to '%s'", s.name),
			"Check the bus connection")
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.log.Warn("unsubscribe failed: %v", err)
		}
	}()

	// Listen before registering so a watcher that resolves the service can
	// already reach it.
	if err := s.bus.Register(ctx, s.name, s.State()); err != nil {
		return errors.WrapWithCode(err, errors.ErrBus,
			fmt.Sprintf("Failed to register service '%s'", s.name),
			"Check the bus connection")
	}

	n := len(s.Ports())
	s.log.Info("service %s ready with %d %s", s.name, n, util.Pluralize(n, "port", "ports"))
	s.publishPorts(ctx, protocol.TopicPortNames)
	s.publishState(ctx)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("service %s stopping", s.name)
			return nil
		case <-tick:
			s.publishStats(ctx)
		}
	}
}

// Handle applies one request. Unknown methods and bad arguments are logged
// and otherwise ignored; a rejected connect republishes the unchanged state
// so watchers settle.
func (s *Service) Handle(ctx context.Context, msg bus.Message) {
	switch msg.Method {
	case protocol.MethodConnect:
		if err := s.connect(msg); err != nil {
			s.log.Warn("connect rejected: %v", err)
		}
		s.publishState(ctx)
	case protocol.MethodDisconnect:
		s.disconnect()
		s.publishState(ctx)
	case protocol.MethodRefresh:
		if err := s.enumerate(); err != nil {
			s.log.Warn("refresh failed: %v", err)
		}
		s.mu.Lock()
		s.stats.Refreshes++
		s.mu.Unlock()
		s.publishPorts(ctx, protocol.TopicRefresh)
	case protocol.MethodGetPortNames:
		s.publishPorts(ctx, protocol.TopicPortNames)
	default:
		s.log.Warn("unknown request %s for %s", msg.Method, s.name)
	}
}

func (s *Service) connect(msg bus.Message) error {
	var (
		portName string
		params   config.SerialConfig
	)
	if err := bus.Arg(msg, 0, &portName); err != nil {
		return err
	}
	if err := bus.Arg(msg, 1, &params.Rate); err != nil {
		return err
	}
	if err := bus.Arg(msg, 2, &params.DataBits); err != nil {
		return err
	}
	if err := bus.Arg(msg, 3, &params.StopBits); err != nil {
		return err
	}
	if err := bus.Arg(msg, 4, &params.Parity); err != nil {
		return err
	}

	if _, err := Mode(params); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.ports, portName) {
		return errors.New(errors.ErrSerial,
			fmt.Sprintf("Port '%s' is not available", portName),
			portSuggestion(portName, s.ports))
	}

	if s.state.ConnectedPortName != "" && s.state.ConnectedPortName != portName {
		s.state.LastPortName = s.state.ConnectedPortName
		s.stats.Disconnects++
	}
	s.state.ConnectedPortName = portName
	s.state.LastPortName = portName
	s.state.Rate = params.Rate
	s.state.DataBits = params.DataBits
	s.state.StopBits = params.StopBits
	s.state.Parity = params.Parity
	s.stats.Connects++
	s.log.Info("%s connected to %s", s.name, portName)
	return nil
}

// portSuggestion points at the closest known port names, or lists them all.
func portSuggestion(name string, ports []string) string {
	if similar := util.SuggestSimilar(name, ports, 2); len(similar) > 0 {
		return fmt.Sprintf("Did you mean %s?", util.JoinOrNone(similar))
	}
	return "Available ports: " + util.JoinOrNone(ports)
}

func (s *Service) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ConnectedPortName == "" {
		return
	}
	s.state.LastPortName = s.state.ConnectedPortName
	s.state.ConnectedPortName = ""
	s.stats.Disconnects++
	s.log.Info("%s disconnected from %s", s.name, s.state.LastPortName)
}

func (s *Service) enumerate() error {
	ports, err := s.lister.List()
	if err != nil {
		return err
	}
	if ports == nil {
		ports = []string{}
	}
	s.mu.Lock()
	s.ports = ports
	s.mu.Unlock()
	return nil
}

func (s *Service) publishPorts(ctx context.Context, topic string) {
	if err := s.bus.Publish(ctx, s.name, topic, s.Ports()); err != nil {
		s.log.Error("publish %s failed: %v", topic, err)
	}
}

func (s *Service) publishState(ctx context.Context) {
	if err := s.bus.Publish(ctx, s.name, protocol.TopicState, s.State()); err != nil {
		s.log.Error("publish state failed: %v", err)
	}
}

func (s *Service) publishStats(ctx context.Context) {
	if err := s.bus.Publish(ctx, s.name, protocol.TopicStats, s.Stats()); err != nil {
		s.log.Error("publish stats failed: %v", err)
	}
}
