package bus

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// DefaultQueueSize is the per-subscription delivery buffer of the memory bus.
const DefaultQueueSize = 256

type topicKey struct {
	name   string
	method string
}

// Memory is an in-process Bus. Each subscription drains its own queue on a
// dedicated goroutine; when a queue is full the message is dropped and a
// warning is logged.
type Memory struct {
	mu        sync.RWMutex
	log       logger.Logger
	queueSize int
	closed    bool
	services  map[string]any
	topics    map[topicKey][]*memorySubscription
	listeners map[string][]*memorySubscription
}

// MemoryOption configures a Memory bus.
type MemoryOption func(*Memory)

// WithMemoryLogger sets the logger used for drops and undeliverable sends.
func WithMemoryLogger(l logger.Logger) MemoryOption {
	return func(m *Memory) { m.log = l }
}

// WithQueueSize sets the per-subscription buffer.
func WithQueueSize(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.queueSize = n
		}
	}
}

// NewMemory creates an empty in-process bus.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		log:       logger.Default(),
		queueSize: DefaultQueueSize,
		services:  make(map[string]any),
		topics:    make(map[topicKey][]*memorySubscription),
		listeners: make(map[string][]*memorySubscription),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type memorySubscription struct {
	bus     *Memory
	label   string
	queue   chan Message
	handler Handler
	done    chan struct{}
	once    sync.Once
	detach  func()
}

func (s *memorySubscription) run() {
	defer close(s.done)
	for msg := range s.queue {
		s.handler(msg)
	}
}

// Unsubscribe implements Subscription.
func (s *memorySubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		s.detach()
		close(s.queue)
		s.bus.mu.Unlock()
	})
	<-s.done
	return nil
}

func (m *Memory) newSubscription(label string, h Handler) *memorySubscription {
	s := &memorySubscription{
		bus:     m,
		label:   label,
		queue:   make(chan Message, m.queueSize),
		handler: h,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// deliver must be called with m.mu held for reading.
func (m *Memory) deliver(subs []*memorySubscription, msg Message) {
	for _, s := range subs {
		select {
		case s.queue <- msg:
		default:
			m.log.Warn("queue full for %s, dropping %s/%s", s.label, msg.Name, msg.Method)
		}
	}
}

func removeSub(list []*memorySubscription, s *memorySubscription) []*memorySubscription {
	out := list[:0]
	for _, x := range list {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

// Register implements Bus.
func (m *Memory) Register(ctx context.Context, name string, state any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return closedErr()
	}
	m.services[name] = state
	return nil
}

// Resolve implements Registry.
func (m *Memory) Resolve(ctx context.Context, name string) (Service, error) {
	if err := ctx.Err(); err != nil {
		return Service{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Service{}, closedErr()
	}
	state, ok := m.services[name]
	if !ok {
		return Service{}, notFound(name)
	}
	return Service{Name: name, State: state}, nil
}

// Services implements Bus.
func (m *Memory) Services(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Send implements Registry.
func (m *Memory) Send(ctx context.Context, name, method string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{
		ID:     uuid.NewString(),
		Name:   name,
		Method: method,
		Data:   append([]any(nil), args...),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return closedErr()
	}
	listeners := m.listeners[name]
	if len(listeners) == 0 {
		m.log.Debug("no listener for %s, %s not delivered", name, method)
		return nil
	}
	m.deliver(listeners, msg)
	return nil
}

// Publish implements Publisher.
func (m *Memory) Publish(ctx context.Context, name, method string, data ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := Message{
		ID:     uuid.NewString(),
		Sender: name,
		Name:   name,
		Method: protocol.CallbackName(method),
		Data:   append([]any(nil), data...),
	}

	if method == protocol.TopicState && len(data) > 0 {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return closedErr()
		}
		m.services[name] = data[0]
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return closedErr()
	}
	m.deliver(m.topics[topicKey{name: name, method: method}], msg)
	return nil
}

// Subscribe implements Subscriber.
func (m *Memory) Subscribe(ctx context.Context, name, method string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := topicKey{name: name, method: method}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, closedErr()
	}
	s := m.newSubscription(name+"/"+method, h)
	s.detach = func() { m.topics[key] = removeSub(m.topics[key], s) }
	m.topics[key] = append(m.topics[key], s)
	return s, nil
}

// Listen implements Bus.
func (m *Memory) Listen(ctx context.Context, name string, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, closedErr()
	}
	s := m.newSubscription(name+" requests", h)
	s.detach = func() { m.listeners[name] = removeSub(m.listeners[name], s) }
	m.listeners[name] = append(m.listeners[name], s)
	return s, nil
}

// Close stops every subscription and waits for their goroutines to exit.
// Later calls on the bus fail.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var all []*memorySubscription
	for _, subs := range m.topics {
		all = append(all, subs...)
	}
	for _, subs := range m.listeners {
		all = append(all, subs...)
	}
	m.mu.Unlock()

	for _, s := range all {
		_ = s.Unsubscribe()
	}
	return nil
}
