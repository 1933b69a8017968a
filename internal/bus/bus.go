// Package bus is the publish/subscribe message bus that connects named
// services with the components that watch and drive them.
//
// Services register a state snapshot under their name, listen for requests
// sent to that name, and publish events under topic methods. Watchers resolve
// a service by name, subscribe to its topic methods and send it requests.
// Events are delivered under callback names (publishState arrives as
// onState, see protocol.CallbackName).
//
// Sends are fire-and-forget: an error only means the bus itself failed.
// Delivery is ordered per subscription; nothing is ordered across
// subscriptions.
package bus

//go:generate mockgen -destination=mocks/bus_mock.go -package=mocks . Registry,Subscriber,Subscription

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/portctl/internal/errors"
)

// Message is the unit carried by the bus.
type Message struct {
	ID string `json:"id"`
	// Sender is the service that produced the message, if any.
	Sender string `json:"sender,omitempty"`
	// Name is the service the message is about or addressed to.
	Name string `json:"name"`
	// Method is the request method for sends, the callback name for events.
	Method string `json:"method"`
	Data   []any  `json:"data"`
}

// Payload returns the first positional data element, or nil.
func (m Message) Payload() any {
	if len(m.Data) == 0 {
		return nil
	}
	return m.Data[0]
}

// Handler receives delivered messages.
type Handler func(Message)

// Subscription is a live registration. Unsubscribe stops delivery and waits
// for an in-flight handler call to return, so it must not be called from the
// subscription's own handler.
type Subscription interface {
	Unsubscribe() error
}

// Service is the cached snapshot of a registered service.
type Service struct {
	Name  string
	State any
}

// Registry resolves services and sends them requests.
type Registry interface {
	Resolve(ctx context.Context, name string) (Service, error)
	Send(ctx context.Context, name, method string, args ...any) error
}

// Subscriber registers handlers for the events of one service method.
type Subscriber interface {
	Subscribe(ctx context.Context, name, method string, h Handler) (Subscription, error)
}

// Publisher emits events on behalf of a service. Publishing under
// protocol.TopicState also replaces the service's registry snapshot.
type Publisher interface {
	Publish(ctx context.Context, name, method string, data ...any) error
}

// Bus is the full bus surface used by services and tooling.
type Bus interface {
	Registry
	Subscriber
	Publisher
	Register(ctx context.Context, name string, state any) error
	Listen(ctx context.Context, name string, h Handler) (Subscription, error)
	Services(ctx context.Context) ([]string, error)
	Close() error
}

func notFound(name string) error {
	return errors.New(errors.ErrServiceNotFound,
		fmt.Sprintf("Service '%s' is not registered on the bus", name),
		fmt.Sprintf("Start it with 'portctl serve %s' or check the name with 'portctl services'", name))
}

func closedErr() error {
	return errors.New(errors.ErrBus, "Bus is closed", "")
}
