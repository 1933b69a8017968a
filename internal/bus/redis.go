package bus

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

// Redis is a Bus backed by Redis pub/sub. The registry lives in a hash,
// requests travel on <prefix>:svc:<name>:in and events on
// <prefix>:svc:<name>:out:<topic method>. Messages are JSON, so handlers
// see payloads as maps, slices, strings and float64s; use Decode.
type Redis struct {
	rdb     *redis.Client
	prefix  string
	log     logger.Logger
	ownsRDB bool

	mu     sync.Mutex
	closed bool
	subs   map[*redisSubscription]struct{}
}

// NewRedis connects a bus to the Redis server described by cfg.
func NewRedis(cfg config.RedisConfig, log logger.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	r := NewRedisWithClient(rdb, cfg.Prefix, log)
	r.ownsRDB = true
	return r
}

// NewRedisWithClient builds a bus on an existing client. The caller keeps
// ownership of rdb.
func NewRedisWithClient(rdb *redis.Client, prefix string, log logger.Logger) *Redis {
	if prefix == "" {
		prefix = "portctl"
	}
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
		log:    logger.OrDefault(log),
		subs:   make(map[*redisSubscription]struct{}),
	}
}

func (r *Redis) registryKey() string {
	return r.prefix + ":registry"
}

func (r *Redis) inChannel(name string) string {
	return fmt.Sprintf("%s:svc:%s:in", r.prefix, name)
}

func (r *Redis) outChannel(name, method string) string {
	return fmt.Sprintf("%s:svc:%s:out:%s", r.prefix, name, method)
}

// Ping checks the server is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return errors.WrapWithCode(err, errors.ErrBus,
			"Cannot reach Redis at "+r.rdb.Options().Addr,
			"Check bus.redis.addr or start Redis")
	}
	return nil
}

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Register implements Bus.
func (r *Redis) Register(ctx context.Context, name string, state any) error {
	if r.isClosed() {
		return closedErr()
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("Cannot encode state of %s", name), "")
	}
	if err := r.rdb.HSet(ctx, r.registryKey(), name, raw).Err(); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Failed to register %s", name))
	}
	return nil
}

// Resolve implements Registry.
func (r *Redis) Resolve(ctx context.Context, name string) (Service, error) {
	if r.isClosed() {
		return Service{}, closedErr()
	}
	raw, err := r.rdb.HGet(ctx, r.registryKey(), name).Bytes()
	if goerrors.Is(err, redis.Nil) {
		return Service{}, notFound(name)
	}
	if err != nil {
		return Service{}, errors.Wrap(err, fmt.Sprintf("Failed to resolve %s", name))
	}
	var state any
	if err := json.Unmarshal(raw, &state); err != nil {
		return Service{}, errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("Registry entry for %s is not valid JSON", name), "")
	}
	return Service{Name: name, State: state}, nil
}

// Services implements Bus.
func (r *Redis) Services(ctx context.Context) ([]string, error) {
	names, err := r.rdb.HKeys(ctx, r.registryKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to list services")
	}
	sort.Strings(names)
	return names, nil
}

func (r *Redis) publish(ctx context.Context, channel string, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("Cannot encode %s/%s", msg.Name, msg.Method), "")
	}
	if err := r.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Failed to publish %s/%s", msg.Name, msg.Method))
	}
	return nil
}

// Send implements Registry.
func (r *Redis) Send(ctx context.Context, name, method string, args ...any) error {
	if r.isClosed() {
		return closedErr()
	}
	if args == nil {
		args = []any{}
	}
	return r.publish(ctx, r.inChannel(name), Message{
		ID:     uuid.NewString(),
		Name:   name,
		Method: method,
		Data:   args,
	})
}

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, name, method string, data ...any) error {
	if r.isClosed() {
		return closedErr()
	}
	if method == protocol.TopicState && len(data) > 0 {
		if err := r.Register(ctx, name, data[0]); err != nil {
			return err
		}
	}
	if data == nil {
		data = []any{}
	}
	return r.publish(ctx, r.outChannel(name, method), Message{
		ID:     uuid.NewString(),
		Sender: name,
		Name:   name,
		Method: protocol.CallbackName(method),
		Data:   data,
	})
}

// Subscribe implements Subscriber.
func (r *Redis) Subscribe(ctx context.Context, name, method string, h Handler) (Subscription, error) {
	return r.subscribe(ctx, r.outChannel(name, method), h)
}

// Listen implements Bus.
func (r *Redis) Listen(ctx context.Context, name string, h Handler) (Subscription, error) {
	return r.subscribe(ctx, r.inChannel(name), h)
}

type redisSubscription struct {
	bus     *Redis
	channel string
	ps      *redis.PubSub
	done    chan struct{}
	once    sync.Once
}

func (r *Redis) subscribe(ctx context.Context, channel string, h Handler) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, closedErr()
	}

	ps := r.rdb.Subscribe(ctx, channel)
	// Wait for the confirmation so nothing published after we return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Wrap(err, "Failed to subscribe to "+channel)
	}

	s := &redisSubscription{
		bus:     r,
		channel: channel,
		ps:      ps,
		done:    make(chan struct{}),
	}
	ch := ps.Channel()
	go func() {
		defer close(s.done)
		for m := range ch {
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.log.Warn("dropping undecodable message on %s: %v", channel, err)
				continue
			}
			h(msg)
		}
	}()
	r.subs[s] = struct{}{}
	return s, nil
}

// Unsubscribe implements Subscription.
func (s *redisSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		err = s.ps.Close()
	})
	<-s.done
	return err
}

// Close stops every subscription and, when the bus created its own client,
// closes it.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSubscription, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	if r.ownsRDB {
		return r.rdb.Close()
	}
	return nil
}
