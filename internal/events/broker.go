package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/flipscout/internal/logger"
)

// Default broker configuration.
const (
	DefaultEventBufferSize   = 1000
	DefaultClientBufferSize  = 100
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
)

// Broker manages live subscriber connections and event distribution. It is
// created once at the composition root and passed by reference to the parts
// that publish or subscribe.
type Broker struct {
	logger  logger.Logger
	clients map[string]*client
	mu      sync.RWMutex

	publish chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	eventBufferSize   int
	clientBufferSize  int
	heartbeatInterval time.Duration
	shutdownTimeout   time.Duration
}

// Option configures a broker.
type Option func(*Broker)

// WithHeartbeatInterval sets the ping heartbeat interval.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(b *Broker) {
		if interval > 0 {
			b.heartbeatInterval = interval
		}
	}
}

// WithClientBufferSize sets the per-subscriber buffer size.
func WithClientBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.clientBufferSize = size
		}
	}
}

// NewBroker creates a broker.
func NewBroker(log logger.Logger, opts ...Option) *Broker {
	b := &Broker{
		logger:            log,
		clients:           make(map[string]*client),
		eventBufferSize:   DefaultEventBufferSize,
		clientBufferSize:  DefaultClientBufferSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		shutdownTimeout:   DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.publish = make(chan Event, b.eventBufferSize)
	return b
}

// Start begins distributing events and sending heartbeats.
func (b *Broker) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.broadcastLoop()

	b.logger.Info("Event broker started",
		logger.Duration("heartbeat_interval", b.heartbeatInterval),
	)
	return nil
}

// Stop gracefully shuts down the broker.
func (b *Broker) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event broker stopped")
	case <-time.After(b.shutdownTimeout):
		b.logger.Warn("Event broker shutdown timeout exceeded")
	}
	return nil
}

// Publish sends an event to all connected subscribers. A full publish buffer
// drops the event rather than blocking the scan.
func (b *Broker) Publish(ctx context.Context, event Event) error {
	select {
	case b.publish <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish cancelled: %w", ctx.Err())
	default:
		return fmt.Errorf("publish buffer full, dropped event %q", event.Type)
	}
}

// Subscribe registers a new live connection. The cleanup func synchronously
// unregisters the subscriber and releases its resources.
func (b *Broker) Subscribe(ctx context.Context) (<-chan Event, func()) {
	c := newClient(ctx, b.clientBufferSize)

	b.mu.Lock()
	b.clients[c.id] = c
	b.mu.Unlock()

	b.logger.Debug("Subscriber connected",
		logger.String("client_id", c.id),
		logger.Int("total_clients", b.ClientCount()),
	)

	b.wg.Add(1)
	go b.reapOnDisconnect(c)

	return c.events, func() { b.removeClient(c.id) }
}

// ClientCount returns the number of connected subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// HeartbeatInterval returns the configured ping interval.
func (b *Broker) HeartbeatInterval() time.Duration {
	return b.heartbeatInterval
}

func (b *Broker) broadcastLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-b.publish:
			b.broadcast(event)
		case <-ticker.C:
			b.broadcast(NewPingEvent())
		case <-b.ctx.Done():
			b.disconnectAll()
			return
		}
	}
}

// broadcast fans an event out to every subscriber. A subscriber whose buffer
// is full is treated as dead: it is unsubscribed and the rest continue.
func (b *Broker) broadcast(event Event) {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	var slow []string
	for _, c := range clients {
		if !c.send(event) {
			slow = append(slow, c.id)
		}
	}

	for _, id := range slow {
		b.logger.Warn("Subscriber buffer full, dropping connection",
			logger.String("client_id", id),
			logger.String("event_type", event.Type),
		)
		b.removeClient(id)
	}
}

func (b *Broker) reapOnDisconnect(c *client) {
	defer b.wg.Done()
	<-c.ctx.Done()
	b.removeClient(c.id)
}

func (b *Broker) removeClient(id string) {
	b.mu.Lock()
	c, exists := b.clients[id]
	if exists {
		delete(b.clients, id)
	}
	b.mu.Unlock()

	if exists {
		c.close()
		b.logger.Debug("Subscriber disconnected",
			logger.String("client_id", id),
			logger.Int("total_clients", b.ClientCount()),
		)
	}
}

func (b *Broker) disconnectAll() {
	b.mu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.clients = make(map[string]*client)
	b.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// clientIDCounter generates unique subscriber ids.
var clientIDCounter atomic.Int64

type client struct {
	id     string
	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	mu     sync.Mutex
}

func newClient(ctx context.Context, bufferSize int) *client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &client{
		id:     fmt.Sprintf("sub-%d-%d", time.Now().UnixNano(), clientIDCounter.Add(1)),
		events: make(chan Event, bufferSize),
		ctx:    clientCtx,
		cancel: cancel,
	}
}

// send attempts a non-blocking delivery. Returns false when the buffer is
// full (slow subscriber) or the client is already closed. The mutex is
// shared with close so a send never races the channel close.
func (c *client) send(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return false
	}
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return
	}
	c.closed.Store(true)
	c.cancel()
	close(c.events)
}
