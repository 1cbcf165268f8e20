package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/pkg/metrics"
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrQueueFull  = errors.New("subscriber queue full")
)

// outboundQueueSize bounds how far a slow client may fall behind before
// deliveries to it are dropped.
const outboundQueueSize = 32

// Transport is the write side of a client connection. WriteJSON and Ping are
// only ever called from the write pump goroutine.
type Transport interface {
	WriteJSON(v any) error
	Ping() error
	Close() error
}

// Conn is one live subscriber connection. Lifecycle: created, subscribed to
// its topics, pumped, closed. Close is terminal and idempotent; every
// teardown path funnels through it so the registry never leaks handles.
type Conn struct {
	id        string
	transport Transport
	registry  *Registry
	logger    *zap.Logger

	out       chan model.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(transport Transport, registry *Registry, logger *zap.Logger) *Conn {
	metrics.ConnectedClients.Inc()
	return &Conn{
		id:        uuid.NewString(),
		transport: transport,
		registry:  registry,
		logger:    logger,
		out:       make(chan model.Envelope, outboundQueueSize),
		done:      make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Subscribe registers this connection for the given topics.
func (c *Conn) Subscribe(topics ...string) {
	for _, topic := range topics {
		c.registry.Subscribe(topic, c)
	}
}

// Deliver queues env for the write pump without blocking the broker. A
// closed connection or a full queue is reported to the caller, which logs
// and moves on to the next subscriber.
func (c *Conn) Deliver(env model.Envelope) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.out <- env:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

// WritePump serializes queued envelopes onto the transport and keeps the
// connection alive with pings. Blocks until the connection closes; run it in
// its own goroutine. Any write failure tears the connection down.
func (c *Conn) WritePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.out:
			if err := c.transport.WriteJSON(env); err != nil {
				c.logger.Warn("Transport write failed, closing connection",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.transport.Ping(); err != nil {
				c.logger.Debug("Ping failed, closing connection",
					zap.String("conn_id", c.id),
					zap.Error(err),
				)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close transitions the connection to its terminal state: unregisters it
// from every topic, stops the pump, and closes the transport. Racing calls
// from the disconnect and error paths collapse into one teardown.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.registry.UnsubscribeAll(c)
		close(c.done)
		if err := c.transport.Close(); err != nil {
			c.logger.Debug("Transport close error",
				zap.String("conn_id", c.id),
				zap.Error(err),
			)
		}
		metrics.ConnectedClients.Dec()
		c.logger.Info("Connection closed", zap.String("conn_id", c.id))
	})
}
