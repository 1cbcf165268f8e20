package hub

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pmsboard/internal/model"
	"pmsboard/pkg/circuitbreaker"
	"pmsboard/pkg/metrics"
)

const relayChannelPrefix = "fanout:"

// relayMessage mirrors a publish across instances through Redis Pub/Sub.
// Origin lets an instance drop the echo of its own publishes.
type relayMessage struct {
	Origin   string         `json:"origin"`
	Topic    string         `json:"topic"`
	Envelope model.Envelope `json:"envelope"`
}

// Broker fans an envelope out to every current subscriber of a topic.
// Delivery is best-effort: a failing subscriber is logged and skipped, never
// surfaced to the publisher. When a Redis client is supplied, publishes are
// also relayed to other instances listening on the same topics.
type Broker struct {
	registry *Registry
	rdb      *redis.Client
	breaker  *circuitbreaker.CircuitBreaker
	origin   string
	logger   *zap.Logger
}

func NewBroker(registry *Registry, rdb *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{
		registry: registry,
		rdb:      rdb,
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		origin:   uuid.NewString(),
		logger:   logger,
	}
}

// Publish delivers env to all local subscribers of topic and relays it to
// peer instances. Sequential publishes on one topic reach each subscriber in
// call order; there is no queueing, replay, or cross-topic ordering.
func (b *Broker) Publish(ctx context.Context, topic string, env model.Envelope) {
	b.relay(ctx, topic, env)
	b.fanOut(topic, env)
}

func (b *Broker) relay(ctx context.Context, topic string, env model.Envelope) {
	if b.rdb == nil {
		return
	}

	body, err := json.Marshal(relayMessage{
		Origin:   b.origin,
		Topic:    topic,
		Envelope: env,
	})
	if err != nil {
		b.logger.Error("Failed to marshal relay message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}

	// Relay failures are best-effort like everything else on this path.
	// The breaker keeps a dead Redis from slowing every publish.
	err = b.breaker.Execute(func() error {
		return b.rdb.Publish(ctx, relayChannelPrefix+topic, body).Err()
	})
	if err != nil {
		b.logger.Warn("Relay publish failed",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

func (b *Broker) fanOut(topic string, env model.Envelope) {
	subs := b.registry.SubscribersOf(topic)

	for _, sub := range subs {
		if err := sub.Deliver(env); err != nil {
			// Stale or slow handle: swallow, log, keep going.
			metrics.RecordDeliveryFailure(deliveryFailureReason(err))
			b.logger.Warn("Delivery to subscriber failed",
				zap.String("topic", topic),
				zap.String("subscriber_id", sub.ID()),
				zap.Error(err),
			)
			continue
		}
		metrics.RecordDeliveredPush(string(env.Kind))
	}

	b.logger.Debug("Published to topic",
		zap.String("topic", topic),
		zap.String("kind", string(env.Kind)),
		zap.Int("subscribers", len(subs)),
	)
}

// RunRelay consumes relayed publishes from peer instances and fans them out
// locally. Blocks until ctx is cancelled; run it in its own goroutine.
func (b *Broker) RunRelay(ctx context.Context) error {
	if b.rdb == nil {
		return nil
	}

	pubsub := b.rdb.PSubscribe(ctx, relayChannelPrefix+"*")
	defer pubsub.Close()

	b.logger.Info("Broker relay started", zap.String("origin", b.origin))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Broker relay stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var rm relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err != nil {
				b.logger.Error("Failed to unmarshal relay message",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			if rm.Origin == b.origin {
				// Our own publish already fanned out locally.
				continue
			}

			topic := strings.TrimPrefix(msg.Channel, relayChannelPrefix)
			b.fanOut(topic, rm.Envelope)
		}
	}
}

func deliveryFailureReason(err error) string {
	switch err {
	case ErrConnClosed:
		return "closed"
	case ErrQueueFull:
		return "queue_full"
	default:
		return "transport"
	}
}
