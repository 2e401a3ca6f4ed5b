package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/learnquest/rewards-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// Publishes every event to a Redis Pub/Sub channel and delivers events
// published by other processes to the local bus. Lets the worker observe
// awards made through the admin CLI.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEventChannel is the Pub/Sub channel used when none is configured.
const DefaultEventChannel = "rewards:events"

// RedisEventBus wraps a local bus with a Redis Pub/Sub bridge.
type RedisEventBus struct {
	client      *goredis.Client
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	// Client is the Redis client to use.
	Client *goredis.Client

	// ChannelName is the Pub/Sub channel (default DefaultEventChannel).
	ChannelName string

	// Subscribe starts a listener for remote events. Publish-only processes
	// such as the CLI leave it off.
	Subscribe bool

	// LocalBus receives local and remote events.
	LocalBus *InMemoryEventBus

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewRedisEventBus creates a new Redis-backed event bus.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = DefaultEventChannel
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.LocalBus == nil {
		config.LocalBus = NewInMemoryEventBus(InMemoryEventBusConfig{Logger: config.Logger})
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:      config.Client,
		localBus:    config.LocalBus,
		channelName: config.ChannelName,
		instanceID:  uuid.NewString(),
		logger:      config.Logger.With("component", "redis_event_bus"),
		ctx:         ctx,
		cancel:      cancel,
	}

	if config.Subscribe {
		if err := bus.startSubscriber(); err != nil {
			cancel()
			return nil, fmt.Errorf("start subscriber: %w", err)
		}
	}
	return bus, nil
}

// Subscribe registers a handler for a specific event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for all events.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends the event to Redis and to local handlers. A Redis failure is
// logged and local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := encodeEnvelope(b.instanceID, event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(b.ctx, 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channelName, data).Err(); err != nil {
		b.logger.Error("failed to publish to redis", "event_type", event.EventType(), "error", err)
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) startSubscriber() error {
	pubsub := b.client.Subscribe(b.ctx, b.channelName)
	// Wait for the subscription to be confirmed before returning.
	if _, err := pubsub.Receive(b.ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.handleMessage(msg.Payload)
			}
		}
	}()
	return nil
}

func (b *RedisEventBus) handleMessage(payload string) {
	env, err := decodeEnvelope([]byte(payload))
	if err != nil {
		b.logger.Error("failed to unmarshal event", "error", err)
		return
	}

	// Local handlers already saw our own events.
	if env.InstanceID == b.instanceID {
		return
	}

	if err := b.localBus.Publish(env.event()); err != nil {
		b.logger.Error("failed to process remote event", "error", err)
	}
}

// Close stops the subscriber and closes the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	return b.localBus.Close()
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

func encodeEnvelope(instanceID string, event shared.Event) ([]byte, error) {
	data, err := json.Marshal(eventEnvelope{
		InstanceID:  instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (*eventEnvelope, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *eventEnvelope) event() shared.Event {
	return &remoteEvent{
		eventType:   e.EventType,
		aggregateID: e.AggregateID,
		occurredAt:  e.OccurredAt,
		payload:     e.Payload,
	}
}

// remoteEvent is an event received from another process. Handlers that type
// switch on concrete events ignore it.
type remoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *remoteEvent) EventType() shared.EventType     { return e.eventType }
func (e *remoteEvent) AggregateID() string             { return e.aggregateID }
func (e *remoteEvent) OccurredAt() time.Time           { return e.occurredAt }
func (e *remoteEvent) Payload() map[string]interface{} { return e.payload }
