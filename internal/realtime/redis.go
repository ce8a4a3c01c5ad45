package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/serene-app/serene-backend/pkg/logging"
)

// feedChannel is the pub/sub channel carrying post-insert events
const feedChannel = "serene:feed:posts"

// RedisBroker distributes post events across server instances via
// Redis pub/sub
type RedisBroker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBroker creates a broker backed by the given Redis client
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{
		client: client,
		logger: logging.WithComponent("realtime-broker"),
	}
}

// Publish delivers an event to all subscribers on every instance
func (b *RedisBroker) Publish(ctx context.Context, event PostEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal post event: %w", err)
	}
	if err := b.client.Publish(ctx, feedChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish post event: %w", err)
	}
	return nil
}

// Subscribe registers a new subscriber on the feed channel
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan PostEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, feedChannel)

	// Wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to feed channel: %w", err)
	}

	events := make(chan PostEvent, subscriberBufferSize)

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event PostEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("Dropping malformed post event", zap.Error(err))
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() {
		if err := pubsub.Close(); err != nil {
			b.logger.Warn("Error closing pubsub subscription", zap.Error(err))
		}
	}

	return events, unsubscribe, nil
}

// Close shuts down the broker. The underlying Redis client is owned by
// the cache layer and closed there.
func (b *RedisBroker) Close() error {
	return nil
}
