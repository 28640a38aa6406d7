package redisbus

import (
	"context"

	"github.com/goevery/gateway/internal/eventbus"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Bus carries domain events over Redis pub/sub, one channel per topic
// named prefix+topic.
type Bus struct {
	logger *zap.Logger
	client *redis.Client
	prefix string
}

func NewBus(logger *zap.Logger, client *redis.Client, prefix string) *Bus {
	return &Bus{
		logger: logger.With(zap.String("component", "redis-event-bus")),
		client: client,
		prefix: prefix,
	}
}

func (b *Bus) Channels() []string {
	return lo.Map(eventbus.Topics, func(topic string, _ int) string {
		return b.prefix + topic
	})
}

func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := eventbus.Encode(topic, payload)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.prefix+topic, []byte(data)).Err()
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan eventbus.Event, error) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	sub := b.client.Subscribe(ctx, b.Channels()...)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}

	b.logger.Info("subscribed to redis channels",
		zap.Strings("channels", b.Channels()))

	out := make(chan eventbus.Event)

	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case message, ok := <-messages:
				if !ok {
					return
				}

				event, err := eventbus.Decode(b.prefix, message.Channel, []byte(message.Payload))
				if err != nil {
					b.logger.Warn("dropping malformed redis event",
						zap.String("channel", message.Channel),
						zap.Error(err))
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *Bus) Close() error {
	return b.client.Close()
}
