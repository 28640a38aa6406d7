package natsbus

import (
	"context"

	"github.com/goevery/gateway/internal/eventbus"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Bus carries domain events over NATS core subjects named prefix+topic.
type Bus struct {
	logger *zap.Logger
	conn   *nats.Conn
	prefix string
}

func NewBus(logger *zap.Logger, conn *nats.Conn, prefix string) *Bus {
	return &Bus{
		logger: logger.With(zap.String("component", "nats-event-bus")),
		conn:   conn,
		prefix: prefix,
	}
}

func (b *Bus) Subject() string {
	return b.prefix + ">"
}

func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := eventbus.Encode(topic, payload)
	if err != nil {
		return err
	}

	return b.conn.Publish(b.prefix+topic, data)
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan eventbus.Event, error) {
	messages := make(chan *nats.Msg, 256)

	sub, err := b.conn.ChanSubscribe(b.Subject(), messages)
	if err != nil {
		return nil, err
	}

	b.logger.Info("subscribed to nats subject",
		zap.String("subject", b.Subject()))

	out := make(chan eventbus.Event)

	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				b.logger.Debug("nats unsubscribe failed", zap.Error(err))
			}
		}()

		for {
			select {
			case message := <-messages:
				event, err := eventbus.Decode(b.prefix, message.Subject, message.Data)
				if err != nil {
					b.logger.Warn("dropping malformed nats event",
						zap.String("subject", message.Subject),
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
	return b.conn.Drain()
}

func Connect(url string, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
	)
}
