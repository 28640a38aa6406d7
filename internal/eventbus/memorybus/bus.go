package memorybus

import (
	"context"
	"sync"

	"github.com/goevery/gateway/internal/eventbus"
)

// Bus is an in-process event bus for producers living in the same process.
// It supports a single subscriber at a time.
type Bus struct {
	events    chan eventbus.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewBus(bufferSize int) *Bus {
	return &Bus{
		events: make(chan eventbus.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := eventbus.Encode(topic, payload)
	if err != nil {
		return err
	}

	select {
	case <-b.done:
		return eventbus.ErrClosed
	default:
	}

	select {
	case b.events <- eventbus.Event{Topic: topic, Payload: data}:
		return nil
	case <-b.done:
		return eventbus.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan eventbus.Event, error) {
	select {
	case <-b.done:
		return nil, eventbus.ErrClosed
	default:
	}

	out := make(chan eventbus.Event)

	go func() {
		defer close(out)

		for {
			select {
			case event := <-b.events:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-b.done:
					return
				}
			case <-ctx.Done():
				return
			case <-b.done:
				return
			}
		}
	}()

	return out, nil
}

func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
	})

	return nil
}
