package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"inkwell/internal/observability"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// LocalBroadcaster delivers events in process through a watermill go-channel pub/sub.
// It serves single-instance deployments that run without Redis.
type LocalBroadcaster struct {
	bus *gochannel.GoChannel
}

// NewLocalBroadcaster creates an in-process broadcaster.
func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{
		bus: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{}),
	}
}

// Publish delivers event to current subscribers of topic.
func (b *LocalBroadcaster) Publish(_ context.Context, topic string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.bus.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		observability.BroadcastsPublished.WithLabelValues(event.Type, "error").Inc()
		return err
	}
	observability.BroadcastsPublished.WithLabelValues(event.Type, "ok").Inc()
	return nil
}

// Subscribe returns a channel of raw event payloads published on topic until ctx is done.
func (b *LocalBroadcaster) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	msgs, err := b.bus.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		for msg := range msgs {
			select {
			case out <- msg.Payload:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down.
func (b *LocalBroadcaster) Close() error {
	return b.bus.Close()
}
