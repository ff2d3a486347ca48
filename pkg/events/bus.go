package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docchat-client/internal/constant"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic carries every client event on the in-process bus.
const Topic = "docchat.events"

// Publisher is what components depend on to broadcast state transitions.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is an in-process pub/sub backed by a watermill Go channel.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
	}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	occurredAt := event.Timestamp()
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	payload, err := json.Marshal(BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: occurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range messages {
			var event BaseEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				// Ack invalid messages to prevent infinite redelivery
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}

// NewNotification builds a transient user notification addressed to one tab.
func NewNotification(tabID, level, text string) BaseEvent {
	return BaseEvent{
		Type: constant.EventNotification,
		Data: map[string]interface{}{
			"tab_id":  tabID,
			"level":   level,
			"message": text,
		},
		OccurredAt: time.Now(),
	}
}
