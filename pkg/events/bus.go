package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic is the single in-process channel all chat events flow through.
const Topic = "chat.events"

type envelope struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Bus is an in-process pub/sub fabric for chat events. Publishing is
// fire-and-forget from the caller's perspective; a slow subscriber must never
// stall a chat turn.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger),
	}
}

func (b *Bus) Publish(event Event) error {
	payload, err := json.Marshal(envelope{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", event.EventType())
	if scoped, ok := event.(SessionScoped); ok && scoped.SessionKey() != "" {
		msg.Metadata.Set("session", scoped.SessionKey())
	}
	return b.pubsub.Publish(Topic, msg)
}

// Subscribe returns the raw message channel for the shared topic. Callers
// filter on the "type" metadata key and must Ack every message.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
