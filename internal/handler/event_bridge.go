package handler

import (
	"context"
	"encoding/json"

	"ai-docchat-be/internal/pkg/logger"
	internalWS "ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/events"
)

// EventBridge relays bus events to connected websocket clients so the UI can
// refresh titles and retrieval settings without polling.
type EventBridge struct {
	bus    *events.Bus
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewEventBridge(bus *events.Bus, hub *internalWS.Hub, log logger.ILogger) *EventBridge {
	return &EventBridge{
		bus:    bus,
		hub:    hub,
		logger: log,
	}
}

// Run blocks until ctx is cancelled, forwarding each event as an "event"
// frame. Session-scoped events go to that session's clients only; the rest
// fan out to everyone.
func (b *EventBridge) Run(ctx context.Context) error {
	messages, err := b.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for msg := range messages {
		frame := Frame{Type: "event", Data: json.RawMessage(msg.Payload)}
		if session := msg.Metadata.Get("session"); session != "" {
			b.hub.SendToSession(session, frame)
		} else {
			b.hub.Broadcast(frame)
		}
		msg.Ack()
	}
	return nil
}
