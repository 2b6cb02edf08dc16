package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// SessionScoped marks events addressed to one session's clients rather than
// every connected client.
type SessionScoped interface {
	Event
	SessionKey() string
}

// BaseEvent carries the common fields; constructors below build valid
// instances. An empty Session means the event is global.
type BaseEvent struct {
	Type       string
	Session    string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func (e BaseEvent) SessionKey() string {
	return e.Session
}

const (
	TypeTurnCompleted    = "CHAT_TURN_COMPLETED"
	TypeTitleGenerated   = "CHAT_TITLE_GENERATED"
	TypeThresholdChanged = "RAG_THRESHOLD_CHANGED"
)

// NewTurnCompleted records one finished chat turn for one session.
func NewTurnCompleted(sessionKey string, conversationId string, usedRetrieval bool, sources int, persisted bool) Event {
	return BaseEvent{
		Type:    TypeTurnCompleted,
		Session: sessionKey,
		Data: map[string]interface{}{
			"conversation_id": conversationId,
			"used_retrieval":  usedRetrieval,
			"sources":         sources,
			"persisted":       persisted,
		},
		OccurredAt: time.Now(),
	}
}

// NewTitleGenerated records an automatic title assignment for one session.
func NewTitleGenerated(sessionKey string, conversationId string, title string) Event {
	return BaseEvent{
		Type:    TypeTitleGenerated,
		Session: sessionKey,
		Data: map[string]interface{}{
			"conversation_id": conversationId,
			"title":           title,
		},
		OccurredAt: time.Now(),
	}
}

// NewThresholdChanged records a runtime gate adjustment.
func NewThresholdChanged(threshold float64) Event {
	return BaseEvent{
		Type: TypeThresholdChanged,
		Data: map[string]interface{}{
			"threshold": threshold,
		},
		OccurredAt: time.Now(),
	}
}
