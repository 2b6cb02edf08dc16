package store

import "ai-docchat-be/internal/entity"

// Snapshot is the session-scoped view of the chat state. The hosting runtime
// rebuilds every in-process object between interactions, so the cache adopts
// a surviving snapshot instead of re-fetching from the remote store.
type Snapshot struct {
	Conversations []entity.Conversation       `json:"conversations"`
	Histories     map[string][]entity.Message `json:"histories"`
	CurrentId     string                      `json:"current_id"`
}
