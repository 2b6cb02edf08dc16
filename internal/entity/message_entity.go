package entity

import (
	"fmt"
	"time"
)

// Role is a closed set. Anything else coming from the store is rejected at
// ingestion instead of being silently skipped.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a raw role string from the store or the wire.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser, RoleAssistant:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown message role %q", raw)
	}
}

// Message is an immutable entry in a conversation history. Provenance is nil
// unless the assistant answer was grounded in retrieved chunks.
type Message struct {
	Id             string
	ConversationId string
	Role           Role
	Content        string
	IsRetrieved    bool
	Provenance     []ChunkRef
	CreatedAt      time.Time
}

// ChunkRef is the compact, persisted record of one retrieval hit that informed
// an assistant message. ChunkID is derived from the hit location so the same
// chunk always maps to the same id.
type ChunkRef struct {
	ChunkID  string  `json:"chunk_id"`
	Distance float64 `json:"distance"`
	Source   string  `json:"source"`
}
