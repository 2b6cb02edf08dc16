package contract

import (
	"context"

	"ai-docchat-be/pkg/store"
)

// SessionStore holds per-session snapshots across request cycles. Load
// reports whether a snapshot existed so callers can distinguish "fresh
// session" from "adopted state".
type SessionStore interface {
	Load(ctx context.Context, key string) (*store.Snapshot, bool, error)
	Save(ctx context.Context, key string, snapshot *store.Snapshot) error
	Delete(ctx context.Context, key string) error
}
