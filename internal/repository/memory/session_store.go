package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionStore keeps session snapshots in process memory. Snapshots are stored
// as encoded JSON so every Load decodes a fresh copy; two caches built for the
// same session never share slices or maps, and concurrent writers resolve to
// last-write-wins, matching the Redis-backed store.
type SessionStore struct {
	cache *cache.Cache
}

func NewSessionStore() *SessionStore {
	// Default expiration of 1 hour, expired entries purged every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &SessionStore{cache: c}
}

var _ contract.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Load(_ context.Context, key string) (*store.Snapshot, bool, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(x.([]byte), &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &snapshot, true, nil
}

func (s *SessionStore) Save(_ context.Context, key string, snapshot *store.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	s.cache.Set(key, raw, cache.DefaultExpiration)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
