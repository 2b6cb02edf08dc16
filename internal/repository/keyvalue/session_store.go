package keyvalue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 1 * time.Hour

// SessionStore keeps session snapshots in Redis so multiple workers can share
// them. Snapshots are JSON documents keyed by session id.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

var _ contract.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) Load(ctx context.Context, key string) (*store.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &snapshot, true, nil
}

func (s *SessionStore) Save(ctx context.Context, key string, snapshot *store.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	return s.client.Set(ctx, s.redisKey(key), raw, sessionTTL).Err()
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.redisKey(key)).Err()
}

func (s *SessionStore) redisKey(key string) string {
	return "chat:session:" + key
}
