package capability

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// TokenStore tracks which session tokens are live, so sign-out and expiry
// revoke them across process restarts.
type TokenStore interface {
	Save(ctx context.Context, tokenID, identity string, ttl time.Duration) error
	Revoke(ctx context.Context, tokenID string) error
	Valid(ctx context.Context, tokenID string) (bool, error)
}

type redisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore returns a Redis-backed TokenStore.
func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) Save(ctx context.Context, tokenID, identity string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKeyPrefix+tokenID, identity, ttl).Err()
}

func (s *redisTokenStore) Revoke(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+tokenID).Err()
}

func (s *redisTokenStore) Valid(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryTokenStore is an in-process TokenStore for tests and local runs.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryTokenStore creates an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]time.Time)}
}

func (s *MemoryTokenStore) Save(_ context.Context, tokenID, _ string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenID] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryTokenStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tokenID)
	return nil
}

func (s *MemoryTokenStore) Valid(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.entries, tokenID)
		return false, nil
	}
	return true, nil
}
