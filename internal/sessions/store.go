package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"

	"parking-reservation-backend/internal/booking"
)

// MemoryStore keeps wizard snapshots in process memory. Snapshots are
// stored as JSON so callers never share a *Wizard.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates a MemoryStore whose entries expire after ttl of inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Get implements booking.SessionStore.
func (s *MemoryStore) Get(ctx context.Context, id string) (*booking.Wizard, error) {
	raw, found := s.cache.Get(id)
	if !found {
		return nil, booking.ErrSessionNotFound
	}
	return decode(raw.([]byte))
}

// Put implements booking.SessionStore.
func (s *MemoryStore) Put(ctx context.Context, w *booking.Wizard) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", w.ID, err)
	}
	s.cache.Set(w.ID, raw, s.ttl)
	return nil
}

// Delete implements booking.SessionStore.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// RedisStore keeps wizard snapshots in Redis so several instances can share them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "booking:session:"}
}

// Get implements booking.SessionStore.
func (s *RedisStore) Get(ctx context.Context, id string) (*booking.Wizard, error) {
	raw, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, booking.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return decode(raw)
}

// Put implements booking.SessionStore. Every write refreshes the TTL.
func (s *RedisStore) Put(ctx context.Context, w *booking.Wizard) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", w.ID, err)
	}
	if err := s.client.Set(ctx, s.prefix+w.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", w.ID, err)
	}
	return nil
}

// Delete implements booking.SessionStore.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

func decode(raw []byte) (*booking.Wizard, error) {
	var w booking.Wizard
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &w, nil
}
