package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

// Persister is the durable backing for a client store. Load reports false when
// nothing has been saved under key yet.
type Persister interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Save(ctx context.Context, key string, value any) error
}

// MemoryPersister keeps JSON copies in process. Values are round-tripped through
// JSON so stores never share memory with what they saved.
type MemoryPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: map[string][]byte{}}
}

func (m *MemoryPersister) Load(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

// RedisPersister stores client state in Redis with a sliding TTL. Keys come
// from redis.Client.CartKey and WishlistKey.
type RedisPersister struct {
	store redis.JSONStore
	ttl   time.Duration
}

func NewRedisPersister(store redis.JSONStore, ttl time.Duration) *RedisPersister {
	return &RedisPersister{store: store, ttl: ttl}
}

func (r *RedisPersister) Load(ctx context.Context, key string, dest any) (bool, error) {
	ok, err := r.store.GetJSON(ctx, key, dest)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	return ok, nil
}

func (r *RedisPersister) Save(ctx context.Context, key string, value any) error {
	if err := r.store.SetJSON(ctx, key, value, r.ttl); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
