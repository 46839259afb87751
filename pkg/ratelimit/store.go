package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every lockout key written to Redis.
const RedisKeyPrefix = "airtable:rate_limit:"

// Store persists the lockout state.
type Store interface {
	// Get returns the current state. A missing state is the zero value.
	Get(ctx context.Context) (LockoutState, error)

	// Set records a lockout.
	Set(ctx context.Context, state LockoutState) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state LockoutState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context) (LockoutState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, state LockoutState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	return nil
}

// RedisStore keeps the state in Redis under one key per scope. The key
// expires with the lockout.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore returns a store for scope, typically the base id or a hash
// of the API key.
func NewRedisStore(redisClient *redis.Client, scope string) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		key:   RedisKeyPrefix + scope + ":lockout",
	}
}

// Key returns the Redis key holding the state.
func (r *RedisStore) Key() string {
	return r.key
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context) (LockoutState, error) {
	var state LockoutState

	data, err := r.redis.Get(ctx, r.key).Bytes()
	if err == redis.Nil {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode lockout state: %w", err)
	}
	return state, nil
}

// Set implements Store. States that are already over are not written.
func (r *RedisStore) Set(ctx context.Context, state LockoutState) error {
	ttl := time.Until(state.LockedUntil)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode lockout state: %w", err)
	}

	if err := r.redis.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
