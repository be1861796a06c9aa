// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voyago/voice-core/pkg/connectors"
)

// Storage persists the session key and its creation timestamp. Entries
// survive within one browsing session but are not expected to survive
// across sessions; expiry is enforced by the Manager, not the store.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ============================================================================
// In-memory storage
// ============================================================================

type memoryStorage struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryStorage returns a Storage scoped to the lifetime of the
// process, the closest server-side equivalent of session storage.
func NewMemoryStorage() Storage {
	return &memoryStorage{entries: make(map[string]string)}
}

func (s *memoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *memoryStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *memoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// ============================================================================
// Redis storage
// ============================================================================

type redisStorage struct {
	redis connectors.RedisConnector
	ttl   time.Duration
}

// NewRedisStorage returns a Storage backed by Redis, for deployments where
// session continuity must survive instance restarts. Entries carry a
// storage-level TTL as a safety net on top of the Manager's expiry.
func NewRedisStorage(redisConn connectors.RedisConnector, ttl time.Duration) Storage {
	return &redisStorage{redis: redisConn, ttl: ttl}
}

func (s *redisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Client().Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session storage get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *redisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.redis.Client().Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session storage set %s: %w", key, err)
	}
	return nil
}

func (s *redisStorage) Delete(ctx context.Context, key string) error {
	if err := s.redis.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("session storage delete %s: %w", key, err)
	}
	return nil
}
