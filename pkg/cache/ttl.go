// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package cache provides an explicitly constructed, injectable key/value
// store with per-entry expiry. Components share one by dependency
// injection instead of reaching for module-level mutable state, so entry
// lifetime and test isolation stay explicit.
package cache

import (
	"sync"
	"time"

	"github.com/voyago/voice-core/pkg/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map whose entries expire after a fixed duration.
// A zero ttl means entries never expire until invalidated.
type TTL[V any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	ttl     time.Duration
	entries map[string]entry[V]
}

func NewTTL[V any](clk clock.Clock, ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		clk:     clk,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value when present and not expired. Expired
// entries are removed on access.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !e.expiresAt.IsZero() && !c.clk.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.clk.Now().Add(c.ttl)
	}
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// SetUntil stores a value with an explicit expiry instant, overriding the
// cache-wide ttl for this entry. Used when the cached value has a
// lifetime of its own that the entry must not outlive. A zero expiresAt
// never expires.
func (c *TTL[V]) SetUntil(key string, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Invalidate removes a single entry.
func (c *TTL[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Reset drops every entry.
func (c *TTL[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}
