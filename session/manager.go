// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package session derives and persists the conversation identifier every
// exchange with the assistant service carries. Keys expire 24 hours after
// creation; a fresh one is minted lazily on next access.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/voyago/voice-core/pkg/cache"
	"github.com/voyago/voice-core/pkg/clock"
	"github.com/voyago/voice-core/pkg/commons"
)

const (
	keyPrefix = "chat"

	storageKey          = "voice_chat_session_key"
	storageTimestampKey = "voice_chat_session_key_ts"
)

// DefaultTTL is how long a key stays valid, measured from its stored
// creation timestamp.
const DefaultTTL = 24 * time.Hour

type Option func(*Manager)

// WithClock substitutes the time source.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clk = clk }
}

// WithTTL overrides the key time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithCache injects a shared key cache so several widgets on one page
// resolve the same conversation without re-reading storage.
func WithCache(c *cache.TTL[string]) Option {
	return func(m *Manager) { m.cache = c }
}

// Manager owns the active session key lifecycle.
type Manager struct {
	logger  commons.Logger
	storage Storage
	clk     clock.Clock
	ttl     time.Duration
	cache   *cache.TTL[string]

	mu     sync.Mutex
	active string
}

func NewManager(logger commons.Logger, storage Storage, opts ...Option) *Manager {
	m := &Manager{
		logger:  logger,
		storage: storage,
		clk:     clock.New(),
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads the persisted key, minting a fresh one when absent or
// older than the TTL. Calling again with the same actor/discriminator
// before expiry returns the identical key.
func (m *Manager) Initialize(ctx context.Context, actorID, discriminator string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache != nil {
		if key, ok := m.cache.Get(cacheKey(actorID, discriminator)); ok {
			m.active = key
			return key, nil
		}
	}

	stored, createdAt, err := m.read(ctx)
	if err != nil {
		return "", err
	}
	now := m.clk.Now()
	if stored != "" && now.Sub(createdAt) <= m.ttl {
		m.active = stored
		m.remember(actorID, discriminator, stored, createdAt)
		return stored, nil
	}
	if stored != "" {
		m.logger.Debugf("session key expired (age %s), minting a new one", now.Sub(createdAt))
		m.storage.Delete(ctx, storageKey)
		m.storage.Delete(ctx, storageTimestampKey)
	}

	key := mint(now, actorID, discriminator)
	if err := m.persist(ctx, key, now); err != nil {
		return "", err
	}
	m.active = key
	m.remember(actorID, discriminator, key, now)
	m.logger.Debugf("session key minted: %s", key)
	return key, nil
}

// Override force-sets the active key; its stored timestamp is refreshed so
// it is treated as newly created for expiry purposes.
func (m *Manager) Override(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.persist(ctx, key, m.clk.Now()); err != nil {
		return err
	}
	m.active = key
	if m.cache != nil {
		m.cache.Reset()
	}
	return nil
}

// Clear removes the persisted key and timestamp; the active key becomes
// absent until the next Initialize.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.storage.Delete(ctx, storageKey); err != nil {
		return err
	}
	if err := m.storage.Delete(ctx, storageTimestampKey); err != nil {
		return err
	}
	m.active = ""
	if m.cache != nil {
		m.cache.Reset()
	}
	return nil
}

// Active returns the current key, empty when none has been initialized.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Manager) read(ctx context.Context) (string, time.Time, error) {
	key, ok, err := m.storage.Get(ctx, storageKey)
	if err != nil || !ok {
		return "", time.Time{}, err
	}
	raw, ok, err := m.storage.Get(ctx, storageTimestampKey)
	if err != nil || !ok {
		return "", time.Time{}, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// unreadable timestamp: treat the stored key as expired
		return "", time.Time{}, nil
	}
	return key, time.UnixMilli(millis), nil
}

func (m *Manager) persist(ctx context.Context, key string, createdAt time.Time) error {
	if err := m.storage.Set(ctx, storageKey, key); err != nil {
		return err
	}
	return m.storage.Set(ctx, storageTimestampKey, strconv.FormatInt(createdAt.UnixMilli(), 10))
}

// remember anchors the cache entry's expiry to the key's creation
// instant. A re-remembered key late in its window must never outlive the
// window itself, so the cache-wide ttl does not apply here.
func (m *Manager) remember(actorID, discriminator, key string, createdAt time.Time) {
	if m.cache != nil {
		m.cache.SetUntil(cacheKey(actorID, discriminator), key, createdAt.Add(m.ttl))
	}
}

func cacheKey(actorID, discriminator string) string {
	return actorID + "|" + discriminator
}

// mint builds chat_<timestamp>_<u_<actorId>|anon>[_<discriminator>].
func mint(now time.Time, actorID, discriminator string) string {
	actor := "anon"
	if actorID != "" {
		actor = "u_" + actorID
	}
	key := fmt.Sprintf("%s_%d_%s", keyPrefix, now.UnixMilli(), actor)
	if discriminator != "" {
		key += "_" + discriminator
	}
	return key
}
