// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/connectors"
)

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v"))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, _ = s.Get(ctx, "k")
	assert.False(t, ok)
}

func newRedisStorage(t *testing.T, ttl time.Duration) (Storage, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	logger, err := commons.NewApplicationLogger(commons.Name("test-session"))
	require.NoError(t, err)
	return NewRedisStorage(connectors.NewRedisConnectorWithClient(client, logger), ttl), mock
}

func TestRedisStorageSetGet(t *testing.T) {
	s, mock := newRedisStorage(t, time.Hour)
	ctx := context.Background()

	mock.ExpectSet("k", "v", time.Hour).SetVal("OK")
	require.NoError(t, s.Set(ctx, "k", "v"))

	mock.ExpectGet("k").SetVal("v")
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorageMissingKey(t *testing.T) {
	s, mock := newRedisStorage(t, time.Hour)

	mock.ExpectGet("absent").RedisNil()
	_, ok, err := s.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorageDelete(t *testing.T) {
	s, mock := newRedisStorage(t, time.Hour)

	mock.ExpectDel("k").SetVal(1)
	require.NoError(t, s.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}
