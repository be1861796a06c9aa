// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package chatstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/connectors"
	"github.com/voyago/voice-core/pkg/utils"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Message{}))

	log, err := commons.NewApplicationLogger(commons.Name("test-chatstore"))
	require.NoError(t, err)
	return NewStore(connectors.NewPostgresConnectorWithDB(db, log), log)
}

func save(t *testing.T, s Store, sessionKey string, audioURL *string, createdAt time.Time) string {
	t.Helper()
	id, err := s.Save(context.Background(), &Message{
		SessionKey:  sessionKey,
		Role:        RoleUser,
		Content:     "bonjour",
		AudioURL:    audioURL,
		Language:    "fr",
		CreatedDate: createdAt,
	})
	require.NoError(t, err)
	return id
}

func TestSaveGeneratesID(t *testing.T) {
	s := newTestStore(t)
	id := save(t, s, "chat_1_anon", nil, time.Now())
	assert.NotEmpty(t, id)
}

func TestHistoryOrdered(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)
	save(t, s, "chat_1_anon", nil, base.Add(2*time.Minute))
	save(t, s, "chat_1_anon", nil, base)
	save(t, s, "chat_other", nil, base)

	history, err := s.History(context.Background(), "chat_1_anon")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CreatedDate.Before(history[1].CreatedDate))
}

func TestDeleteAgedAudioRetentionBoundary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	save(t, s, "chat_a", utils.Ptr("https://cdn.example.com/13d.wav"), now.Add(-13*24*time.Hour))
	save(t, s, "chat_a", utils.Ptr("https://cdn.example.com/14d.wav"), now.Add(-14*24*time.Hour))
	save(t, s, "chat_a", utils.Ptr("https://cdn.example.com/15d.wav"), now.Add(-15*24*time.Hour))
	// aged but text-only: retained
	save(t, s, "chat_a", nil, now.Add(-20*24*time.Hour))

	deleted, err := s.DeleteAgedAudio(ctx, now.Add(-14*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted, "only the 15-day record crosses the boundary")

	history, err := s.History(ctx, "chat_a")
	require.NoError(t, err)
	assert.Len(t, history, 3)
	for _, m := range history {
		if m.HasAudio() {
			assert.NotContains(t, *m.AudioURL, "15d")
		}
	}
}

func TestDeleteAgedAudioEmptyTable(t *testing.T) {
	s := newTestStore(t)
	deleted, err := s.DeleteAgedAudio(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
