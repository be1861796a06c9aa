// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

package chatstore

import (
	"context"
	"fmt"
	"time"

	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/connectors"
)

// Store provides operations to save and retrieve chat messages from Postgres.
//
// Rows are append-only during a conversation; the only delete path is the
// retention purge of aged audio references driven by the cleanup scheduler.
type Store interface {
	// Save stores a message with a generated id (UUID). Returns the id.
	Save(ctx context.Context, msg *Message) (string, error)

	// History returns a conversation's messages in creation order.
	History(ctx context.Context, sessionKey string) ([]Message, error)

	// DeleteAgedAudio removes messages created before the cutoff that
	// carry an audio reference. Rows without audio are retained whatever
	// their age. Returns the number of rows removed.
	DeleteAgedAudio(ctx context.Context, before time.Time) (int64, error)
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates a new chat message store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) Save(ctx context.Context, msg *Message) (string, error) {
	db := s.postgres.DB(ctx)
	if err := db.Create(msg).Error; err != nil {
		return "", fmt.Errorf("failed to save chat message for %s: %w", msg.SessionKey, err)
	}

	s.logger.Debugf("saved chat message: id=%s, session=%s, role=%s, audio=%t",
		msg.Id, msg.SessionKey, msg.Role, msg.HasAudio())
	return msg.Id, nil
}

func (s *postgresStore) History(ctx context.Context, sessionKey string) ([]Message, error) {
	db := s.postgres.DB(ctx)
	var messages []Message
	if err := db.Where("session_key = ?", sessionKey).
		Order("created_date ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", sessionKey, err)
	}
	return messages, nil
}

// DeleteAgedAudio filters on createdDate < cutoff AND audio_url IS NOT NULL,
// the exact retention predicate of the cleanup scheduler.
func (s *postgresStore) DeleteAgedAudio(ctx context.Context, before time.Time) (int64, error) {
	db := s.postgres.DB(ctx)
	result := db.Where("created_date < ? AND audio_url IS NOT NULL", before).Delete(&Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete aged audio messages: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Infof("purged %d aged audio messages older than %s", result.RowsAffected, before.Format(time.RFC3339))
	}
	return result.RowsAffected, nil
}
