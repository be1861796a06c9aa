// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/configs"
)

type RedisConnector interface {
	Client() *redis.Client
}

type redisConnector struct {
	client *redis.Client
	logger commons.Logger
}

func NewRedisConnector(ctx context.Context, cfg configs.RedisConfig, logger commons.Logger) (RedisConnector, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect redis %s: %w", cfg.Addr(), err)
	}

	logger.Infof("connected redis %s", cfg.Addr())
	return &redisConnector{client: client, logger: logger}, nil
}

// NewRedisConnectorWithClient wraps an existing client. Used by tests
// running against redismock.
func NewRedisConnectorWithClient(client *redis.Client, logger commons.Logger) RedisConnector {
	return &redisConnector{client: client, logger: logger}
}

func (c *redisConnector) Client() *redis.Client {
	return c.client
}
