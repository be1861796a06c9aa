// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/configs"
)

// PostgresConnector hands out the shared gorm handle. Stores depend on
// this rather than on *gorm.DB directly so tests can substitute an
// in-memory database.
type PostgresConnector interface {
	DB(ctx context.Context) *gorm.DB
}

type postgresConnector struct {
	db     *gorm.DB
	logger commons.Logger
}

func NewPostgresConnector(cfg configs.PostgresConfig, logger commons.Logger) (PostgresConnector, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("unable to connect postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.DBName, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to access underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConnection > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConnection)
	}
	if cfg.MaxIdealConnection > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdealConnection)
	}

	logger.Infof("connected postgres %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &postgresConnector{db: db, logger: logger}, nil
}

// NewPostgresConnectorWithDB wraps an already opened gorm handle. Used by
// tests that run against sqlite.
func NewPostgresConnectorWithDB(db *gorm.DB, logger commons.Logger) PostgresConnector {
	return &postgresConnector{db: db, logger: logger}
}

func (c *postgresConnector) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}
