// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package configs

import "fmt"

type PostgresAuth struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PostgresConfig struct {
	Host               string       `mapstructure:"host" validate:"required"`
	Port               int          `mapstructure:"port" validate:"required"`
	DBName             string       `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuth `mapstructure:"auth"`
	MaxOpenConnection  int          `mapstructure:"max_open_connection"`
	MaxIdealConnection int          `mapstructure:"max_ideal_connection"`
	SSLMode            string       `mapstructure:"ssl_mode"`
}

// DSN renders the gorm/pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Auth.User, c.Auth.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
