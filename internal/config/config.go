// Package config loads and validates the bot configuration from the
// environment. A .env file is honored for development; the environment always
// wins in production.
package config

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Bancho IRC session.
	IRCHost     string `envconfig:"OSU_IRC_HOST" default:"irc.ppy.sh" validate:"required"`
	IRCPort     int    `envconfig:"OSU_IRC_PORT" default:"6667" validate:"required,min=1,max=65535"`
	IRCNick     string `envconfig:"OSU_IRC_NICK" validate:"required"`
	IRCPassword string `envconfig:"OSU_IRC_PASSWORD" validate:"required"`

	// Referee behaviour.
	Referee       string `envconfig:"OSU_REFEREE" validate:"required"`
	MatchPassword string `envconfig:"OSU_MATCH_PASSWORD" validate:"required"`

	// osu! v2 API OAuth application.
	OsuClientID     int64  `envconfig:"OSU_API_CLIENT_ID" validate:"required"`
	OsuClientSecret string `envconfig:"OSU_API_CLIENT_SECRET" validate:"required"`

	// NATS JetStream.
	NatsURL string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222" validate:"required"`

	// SurrealDB.
	DBUrl  string `envconfig:"SURREAL_URL" validate:"required"`
	DBNs   string `envconfig:"SURREAL_NS" validate:"required"`
	DBDb   string `envconfig:"SURREAL_DB" validate:"required"`
	DBUser string `envconfig:"SURREAL_USER"`
	DBPass string `envconfig:"SURREAL_PASS"`

	// Operational surface.
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &cfg, nil
}
