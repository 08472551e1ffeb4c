// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"backdrop/internal/media"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host     string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"APP_PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL connection
	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"backdrop"`
	DBPassword string `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	DBName     string `env:"POSTGRES_DB" envDefault:"backdrop"`

	// Valkey (Redis-compatible) holds the published snapshot and job locks.
	ValkeyHost     string `env:"VALKEY_HOST" envDefault:"localhost"`
	ValkeyPort     string `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword string `env:"VALKEY_PASSWORD"`
	SnapshotKey    string `env:"SNAPSHOT_KEY" envDefault:"themes:published"`

	// S3-compatible object storage
	S3Endpoint          string `env:"S3_ENDPOINT"`
	S3Region            string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey         string `env:"S3_ACCESS_KEY"`
	S3SecretKey         string `env:"S3_SECRET_KEY"`
	S3Bucket            string `env:"S3_BUCKET" envDefault:"backdrop-themes"`
	S3PublicURL         string `env:"S3_PUBLIC_URL"`
	ArchiveStorageClass string `env:"ARCHIVE_STORAGE_CLASS" envDefault:"GLACIER"`

	// NATS carries bucket notifications for bulk imports.
	NATSURL       string `env:"NATS_URL"`
	IngestSubject string `env:"INGEST_SUBJECT" envDefault:"themes.objects.created"`
	IngestQueue   string `env:"INGEST_QUEUE" envDefault:"backdrop-ingest"`
	ImportPrefix  string `env:"IMPORT_PREFIX" envDefault:"imports/"`

	// Periodic jobs
	PublishInterval time.Duration `env:"PUBLISH_INTERVAL" envDefault:"15m"`
	ArchiveSchedule string        `env:"ARCHIVE_SCHEDULE" envDefault:"0 3 * * *"`

	// Media validation policy
	FFProbePath      string        `env:"FFPROBE_PATH" envDefault:"ffprobe"`
	ProbeTimeout     time.Duration `env:"PROBE_TIMEOUT" envDefault:"20s"`
	MinWidth         int           `env:"MIN_WIDTH" envDefault:"1280"`
	MinHeight        int           `env:"MIN_HEIGHT" envDefault:"720"`
	RatioTolerance   float64       `env:"RATIO_TOLERANCE" envDefault:"0.02"`
	StrictValidation bool          `env:"STRICT_VALIDATION" envDefault:"false"`
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory. Returns an error if
// critical values are missing in production mode.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses configuration from the given variables only, ignoring the
// process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}
	if cfg.PublishInterval <= 0 {
		return nil, fmt.Errorf("PUBLISH_INTERVAL must be positive")
	}
	if cfg.RatioTolerance < 0 || cfg.RatioTolerance >= 1 {
		return nil, fmt.Errorf("RATIO_TOLERANCE must be in [0, 1)")
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Policy returns the media validation policy as an immutable value.
func (c *Config) Policy() media.Policy {
	p := media.DefaultPolicy()
	p.MinWidth = c.MinWidth
	p.MinHeight = c.MinHeight
	p.RatioTolerance = c.RatioTolerance
	p.Strict = c.StrictValidation
	return p
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
