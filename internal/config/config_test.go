// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// TestLoadFrom_Defaults verifies that an empty environment yields sensible
// development defaults.
func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom() returned unexpected error: %v", err)
	}

	defaults := map[string]string{
		"Host":                cfg.Host,
		"Port":                cfg.Port,
		"Env":                 cfg.Env,
		"DBHost":              cfg.DBHost,
		"DBUser":              cfg.DBUser,
		"DBName":              cfg.DBName,
		"ValkeyPort":          cfg.ValkeyPort,
		"SnapshotKey":         cfg.SnapshotKey,
		"S3Bucket":            cfg.S3Bucket,
		"ArchiveStorageClass": cfg.ArchiveStorageClass,
		"IngestSubject":       cfg.IngestSubject,
		"ImportPrefix":        cfg.ImportPrefix,
		"ArchiveSchedule":     cfg.ArchiveSchedule,
		"FFProbePath":         cfg.FFProbePath,
	}
	want := map[string]string{
		"Host":                "0.0.0.0",
		"Port":                "8080",
		"Env":                 "development",
		"DBHost":              "localhost",
		"DBUser":              "backdrop",
		"DBName":              "backdrop",
		"ValkeyPort":          "6379",
		"SnapshotKey":         "themes:published",
		"S3Bucket":            "backdrop-themes",
		"ArchiveStorageClass": "GLACIER",
		"IngestSubject":       "themes.objects.created",
		"ImportPrefix":        "imports/",
		"ArchiveSchedule":     "0 3 * * *",
		"FFProbePath":         "ffprobe",
	}
	for field, got := range defaults {
		if got != want[field] {
			t.Errorf("%s: got %q, want %q", field, got, want[field])
		}
	}

	if cfg.PublishInterval != 15*time.Minute {
		t.Errorf("PublishInterval: got %v, want 15m", cfg.PublishInterval)
	}
	if cfg.ProbeTimeout != 20*time.Second {
		t.Errorf("ProbeTimeout: got %v, want 20s", cfg.ProbeTimeout)
	}
	if cfg.StrictValidation {
		t.Error("StrictValidation should default to false")
	}
	if !cfg.IsDev() {
		t.Error("IsDev() should be true by default")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"APP_PORT":          "9090",
		"PUBLISH_INTERVAL":  "1m30s",
		"PROBE_TIMEOUT":     "5s",
		"MIN_WIDTH":         "1920",
		"MIN_HEIGHT":        "1080",
		"RATIO_TOLERANCE":   "0.05",
		"STRICT_VALIDATION": "true",
		"LOG_LEVEL":         "debug",
	})
	if err != nil {
		t.Fatalf("LoadFrom() returned unexpected error: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:9090" {
		t.Errorf("Addr: got %q", cfg.Addr())
	}
	if cfg.PublishInterval != 90*time.Second {
		t.Errorf("PublishInterval: got %v", cfg.PublishInterval)
	}

	p := cfg.Policy()
	if p.MinWidth != 1920 || p.MinHeight != 1080 || p.RatioTolerance != 0.05 || !p.Strict {
		t.Errorf("Policy: got %+v", p)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v", cfg.SlogLevel())
	}
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "production requires password",
			vars:    map[string]string{"APP_ENV": "production"},
			wantErr: "POSTGRES_PASSWORD",
		},
		{
			name:    "zero publish interval",
			vars:    map[string]string{"PUBLISH_INTERVAL": "0s"},
			wantErr: "PUBLISH_INTERVAL",
		},
		{
			name:    "tolerance out of range",
			vars:    map[string]string{"RATIO_TOLERANCE": "1.5"},
			wantErr: "RATIO_TOLERANCE",
		},
		{
			name:    "malformed duration",
			vars:    map[string]string{"PROBE_TIMEOUT": "soon"},
			wantErr: "ProbeTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.vars)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFrom_ProductionWithPassword(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"APP_ENV": "production", "POSTGRES_PASSWORD": "s3cret"})
	if err != nil {
		t.Fatalf("LoadFrom() returned unexpected error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev() should be false in production")
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "n"}
	if got, want := cfg.DSN(), "postgres://u:p@db:5433/n?sslmode=disable"; got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (&Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q): got %v, want %v", in, got, want)
		}
	}
}
