/*
Copyright (C) 2026 Segue Media

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Playback engine timing. Defaults reproduce the timing contract the
	// engine is specified against; tests shrink them to millisecond scale.
	FadeLeadSeconds      float64       // boundary trigger = segment end minus this
	FadeStepSize         int           // volume points removed/added per ramp step
	FadeStepInterval     time.Duration // delay between ramp steps
	FadeSettleDelay      time.Duration // pause between fade-out and fade-in
	MonitorInterval      time.Duration // boundary poll period
	DescriptionDwell     time.Duration // how long a description card stays up
	SkipDelay            time.Duration // pause before skipping an unplayable item
	SettlingGrace        time.Duration // dispatch suppression window after a mount change
	MountWaitInterval    time.Duration // poll period while waiting for the player mount
	MountWaitTimeout     time.Duration // give up waiting for the mount after this
	DurationSafetyMargin float64       // seconds shaved off the reported video duration

	// External event mirrors
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSEnabled   bool
	NATSURL       string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SEGUE_ENV", "development"),
		HTTPBind:    getEnv("SEGUE_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SEGUE_HTTP_PORT", 8080),
		DBBackend:   DatabaseBackend(getEnv("SEGUE_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("SEGUE_DB_DSN", "segue.db"),
		MetricsBind: getEnv("SEGUE_METRICS_BIND", "127.0.0.1:9000"),

		FadeLeadSeconds:      getEnvFloat("SEGUE_FADE_LEAD_SECONDS", 3.0),
		FadeStepSize:         getEnvInt("SEGUE_FADE_STEP_SIZE", 5),
		FadeStepInterval:     getEnvDuration("SEGUE_FADE_STEP_INTERVAL", 150*time.Millisecond),
		FadeSettleDelay:      getEnvDuration("SEGUE_FADE_SETTLE_DELAY", 300*time.Millisecond),
		MonitorInterval:      getEnvDuration("SEGUE_MONITOR_INTERVAL", time.Second),
		DescriptionDwell:     getEnvDuration("SEGUE_DESCRIPTION_DWELL", 3*time.Second),
		SkipDelay:            getEnvDuration("SEGUE_SKIP_DELAY", time.Second),
		SettlingGrace:        getEnvDuration("SEGUE_SETTLING_GRACE", 2*time.Second),
		MountWaitInterval:    getEnvDuration("SEGUE_MOUNT_WAIT_INTERVAL", 100*time.Millisecond),
		MountWaitTimeout:     getEnvDuration("SEGUE_MOUNT_WAIT_TIMEOUT", 5*time.Second),
		DurationSafetyMargin: getEnvFloat("SEGUE_DURATION_SAFETY_MARGIN", 1.0),

		RedisEnabled:  getEnvBool("SEGUE_REDIS_ENABLED", false),
		RedisAddr:     getEnv("SEGUE_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("SEGUE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SEGUE_REDIS_DB", 0),
		NATSEnabled:   getEnvBool("SEGUE_NATS_ENABLED", false),
		NATSURL:       getEnv("SEGUE_NATS_URL", "nats://localhost:4222"),

		TracingEnabled:    getEnvBool("SEGUE_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SEGUE_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SEGUE_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SEGUE_DB_DSN must be provided")
	}

	if cfg.FadeStepSize <= 0 || cfg.FadeStepSize > 100 {
		return nil, fmt.Errorf("SEGUE_FADE_STEP_SIZE must be between 1 and 100, got %d", cfg.FadeStepSize)
	}

	for key, d := range map[string]time.Duration{
		"SEGUE_FADE_STEP_INTERVAL":  cfg.FadeStepInterval,
		"SEGUE_MONITOR_INTERVAL":    cfg.MonitorInterval,
		"SEGUE_MOUNT_WAIT_INTERVAL": cfg.MountWaitInterval,
		"SEGUE_MOUNT_WAIT_TIMEOUT":  cfg.MountWaitTimeout,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("%s must be positive", key)
		}
	}

	if cfg.FadeLeadSeconds < 0 {
		return nil, fmt.Errorf("SEGUE_FADE_LEAD_SECONDS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}
