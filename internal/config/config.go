// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"OBLOG_DB_PATH" envDefault:"./data/oblog.db"`
	DBDriver      string `env:"OBLOG_DB_DRIVER" envDefault:"sqlite"` // sqlite (pure Go) or sqlite3 (cgo)
	SessionSecret string `env:"OBLOG_SESSION_SECRET,required"`
	ServerHost    string `env:"OBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OBLOG_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"OBLOG_ENV" envDefault:"development"`
	LogLevel      string `env:"OBLOG_LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"OBLOG_LOG_FORMAT" envDefault:"text"`

	// Seeding
	DoSeed        bool   `env:"OBLOG_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"OBLOG_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"OBLOG_ADMIN_PASSWORD" envDefault:"changeme"`

	// Cache configuration
	RedisURL          string `env:"OBLOG_REDIS_URL"` // Optional Redis URL for shared caching
	CachePrefix       string `env:"OBLOG_CACHE_PREFIX" envDefault:"oblog:"`
	DashboardCacheTTL int    `env:"OBLOG_DASHBOARD_CACHE_TTL" envDefault:"0"` // seconds, 0 disables

	// GeoIP configuration
	GeoIPDBPath string `env:"OBLOG_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	// Public tracking endpoint limits, per client IP
	TrackRateLimit float64 `env:"OBLOG_TRACK_RATE_LIMIT" envDefault:"10"` // events per second
	TrackBurst     int     `env:"OBLOG_TRACK_BURST" envDefault:"30"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// DashboardCacheDuration returns the dashboard cache TTL. Zero disables
// caching.
func (c Config) DashboardCacheDuration() time.Duration {
	if c.DashboardCacheTTL <= 0 {
		return 0
	}
	return time.Duration(c.DashboardCacheTTL) * time.Second
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("OBLOG_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("OBLOG_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	switch cfg.DBDriver {
	case "sqlite", "sqlite3":
	default:
		return nil, fmt.Errorf("OBLOG_DB_DRIVER must be sqlite or sqlite3, got %q", cfg.DBDriver)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		return nil, fmt.Errorf("OBLOG_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.TrackRateLimit <= 0 || cfg.TrackBurst <= 0 {
		return nil, fmt.Errorf("OBLOG_TRACK_RATE_LIMIT and OBLOG_TRACK_BURST must be positive")
	}

	if !cfg.IsDevelopment() && cfg.DoSeed && cfg.AdminPassword == "changeme" {
		slog.Warn("seeding the default admin password outside development; set OBLOG_ADMIN_PASSWORD")
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("OBLOG_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
