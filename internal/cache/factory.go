package cache

import (
	"fmt"
	"net/url"
	"time"
)

// Config selects and configures a backend.
type Config struct {
	// Type is "memory" or "redis".
	Type string

	// RedisURL is required for the redis type.
	RedisURL string
	Prefix   string

	DefaultTTL time.Duration
}

// New creates the backend named by cfg.Type. An empty type means memory.
func New(cfg Config) (Cacher, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryCache(cfg.DefaultTTL, time.Minute), nil
	case "redis":
		c, err := NewRedisCache(RedisOptions{
			URL:        cfg.RedisURL,
			Prefix:     cfg.Prefix,
			DefaultTTL: cfg.DefaultTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", SanitizeRedisURL(cfg.RedisURL), err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// SanitizeRedisURL hides the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
