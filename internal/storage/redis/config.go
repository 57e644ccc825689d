package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// PresenceTTL is the expiry on online presence markers. It is the
	// crash backstop: a client that vanishes without its on-disconnect
	// write being replayed simply ages out to "no record", which
	// readers treat as offline.
	PresenceTTL time.Duration

	// PingInterval drives the connectivity probe behind
	// SubscribeConnectivity.
	PingInterval time.Duration

	// PingTimeout bounds each individual probe.
	PingTimeout time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PresenceTTL:  2 * time.Minute,
		PingInterval: 2 * time.Second,
		PingTimeout:  1 * time.Second,
	}
}
