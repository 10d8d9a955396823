// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars
//   on top of them.
// - External errors are wrapped via this package's error helpers.
package config

import "runtime"

// Backend selections for the ranking and durable stores.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RankStore selects the ranking store backend: memory or redis.
	RankStore string `koanf:"rank_store"`

	// RedisAddr is the Redis host:port used when RankStore is redis.
	RedisAddr string `koanf:"redis_addr"`

	// RedisKeyPrefix namespaces the ranking ZSET keys.
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// DurableStore selects the durable store backend: memory or postgres.
	DurableStore string `koanf:"durable_store"`

	// DatabaseURL is the Postgres DSN used when DurableStore is postgres.
	DatabaseURL string `koanf:"database_url"`

	// RefreshQueueSize bounds the in-memory refresh task queue.
	RefreshQueueSize int `koanf:"refresh_queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps the limit query parameter on reads.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// BroadcastWindow is the number of entries pushed to observers after a
	// mutation refreshes a board.
	BroadcastWindow int `koanf:"broadcast_window"`

	// ClientSendBuffer is the per-observer outbound message buffer.
	ClientSendBuffer int `koanf:"client_send_buffer"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		RankStore:           StoreMemory,
		RedisAddr:           "localhost:6379",
		RedisKeyPrefix:      "leaderboard:",
		DurableStore:        StoreMemory,
		DatabaseURL:         "",
		RefreshQueueSize:    10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          100_000,
		MaxLeaderboardLimit: 100,
		BroadcastWindow:     10,
		ClientSendBuffer:    64,
	}
}
