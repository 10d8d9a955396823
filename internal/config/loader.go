package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RLB_CONFIG is set
//  3. env (prefix RLB_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RLB_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: RLB_ADDR, RLB_WORKER_COUNT, ...
	// Keys map like RLB_WORKER_COUNT -> worker_count to match koanf tags.
	envProvider := env.Provider("RLB_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rlb_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.RankStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr required for redis rank store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown rank_store %q", ErrInvalidConfig, c.RankStore)
	}
	switch c.DurableStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url required for postgres durable store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown durable_store %q", ErrInvalidConfig, c.DurableStore)
	}
	return nil
}
