// Package kv is the string key/value persistence the client keeps its
// instances and sessions in.
package kv

import (
	"context"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/imtaco/bedrud-client/internal/errors"
	"github.com/imtaco/bedrud-client/internal/log"
)

// Store never reports a read failure: a key that cannot be read is absent.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Backend     string `mapstructure:"backend"`
	File        string `mapstructure:"file"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

func Setup(v *viper.Viper, prefix string) {
	p := func(key string) string { return prefix + "." + key }

	v.SetDefault(p("backend"), BackendFile)
	v.SetDefault(p("file"), "")
	v.SetDefault(p("redis_prefix"), "bedrud")
}

// Open builds the configured backend. redisClient is only used by the redis backend.
func Open(cfg *Config, dataDir string, redisClient redis.UniversalClient, logger *log.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		path := cfg.File
		if path == "" {
			path = filepath.Join(dataDir, "store.json")
		}
		return NewFile(path, logger)
	case BackendRedis:
		if redisClient == nil {
			return nil, errors.New(errors.ErrValidation, "redis backend needs a redis client")
		}
		return NewRedis(redisClient, cfg.RedisPrefix, logger), nil
	default:
		return nil, errors.Newf(errors.ErrValidation, "unknown store backend %q", cfg.Backend)
	}
}
