package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/imtaco/bedrud-client/internal/log"
	"github.com/imtaco/bedrud-client/internal/retry"
)

const redisOpTimeout = 5 * time.Second

// redisStore keeps all keys as fields of one hash so a device's data can be
// dropped with a single DEL.
type redisStore struct {
	client redis.UniversalClient
	hash   string
	retry  retry.Retry
	logger *log.Logger
}

func NewRedis(client redis.UniversalClient, prefix string, logger *log.Logger) Store {
	if client == nil {
		panic("redis client is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &redisStore{
		client: client,
		hash:   prefix + ":kv",
		retry: retry.New(logger, retry.Policy{
			InitialInterval: 20 * time.Millisecond,
			MaxInterval:     500 * time.Millisecond,
			MaxElapsed:      redisOpTimeout,
		}),
		logger: logger,
	}
}

func (s *redisStore) GetString(ctx context.Context, key string) (string, bool) {
	var val string
	found := true
	err := s.retry.Do(ctx, "HGet", func() error {
		v, err := s.client.HGet(ctx, s.hash, key).Result()
		if err == redis.Nil {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	if err != nil {
		s.logger.Warn("redis read failed, treating key as absent", log.String("key", key), log.Error(err))
		return "", false
	}
	return val, found
}

func (s *redisStore) SetString(ctx context.Context, key, value string) error {
	return s.retry.Do(ctx, "HSet", func() error {
		return s.client.HSet(ctx, s.hash, key, value).Err()
	})
}

func (s *redisStore) Remove(ctx context.Context, key string) error {
	return s.retry.Do(ctx, "HDel", func() error {
		return s.client.HDel(ctx, s.hash, key).Err()
	})
}
