package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/criteo/cdb-adapter/storage"
)

// Store is a Redis backed storage.Store, for hosts that share script cache
// entries across processes.
type Store struct {
	client  *redis.Client
	timeout time.Duration
}

func New(cfg storage.Redis) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("storage.redis.addr is required for the redis backend")
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 200 * time.Millisecond
	}

	return &Store{
		client:  redis.NewClient(opts),
		timeout: timeout,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	value, err := s.client.Get(opCtx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(opCtx, key).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
