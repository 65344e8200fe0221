package memstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/criteo/cdb-adapter/storage"
)

// Store is an in-process storage.Store. Entries expire after the configured
// TTL; a zero TTL keeps them for the life of the process.
type Store struct {
	cache *gocache.Cache
}

func New(ttl time.Duration) *Store {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = ttl
	}
	return &Store{cache: gocache.New(expiration, cleanup)}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return "", storage.ErrNotFound
	}
	text, ok := value.(string)
	if !ok {
		return "", storage.ErrNotFound
	}
	return text, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	s.cache.SetDefault(key, value)
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
