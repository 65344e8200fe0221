package filestore

import (
	"context"
	"os"
	"sync"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"

	"github.com/criteo/cdb-adapter/storage"
)

// Store is a file backed storage.Store. The whole file is a YAML map of key
// to value, re-read on every Get so that entries written out-of-band (for
// example by a script prefetcher) are picked up without a restart.
type Store struct {
	filename string
	mu       sync.Mutex
}

func New(filename string) *Store {
	return &Store{filename: filename}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := entries[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return s.save(entries)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}

func (s *Store) load() (map[string]string, error) {
	b, err := os.ReadFile(s.filename)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) save(entries map[string]string) error {
	b, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}

	if glog.V(2) {
		glog.Infof("Writing %d storage entries to %s", len(entries), s.filename)
	}
	return os.WriteFile(s.filename, b, 0644)
}
