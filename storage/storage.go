// Package storage defines the local persistent cache the adapter consumes.
// Entries are opaque strings keyed by name; the adapter itself only ever
// reads one fixed key and evicts it when its content fails validation.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no entry.
var ErrNotFound = errors.New("storage: entry not found")

// Store is a string-valued key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Config selects and parameterizes a Store backend.
type Config struct {
	// Type is one of "memory", "file" or "redis".
	Type string `mapstructure:"type"`

	// Filename holds the entry file for the file backend.
	Filename string `mapstructure:"filename"`

	// TTLSeconds bounds entry lifetime for the memory backend. Zero means
	// entries never expire.
	TTLSeconds int `mapstructure:"ttl_seconds"`

	Redis Redis `mapstructure:"redis"`
}

type Redis struct {
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}
