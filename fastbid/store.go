package fastbid

import (
	"errors"
	"fmt"
	"time"

	"github.com/criteo/cdb-adapter/storage"
	"github.com/criteo/cdb-adapter/storage/filestore"
	"github.com/criteo/cdb-adapter/storage/memstore"
	"github.com/criteo/cdb-adapter/storage/redisstore"
)

// NewStore builds the cache backend named by the configuration. Hosts with
// their own storage hand a Store straight to the adapter instead.
func NewStore(cfg storage.Config) (storage.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memstore.New(time.Duration(cfg.TTLSeconds) * time.Second), nil
	case "file":
		if cfg.Filename == "" {
			return nil, errors.New("storage.filename is required for the file backend")
		}
		return filestore.New(cfg.Filename), nil
	case "redis":
		return redisstore.New(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
