// Package fastbid validates and loads the locally cached, signed copy of the
// vendor's richer adapter script. The cache entry is written out-of-band by
// the vendor's prefetcher; this package decides, once per auction round at
// most, whether that entry can be trusted and turned into a delegate.
package fastbid

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/golang/glog"

	"github.com/criteo/cdb-adapter/delegate"
	"github.com/criteo/cdb-adapter/storage"
)

const (
	// hashPrefix marks the signature line a cached script must start with.
	hashPrefix = "// Hash: "

	// DefaultStorageKey is the cache key the vendor prefetcher writes under.
	DefaultStorageKey = "criteo_fast_bid"
)

// Executor loads a verified script blob as a delegate factory. It is the
// explicit extension-module seam: nothing reaches it that the verifier has
// not vouched for.
type Executor interface {
	Execute(script []byte) (delegate.Factory, error)
}

// Result classifies one cache-validation pass.
type Result int

const (
	// ResultAbsent means there was no cached entry to validate.
	ResultAbsent Result = iota

	// ResultInvalid means the entry was malformed or its signature failed;
	// the entry was evicted and nothing was executed.
	ResultInvalid

	// ResultSkipped means trust could not be established either way; the
	// entry was kept and nothing was executed.
	ResultSkipped

	// ResultExecuted means the entry verified and its delegate factory was
	// installed.
	ResultExecuted
)

// Loader drives the cached-script state machine. Each Attempt is a single
// terminal pass: no retries, no backoff.
type Loader struct {
	store    storage.Store
	verifier *Verifier
	executor Executor
	key      string
}

func NewLoader(store storage.Store, verifier *Verifier, executor Executor, key string) *Loader {
	if key == "" {
		key = DefaultStorageKey
	}
	return &Loader{
		store:    store,
		verifier: verifier,
		executor: executor,
		key:      key,
	}
}

// Attempt validates the cached script once and, on success, installs the
// delegate factory it yields into the provider. Validation failures evict
// the entry; indeterminate outcomes leave it untouched for a later round
// with working capabilities.
func (l *Loader) Attempt(ctx context.Context, provider *delegate.Provider) Result {
	blob, err := l.store.Get(ctx, l.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			glog.Warningf("criteo: fastbid cache read failed: %v", err)
		}
		return ResultAbsent
	}

	hash, script, ok := splitEntry(blob)
	if !ok {
		glog.Warning("criteo: no hash found in fastbid script")
		l.evict(ctx)
		return ResultInvalid
	}

	signature, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		glog.Warningf("criteo: fastbid hash is not decodable: %v", err)
		return ResultSkipped
	}

	valid, err := l.verifier.Verify(script, signature)
	if err != nil {
		glog.Warningf("criteo: fastbid signature could not be checked: %v", err)
		return ResultSkipped
	}
	if !valid {
		glog.Warning("criteo: invalid fastbid signature, evicting")
		l.evict(ctx)
		return ResultInvalid
	}

	if l.executor == nil {
		glog.Warning("criteo: no executor for verified fastbid script")
		return ResultSkipped
	}
	factory, err := l.executor.Execute(script)
	if err != nil {
		glog.Warningf("criteo: fastbid execution failed: %v", err)
		return ResultSkipped
	}

	provider.Install(factory)
	return ResultExecuted
}

func (l *Loader) evict(ctx context.Context) {
	if err := l.store.Remove(ctx, l.key); err != nil {
		glog.Warningf("criteo: fastbid eviction failed: %v", err)
	}
}

// splitEntry separates the declared hash from the script body. The first
// line must carry the hash header; everything after it is the executable
// blob the signature covers.
func splitEntry(blob string) (hash string, script []byte, ok bool) {
	newline := strings.IndexByte(blob, '\n')
	if newline < 0 {
		return "", nil, false
	}

	firstLine := strings.TrimSpace(blob[:newline])
	if !strings.HasPrefix(firstLine, hashPrefix) {
		return "", nil, false
	}

	return strings.TrimPrefix(firstLine, hashPrefix), []byte(blob[newline+1:]), true
}
