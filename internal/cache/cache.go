// Package cache memoizes derived artifacts (panel-content graphs) in memory
// and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/ppiankov/panelgraph/internal/model"
)

// KeyPrefix versions every key; bump it when the cached encoding changes
const KeyPrefix = "panelgraph:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key hashes parts into a cache key. Parts are length-prefixed so
// ("ab","c") and ("a","bc") never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg: memory in front of disk, or a
// no-op cache when caching is disabled
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	if cfg.Dir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Nop caches nothing
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
