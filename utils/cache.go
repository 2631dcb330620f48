package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"retail-extractor/internal/types"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// NewCacheService returns the cache configured by CacheBackend, or nil when
// caching is disabled
func NewCacheService(config *types.Config) (CacheService, error) {
	switch config.CacheBackend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(), nil
	case "memcache":
		addr := config.CacheAddr
		if addr == "" {
			addr = "localhost:11211"
		}
		return NewMemcacheService(addr), nil
	case "redis":
		addr := config.CacheAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		rc := NewRedisCache(context.Background(), addr, 0)
		if err := rc.Ping(); err != nil {
			rc.Close()
			return nil, types.NewConfigurationError("redis cache unreachable at "+addr, err)
		}
		return rc, nil
	}
	return nil, types.NewConfigurationError(fmt.Sprintf("unknown cache backend %q", config.CacheBackend), nil)
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache implements CacheService in process memory
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a value, evicting it if expired
func (m *MemoryCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set stores a value; a zero expiration never expires
func (m *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if expiration > 0 {
		e.expires = m.now().Add(expiration)
	}
	m.entries[key] = e
	return nil
}

// Delete removes a value
func (m *MemoryCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// CachingFetcher serves pages from a CacheService before asking the
// inner fetcher
type CachingFetcher struct {
	inner  Fetcher
	cache  CacheService
	ttl    time.Duration
	logger types.Logger
}

// NewCachingFetcher wraps inner with a page cache
func NewCachingFetcher(inner Fetcher, cache CacheService, ttl time.Duration, logger types.Logger) *CachingFetcher {
	return &CachingFetcher{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// pageKey hashes the URL so keys stay within memcache limits
func pageKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "page:" + hex.EncodeToString(sum[:])
}

// Fetch returns the cached body if present, otherwise fetches and stores it
func (c *CachingFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	key := pageKey(url)

	body, err := c.cache.Get(key)
	if err == nil {
		c.logger.Debugf("Cache hit for %s", url)
		return &Page{URL: url, Status: 200, Body: body, Cached: true}, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warnf("Cache lookup failed for %s: %v", url, err)
	}

	page, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(key, page.Body, c.ttl); err != nil {
		c.logger.Warnf("Failed to cache %s: %v", url, err)
	}
	return page, nil
}

// Reset resets the inner fetcher
func (c *CachingFetcher) Reset() error {
	return c.inner.Reset()
}

// Close closes the inner fetcher and the cache connection if it has one
func (c *CachingFetcher) Close() {
	c.inner.Close()
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warnf("Failed to close cache: %v", err)
		}
	}
}
