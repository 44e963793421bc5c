package keyring

import (
	"context"
	"sync"
	"time"

	"github.com/yaronf/httpsig"
)

type cacheEntry struct {
	key     *httpsig.VerifyingKey
	expires time.Time
}

// Cache is a KeyResolver that remembers the keys returned by another resolver.
// Failures are not cached. It is safe for concurrent use.
type Cache struct {
	resolver httpsig.KeyResolver
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps resolver. Entries are kept for ttl; a ttl of zero keeps them until invalidated.
func NewCache(resolver httpsig.KeyResolver, ttl time.Duration) *Cache {
	return &Cache{
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
		entries:  map[string]cacheEntry{},
	}
}

// Resolve implements httpsig.KeyResolver.
func (c *Cache) Resolve(ctx context.Context, keyID string) (*httpsig.VerifyingKey, error) {
	c.mu.Lock()
	e, ok := c.entries[keyID]
	if ok && c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, keyID)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return e.key, nil
	}

	// the lock is not held while resolving, concurrent misses may both call the resolver
	key, err := c.resolver.Resolve(ctx, keyID)
	if err != nil || key == nil {
		return key, err
	}
	c.mu.Lock()
	c.entries[keyID] = cacheEntry{key: key, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return key, nil
}

// Invalidate drops the entry for keyID, e.g. after a key rotation.
func (c *Cache) Invalidate(keyID string) {
	c.mu.Lock()
	delete(c.entries, keyID)
	c.mu.Unlock()
}

// Purge drops all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = map[string]cacheEntry{}
	c.mu.Unlock()
}

// Len returns the number of cached keys, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
