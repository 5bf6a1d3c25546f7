package fund

import "sync"

// IdentityCache memoizes resolved identities for the process lifetime.
// Entries are never invalidated; a concurrent second write for the same code
// overwrites the first, which is harmless because identities are stable.
type IdentityCache struct {
	mu    sync.RWMutex
	items map[string]Identity
}

// NewIdentityCache returns an empty cache.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{items: make(map[string]Identity)}
}

// Get returns the cached identity for code.
func (c *IdentityCache) Get(code string) (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.items[code]
	return id, ok
}

// Put stores id under its code.
func (c *IdentityCache) Put(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id.Code] = id
}

// Len returns the number of cached identities.
func (c *IdentityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
