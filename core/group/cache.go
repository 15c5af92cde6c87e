package group

import (
	"context"
	"sync"
)

type cacheKeyType int

const cacheKey cacheKeyType = 0

type membershipKey struct {
	groupID int64
	userID  string
}

// membershipCache memoizes membership checks for the lifetime of a request.
type membershipCache struct {
	mu sync.Mutex
	m  map[membershipKey]bool
}

// WithCache returns a context carrying an empty membership cache.
func WithCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheKey, &membershipCache{m: make(map[membershipKey]bool)})
}

func cacheFrom(ctx context.Context) *membershipCache {
	c, _ := ctx.Value(cacheKey).(*membershipCache)
	return c
}

func (c *membershipCache) get(groupID int64, userID string) (belongs, ok bool) {
	if c == nil {
		return false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	belongs, ok = c.m[membershipKey{groupID, userID}]
	return belongs, ok
}

func (c *membershipCache) set(groupID int64, userID string, belongs bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.m[membershipKey{groupID, userID}] = belongs
	c.mu.Unlock()
}

func (c *membershipCache) invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.m = make(map[membershipKey]bool)
	c.mu.Unlock()
}
