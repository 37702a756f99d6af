package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a byte-oriented TTL cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Version reads a counter, 0 when it was never bumped.
	Version(ctx context.Context, key string) (int64, error)
	// Bump increments a counter and returns the new value. Counters do not expire.
	Bump(ctx context.Context, key string) (int64, error)
}

// Memory is a single-process Store, used when no Redis address is configured.
type Memory struct {
	mu   sync.RWMutex
	m    map[string]entry
	vers map[string]int64
}
type entry struct {
	val []byte
	exp time.Time
}

func NewMemory() *Memory {
	return &Memory{
		m:    make(map[string]entry),
		vers: make(map[string]int64),
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, ErrMiss
	}

	return e.val, nil
}

func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	c.mu.Lock()
	c.m[key] = entry{val: val, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.m, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Version(_ context.Context, key string) (int64, error) {
	c.mu.RLock()
	v := c.vers[key]
	c.mu.RUnlock()
	return v, nil
}

func (c *Memory) Bump(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	c.vers[key]++
	v := c.vers[key]
	c.mu.Unlock()
	return v, nil
}
