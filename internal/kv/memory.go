package kv

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryClient implementa Client sobre patrickmn/go-cache.
// Útil para desarrollo y testing; la expiración por key la maneja go-cache.
type memoryClient struct {
	prefix string
	cache  *gocache.Cache

	// go-cache no tiene get-and-delete atómico; el mutex cubre esa ventana.
	mu sync.Mutex
}

// NewMemory crea un cliente en memoria.
func NewMemory(prefix string) *memoryClient {
	return &memoryClient{
		prefix: prefix,
		cache:  gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (c *memoryClient) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *memoryClient) stripPrefix(k string) string {
	if c.prefix == "" {
		return k
	}
	return strings.TrimPrefix(k, c.prefix+":")
}

func (c *memoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.cache.Get(c.key(key))
	if !ok {
		return nil, ErrNotFound
	}
	return v.([]byte), nil
}

func (c *memoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	exp := ttl
	if ttl == 0 {
		exp = gocache.NoExpiration
	}
	c.cache.Set(c.key(key), value, exp)
	return nil
}

func (c *memoryClient) GetDel(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(key)
	v, ok := c.cache.Get(k)
	if !ok {
		return nil, ErrNotFound
	}
	c.cache.Delete(k)
	return v.([]byte), nil
}

func (c *memoryClient) Delete(ctx context.Context, key string) error {
	c.cache.Delete(c.key(key))
	return nil
}

func (c *memoryClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	_, exp, ok := c.cache.GetWithExpiration(c.key(key))
	if !ok {
		return 0, ErrNotFound
	}
	if exp.IsZero() {
		return 0, nil // sin expiración
	}
	d := time.Until(exp)
	if d < 0 {
		return 0, ErrNotFound
	}
	return d, nil
}

func (c *memoryClient) Keys(ctx context.Context, prefix string) ([]string, error) {
	full := c.key(prefix)
	var out []string
	for k := range c.cache.Items() {
		if strings.HasPrefix(k, full) {
			out = append(out, c.stripPrefix(k))
		}
	}
	return out, nil
}

func (c *memoryClient) Ping(ctx context.Context) error { return nil }

func (c *memoryClient) Close() error {
	c.cache.Flush()
	return nil
}
