package property

import (
	"sync"

	"github.com/dshills/bindkit/internal/metrics"
)

// Cache memoizes parsed paths by their string form. Parse failures are not
// cached. A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	paths   map[string]*Path
	metrics *metrics.Metrics
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithMetrics records expression compile and eval timings into m.
func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{paths: make(map[string]*Path)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse returns the cached path for s, parsing it on first use.
func (c *Cache) Parse(s string) (*Path, error) {
	c.mu.RLock()
	p, ok := c.paths[s]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := parse(s, c.metrics)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.paths[s]; ok {
		return existing, nil
	}
	c.paths[s] = p
	return p, nil
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}
