package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize bounds the number of operators kept in an LRU.
const DefaultLRUSize = 256

// LRU keeps candidate data for the most recently seen operators.
type LRU struct {
	entries *lru.Cache[string, lruItem]
	ttl     time.Duration
	now     func() time.Time
}

type lruItem struct {
	entry    Entry
	storedAt time.Time
}

// LRUOption customizes an LRU.
type LRUOption func(*lruConfig)

type lruConfig struct {
	size int
	ttl  time.Duration
	now  func() time.Time
}

// WithSize sets the maximum entry count.
func WithSize(size int) LRUOption {
	return func(cfg *lruConfig) {
		if cfg == nil || size <= 0 {
			return
		}
		cfg.size = size
	}
}

// WithTTL expires entries older than ttl on read.
func WithTTL(ttl time.Duration) LRUOption {
	return func(cfg *lruConfig) {
		if cfg == nil {
			return
		}
		cfg.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) LRUOption {
	return func(cfg *lruConfig) {
		if cfg == nil || now == nil {
			return
		}
		cfg.now = now
	}
}

// NewLRU builds a bounded cache.
func NewLRU(opts ...LRUOption) (*LRU, error) {
	cfg := lruConfig{size: DefaultLRUSize, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	entries, err := lru.New[string, lruItem](cfg.size)
	if err != nil {
		return nil, err
	}
	return &LRU{entries: entries, ttl: cfg.ttl, now: cfg.now}, nil
}

// Get implements Cache.
func (c *LRU) Get(_ context.Context, key string) (Entry, bool) {
	if c == nil || c.entries == nil || key == "" {
		return Entry{}, false
	}
	item, ok := c.entries.Get(key)
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && c.now().Sub(item.storedAt) > c.ttl {
		c.entries.Remove(key)
		return Entry{}, false
	}
	return item.entry.Clone(), true
}

// Set implements Cache.
func (c *LRU) Set(_ context.Context, key string, entry Entry) {
	if c == nil || c.entries == nil || key == "" {
		return
	}
	c.entries.Add(key, lruItem{entry: entry.Clone(), storedAt: c.now()})
}

// Delete implements Cache.
func (c *LRU) Delete(_ context.Context, key string) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Remove(key)
}

// Clear implements Cache.
func (c *LRU) Clear(_ context.Context) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Purge()
}

var _ Cache = (*LRU)(nil)
