package engine

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrStoreClosed is returned by a Store after Close.
var ErrStoreClosed = errors.New("engine: cache store closed")

// CacheEntry is the stored form of a successful idempotent result.
type CacheEntry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Store persists cache entries by fingerprint. Expiry and eviction are the
// store's responsibility; a missing or expired key reports found=false.
type Store interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
	Len() int
	Close() error
}

// Cache serves idempotent reads from a Store. Store errors are logged and
// treated as misses so a broken cache never fails a request.
type Cache struct {
	store   Store
	logger  zerolog.Logger
	metrics *metrics
}

// NewCache wraps store.
func NewCache(store Store, logger zerolog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// Store returns the backing store.
func (c *Cache) Store() Store {
	return c.store
}

func (c *Cache) get(ctx context.Context, operation, key string) (*Result, bool) {
	entry, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", operation).Msg("cache lookup failed")
	}
	if err != nil || !found {
		c.metrics.recordCacheRequest(ctx, operation, false)
		return nil, false
	}
	c.metrics.recordCacheRequest(ctx, operation, true)
	return &Result{
		StatusCode: entry.StatusCode,
		Header:     entry.Header.Clone(),
		Body:       bytes.Clone(entry.Body),
		Cached:     true,
	}, true
}

func (c *Cache) put(ctx context.Context, operation, key string, res *Result) {
	entry := &CacheEntry{
		StatusCode: res.StatusCode,
		Header:     res.Header.Clone(),
		Body:       bytes.Clone(res.Body),
		CreatedAt:  time.Now(),
	}
	if err := c.store.Put(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Str("operation", operation).Msg("cache store failed")
	}
}

// Invalidate removes the entry for d.
func (c *Cache) Invalidate(ctx context.Context, d Descriptor) error {
	key, err := Fingerprint(d)
	if err != nil {
		return err
	}
	return c.store.Delete(ctx, key)
}

// Purge removes every entry.
func (c *Cache) Purge(ctx context.Context) error {
	return c.store.Purge(ctx)
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.store.Len()
}
