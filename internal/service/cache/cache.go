package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketBrief/internal/services/snapshot"
	pkgcache "MarketBrief/pkg/cache"
)

// SnapshotKey is where the collector publishes the raw snapshot in the shared cache.
const SnapshotKey = "snapshot:latest"

// CachedSnapshot is a parsed snapshot with an explicit expiry.
type CachedSnapshot struct {
	View      *snapshot.View
	Raw       []byte
	Source    string
	LoadedAt  time.Time
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still valid at now.
func (c *CachedSnapshot) Fresh(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}

// Loader reads the raw snapshot from its system of record.
type Loader func(ctx context.Context) ([]byte, error)

// SnapshotCache holds at most one parsed snapshot. A miss first consults the
// shared cache, then the loader. Concurrent misses share a single fill.
type SnapshotCache struct {
	mu     sync.Mutex
	cur    *CachedSnapshot
	ttl    time.Duration
	load   Loader
	shared pkgcache.Service
	now    func() time.Time
}

// NewSnapshotCache creates a cache whose entries live for ttl. shared may be nil.
func NewSnapshotCache(load Loader, shared pkgcache.Service, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotCache{ttl: ttl, load: load, shared: shared, now: time.Now}
}

// WithClock replaces the time source.
func (c *SnapshotCache) WithClock(now func() time.Time) *SnapshotCache {
	c.now = now
	return c
}

// Get returns the cached snapshot, refilling it when expired or absent.
func (c *SnapshotCache) Get(ctx context.Context) (*CachedSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cur.Fresh(now) {
		return c.cur, nil
	}

	raw, source, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	view, err := snapshot.Load(raw)
	if err != nil {
		return nil, err
	}
	c.cur = &CachedSnapshot{
		View:      view,
		Raw:       raw,
		Source:    source,
		LoadedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	return c.cur, nil
}

// Peek returns the current entry without refilling; it may be expired or nil.
func (c *SnapshotCache) Peek() *CachedSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Invalidate drops the local entry so the next Get reloads.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.cur = nil
	c.mu.Unlock()
}

func (c *SnapshotCache) fetch(ctx context.Context) ([]byte, string, error) {
	if c.shared != nil {
		// any shared cache failure falls through to the loader
		var raw []byte
		if err := c.shared.Get(ctx, SnapshotKey, &raw); err == nil && len(raw) > 0 {
			return raw, "shared", nil
		}
	}
	raw, err := c.load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load snapshot: %w", err)
	}
	return raw, "store", nil
}
