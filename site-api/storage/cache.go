package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

const cacheVersion = 1

type backend interface {
	ListRaw(ctx context.Context, kind domain.Kind) ([]RawRecord, error)
	GetRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error)
	PutRaw(ctx context.Context, kind domain.Kind, rec RawRecord, columns map[string]any) error
	DeleteRaw(ctx context.Context, kind domain.Kind, id string) error
	FetchSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) error
}

type cachedContent struct {
	Version       int         `json:"version"`
	CachedAt      time.Time   `json:"cachedAt"`
	LastUpdatedAt int64       `json:"lastUpdatedAt"`
	Records       []RawRecord `json:"records"`
}

// Cache wraps a Storage instance with Redis-backed snapshots of each content
// collection and of the site settings.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a caching Storage wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
		now:   time.Now,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

// ListRaw serves the collection snapshot, reading through to the table on a miss.
func (c *Cache) ListRaw(ctx context.Context, kind domain.Kind) ([]RawRecord, error) {
	if snap, ok := c.loadContent(ctx, kind); ok {
		return snap.Records, nil
	}
	readStart := c.now().UnixNano()
	records, err := c.base.ListRaw(ctx, kind)
	if err != nil {
		return nil, err
	}
	c.storeContent(ctx, kind, records, readStart)
	return records, nil
}

// GetRaw serves a single record from the snapshot when one is cached.
func (c *Cache) GetRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error) {
	if snap, ok := c.loadContent(ctx, kind); ok {
		for _, rec := range snap.Records {
			if rec.ID == id {
				return rec, nil
			}
		}
		return RawRecord{}, domain.ErrNotFound
	}
	return c.base.GetRaw(ctx, kind, id)
}

// LatestRaw bypasses the snapshot so callers get the row's current ETag.
func (c *Cache) LatestRaw(ctx context.Context, kind domain.Kind, id string) (RawRecord, error) {
	return c.base.GetRaw(ctx, kind, id)
}

func (c *Cache) PutRaw(ctx context.Context, kind domain.Kind, rec RawRecord, columns map[string]any) error {
	if err := c.base.PutRaw(ctx, kind, rec, columns); err != nil {
		return err
	}
	c.evict(ctx, contentCacheKey(kind))
	return nil
}

func (c *Cache) DeleteRaw(ctx context.Context, kind domain.Kind, id string) error {
	if err := c.base.DeleteRaw(ctx, kind, id); err != nil {
		return err
	}
	c.evict(ctx, contentCacheKey(kind))
	return nil
}

func (c *Cache) FetchSettings(ctx context.Context) (domain.Settings, error) {
	if settings, ok := c.loadSettings(ctx); ok {
		return settings, nil
	}
	settings, err := c.base.FetchSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	c.storeSettings(ctx, settings)
	return settings, nil
}

func (c *Cache) SaveSettings(ctx context.Context, settings domain.Settings) error {
	if err := c.base.SaveSettings(ctx, settings); err != nil {
		return err
	}
	c.evict(ctx, settingsCacheKey)
	return nil
}

// Refresh rebuilds the snapshot of kind unless the cached one was read after
// lastUpdated. It reports whether the snapshot was rewritten.
func (c *Cache) Refresh(ctx context.Context, kind domain.Kind, lastUpdated int64) (bool, error) {
	if c.redis == nil || c.ttl == 0 {
		return false, nil
	}
	if snap, ok := c.loadContent(ctx, kind); ok && snap.LastUpdatedAt >= lastUpdated {
		return false, nil
	}
	readStart := c.now().UnixNano()
	records, err := c.base.ListRaw(ctx, kind)
	if err != nil {
		return false, err
	}
	c.storeContent(ctx, kind, records, readStart)
	return true, nil
}

// RefreshSettings reloads the settings snapshot.
func (c *Cache) RefreshSettings(ctx context.Context) error {
	settings, err := c.base.FetchSettings(ctx)
	if err != nil {
		return err
	}
	c.storeSettings(ctx, settings)
	return nil
}

func (c *Cache) loadContent(ctx context.Context, kind domain.Kind) (cachedContent, bool) {
	if c.redis == nil {
		return cachedContent{}, false
	}
	key := contentCacheKey(kind)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return cachedContent{}, false
	}
	var snap cachedContent
	if err := sonic.Unmarshal(data, &snap); err != nil || snap.Version != cacheVersion {
		_ = c.redis.Del(ctx, key).Err()
		return cachedContent{}, false
	}
	return snap, true
}

func (c *Cache) storeContent(ctx context.Context, kind domain.Kind, records []RawRecord, lastUpdated int64) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(cachedContent{
		Version:       cacheVersion,
		CachedAt:      c.now().UTC(),
		LastUpdatedAt: lastUpdated,
		Records:       records,
	})
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, contentCacheKey(kind), data, c.ttl).Err()
}

func (c *Cache) loadSettings(ctx context.Context) (domain.Settings, bool) {
	if c.redis == nil {
		return domain.Settings{}, false
	}
	data, err := c.redis.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, settingsCacheKey).Err()
		}
		return domain.Settings{}, false
	}
	var settings domain.Settings
	if err := sonic.Unmarshal(data, &settings); err != nil {
		_ = c.redis.Del(ctx, settingsCacheKey).Err()
		return domain.Settings{}, false
	}
	return settings, true
}

func (c *Cache) storeSettings(ctx context.Context, settings domain.Settings) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(settings)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, settingsCacheKey, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

const settingsCacheKey = "settings:site"

func contentCacheKey(kind domain.Kind) string {
	return "content:" + string(kind)
}
