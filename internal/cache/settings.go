// Package cache keeps hot per-store lookups in Redis. Every storefront
// request resolves a slug to store settings, so those reads are cached with a
// short TTL; the database stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lojinha-app/backend-lojinha/internal/store"
)

// SettingsCache wraps a settings repository with a Redis read-through cache.
// Cache failures fall back to the repository; a cold or broken cache never
// makes a storefront request fail.
type SettingsCache struct {
	Repo store.Repo
	R    *redis.Client
	TTL  time.Duration
}

func slugKey(slug string) string { return "lojinha:store:slug:" + slug }
func idKey(id uuid.UUID) string  { return "lojinha:store:id:" + id.String() }

// GetBySlug implements store.Repo.
func (c SettingsCache) GetBySlug(ctx context.Context, slug string) (store.Settings, error) {
	if s, ok := c.read(ctx, slugKey(slug)); ok {
		return s, nil
	}
	s, err := c.Repo.GetBySlug(ctx, slug)
	if err != nil {
		return store.Settings{}, err
	}
	c.write(ctx, s)
	return s, nil
}

// GetByID implements store.Repo.
func (c SettingsCache) GetByID(ctx context.Context, id uuid.UUID) (store.Settings, error) {
	if s, ok := c.read(ctx, idKey(id)); ok {
		return s, nil
	}
	s, err := c.Repo.GetByID(ctx, id)
	if err != nil {
		return store.Settings{}, err
	}
	c.write(ctx, s)
	return s, nil
}

// UpdatePix writes through and invalidates both cache entries.
func (c SettingsCache) UpdatePix(ctx context.Context, id uuid.UUID, key string, keyType store.PixKeyType) error {
	if err := c.Repo.UpdatePix(ctx, id, key, keyType); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// StoreIDBySlug implements tenant.StoreLookup through the cache.
func (c SettingsCache) StoreIDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	s, err := c.GetBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID, nil
}

func (c SettingsCache) read(ctx context.Context, key string) (store.Settings, bool) {
	if c.R == nil {
		return store.Settings{}, false
	}
	raw, err := c.R.Get(ctx, key).Bytes()
	if err != nil {
		return store.Settings{}, false
	}
	var s store.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return store.Settings{}, false
	}
	return s, true
}

func (c SettingsCache) write(ctx context.Context, s store.Settings) {
	if c.R == nil {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	_ = c.R.Set(ctx, slugKey(s.Slug), raw, ttl).Err()
	_ = c.R.Set(ctx, idKey(s.ID), raw, ttl).Err()
}

func (c SettingsCache) invalidate(ctx context.Context, id uuid.UUID) {
	if c.R == nil {
		return
	}
	if s, err := c.Repo.GetByID(ctx, id); err == nil {
		_ = c.R.Del(ctx, slugKey(s.Slug)).Err()
	}
	_ = c.R.Del(ctx, idKey(id)).Err()
}
