// Package snapshot caches the live item list in redis so read paths do not
// hit the database on every request.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

const itemsSnapshot = "items"

// Loader reads the authoritative item list.
type Loader interface {
	List(ctx context.Context) ([]catalog.Item, error)
}

// Store is the redis surface the cache needs.
type Store interface {
	redis.KV
	SnapshotKey(name string) string
}

type Cache struct {
	loader Loader
	store  Store
	ttl    time.Duration
	logg   *logger.Logger
}

func NewCache(loader Loader, store Store, ttl time.Duration, logg *logger.Logger) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("item loader required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("snapshot ttl must be positive")
	}
	return &Cache{loader: loader, store: store, ttl: ttl, logg: logg}, nil
}

// Items returns the cached list, loading and caching it on a miss. A redis
// failure degrades to a direct load.
func (c *Cache) Items(ctx context.Context) ([]catalog.Item, error) {
	key := c.store.SnapshotKey(itemsSnapshot)
	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var items []catalog.Item
		if decodeErr := json.Unmarshal([]byte(raw), &items); decodeErr == nil {
			return items, nil
		} else if c.logg != nil {
			c.logg.Error(ctx, "discarding unreadable catalog snapshot", decodeErr)
		}
	case errors.Is(err, goredis.Nil):
	default:
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "catalog snapshot unavailable, reading database")
		}
		return c.load(ctx)
	}
	return c.Rebuild(ctx)
}

// Rebuild loads the list from the database and replaces the cached copy.
func (c *Cache) Rebuild(ctx context.Context) ([]catalog.Item, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode catalog snapshot")
	}
	if err := c.store.Set(ctx, c.store.SnapshotKey(itemsSnapshot), string(payload), c.ttl); err != nil && c.logg != nil {
		c.logg.Error(ctx, "failed to store catalog snapshot", err)
	}
	return items, nil
}

// Invalidate drops the cached list; the next read reloads it.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.store.Del(ctx, c.store.SnapshotKey(itemsSnapshot)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate catalog snapshot")
	}
	if c.logg != nil {
		c.logg.Debug(ctx, "catalog snapshot invalidated")
	}
	return nil
}

func (c *Cache) load(ctx context.Context) ([]catalog.Item, error) {
	items, err := c.loader.List(ctx)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return items, nil
}
