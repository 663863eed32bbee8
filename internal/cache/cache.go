// Package cache provides a read-through cache of object identity records.
//
// ARCHITECTURE:
// An object's key, container, creation session and creation time never
// change once it exists, so a cached record is never invalidated. The only
// mutable attribute, the current version, is not served: cached objects
// always carry ir.NoVersion and callers ask the engine for versions.
//
// CRITICAL PATTERNS:
//   - Bounded by entry count via ristretto (admission may drop entries)
//   - Concurrent misses for one id collapse into a single source read
//   - Errors are never cached
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/lineage/internal/ir"
)

// Source loads identity records on a miss. *engine.Engine implements it.
type Source interface {
	GetObjectInfo(ctx context.Context, id ir.ObjectID) (ir.Object, error)
}

// ObjectCache is a bounded read-through cache keyed by ObjectID.
//
// Thread-safety: ObjectCache is safe for concurrent use.
type ObjectCache struct {
	source Source
	cache  *ristretto.Cache
	group  singleflight.Group
}

// New creates a cache holding at most maxEntries objects.
func New(source Source, maxEntries int64) (*ObjectCache, error) {
	if source == nil {
		return nil, errors.New("object cache: nil source")
	}
	if maxEntries < 1 {
		return nil, fmt.Errorf("object cache: max entries %d is below 1", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("object cache: %w", err)
	}
	return &ObjectCache{source: source, cache: c}, nil
}

// Get returns the identity record of id, loading it from the source on a miss.
// The returned object's Version is always ir.NoVersion.
func (c *ObjectCache) Get(ctx context.Context, id ir.ObjectID) (ir.Object, error) {
	key := id.String()
	if v, ok := c.cache.Get(key); ok {
		return detach(v.(ir.Object)), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		obj, err := c.source.GetObjectInfo(ctx, id)
		if err != nil {
			return ir.Object{}, err
		}
		obj.Version = ir.NoVersion
		obj = detach(obj)
		c.cache.Set(key, obj, 1)
		return obj, nil
	})
	if err != nil {
		return ir.Object{}, err
	}
	return detach(v.(ir.Object)), nil
}

// detach returns obj with its own copy of the container reference.
func detach(obj ir.Object) ir.Object {
	if obj.Container != nil {
		container := *obj.Container
		obj.Container = &container
	}
	return obj
}

// Wait blocks until pending writes are visible to Get.
func (c *ObjectCache) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *ObjectCache) Close() {
	c.cache.Close()
}
