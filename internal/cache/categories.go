package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

const categoriesKey = "categories"

// CategoryCache serves the category list from memory for a TTL.
// Concurrent misses share one read of the source.
type CategoryCache struct {
	source  ports.CategoryLister
	entries *LRUCache[[]core.Category]
	group   singleflight.Group
}

var _ ports.CategoryLister = (*CategoryCache)(nil)

func NewCategoryCache(source ports.CategoryLister, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		source:  source,
		entries: NewLRUCache[[]core.Category](1, ttl),
	}
}

// Categories returns a copy of the cached list, reading the source on a miss.
// Errors are not cached.
func (c *CategoryCache) Categories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := c.entries.Get(categoriesKey); ok {
		return clone(cats), nil
	}

	v, err, _ := c.group.Do(categoriesKey, func() (any, error) {
		cats, err := c.source.Categories(ctx)
		if err != nil {
			return nil, err
		}
		c.entries.Set(categoriesKey, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]core.Category)), nil
}

// Invalidate drops the cached list.
func (c *CategoryCache) Invalidate() {
	c.entries.Delete(categoriesKey)
}

func (c *CategoryCache) CleanExpired() int { return c.entries.CleanExpired() }

func (c *CategoryCache) Stats() Stats { return c.entries.Stats() }

func clone(cats []core.Category) []core.Category {
	if cats == nil {
		return nil
	}
	return append([]core.Category(nil), cats...)
}
