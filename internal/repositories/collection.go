package repositories

import (
	"context"
	"slices"
	"sync"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/google/uuid"
)

// Collection is an ordered in-process store for one kind of flat record.
// Records keep insertion order; updates replace in place.
type Collection[T models.Record[T]] struct {
	mu    sync.RWMutex
	items []T
}

func NewCollection[T models.Record[T]](seed ...T) *Collection[T] {
	return &Collection[T]{items: slices.Clone(seed)}
}

// List returns every record matching query; an empty query matches all.
func (c *Collection[T]) List(_ context.Context, query string) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	query = common.NormalizeSearchQuery(query)
	out := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if query == "" || item.Matches(query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *Collection[T]) Get(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, common.ErrNotFound
	}
	return c.items[i], nil
}

// Create assigns a fresh id and appends the record.
func (c *Collection[T]) Create(_ context.Context, item T) (T, error) {
	item = item.WithID(uuid.NewString())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return item, nil
}

// Update replaces the record stored under id, keeping its position.
func (c *Collection[T]) Update(_ context.Context, id string, item T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, common.ErrNotFound
	}
	item = item.WithID(id)
	c.items[i] = item
	return item, nil
}

// Modify applies fn to the stored record under the collection lock.
func (c *Collection[T]) Modify(_ context.Context, id string, fn func(T) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, common.ErrNotFound
	}
	next, err := fn(c.items[i])
	if err != nil {
		return zero, err
	}
	next = next.WithID(id)
	c.items[i] = next
	return next, nil
}

func (c *Collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.index(id)
	if i < 0 {
		return common.ErrNotFound
	}
	c.items = slices.Delete(c.items, i, i+1)
	return nil
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) index(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return item.RecordID() == id })
}
