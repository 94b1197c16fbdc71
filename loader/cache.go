package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/calumari/dbrider/dataset"
)

// Cache memoises another loader per path. Concurrent loads of the same path
// share one read, and every caller gets its own deep copy.
type Cache struct {
	next Loader

	mu    sync.RWMutex
	cache map[string]dataset.Dataset

	group singleflight.Group
}

var _ Loader = (*Cache)(nil)

func Cached(next Loader) *Cache {
	return &Cache{next: next, cache: make(map[string]dataset.Dataset)}
}

func (c *Cache) Load(path string) (dataset.Dataset, error) {
	if ds, ok := c.get(path); ok {
		return ds.Clone(), nil
	}
	v, err, _ := c.group.Do(path, func() (any, error) {
		if ds, ok := c.get(path); ok { // re-check inside flight
			return ds, nil
		}
		ds, err := c.next.Load(path)
		if err != nil {
			return nil, err
		}
		c.set(path, ds)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(dataset.Dataset).Clone(), nil
}

// Forget drops the cached dataset for path.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.cache, path)
	c.mu.Unlock()
}

func (c *Cache) get(path string) (dataset.Dataset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.cache[path]
	return ds, ok
}

func (c *Cache) set(path string, ds dataset.Dataset) {
	c.mu.Lock()
	c.cache[path] = ds
	c.mu.Unlock()
}
