package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes file contents by CacheKey. Concurrent misses on the same
// key share one fetch. Failed fetches are not cached. The zero value is
// ready to use.
type Cache struct {
	mu    sync.RWMutex
	data  map[string][]byte
	group singleflight.Group
}

func (c *Cache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[key]
	return b, ok
}

// Load returns the cached content of file or calls fetch to produce it.
func (c *Cache) Load(file GraphFile, fetch func() ([]byte, error)) ([]byte, error) {
	key := CacheKey(file)
	if b, ok := c.get(key); ok {
		return b, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.get(key); ok {
			return b, nil
		}
		b, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.data == nil {
			c.data = make(map[string][]byte)
		}
		c.data[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len reports the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
