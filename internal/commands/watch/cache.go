package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache remembers which version of a report was already symbolicated
type Cache interface {
	Add(path, fingerprint string)
	Has(path, fingerprint string) bool
}

type MemoryCache struct {
	cache *lru.Cache[string, string]
}

// FileCache persists processed reports as JSON so restarts don't redo work
type FileCache struct {
	path string
	mu   sync.Mutex
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	lcache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{
		cache: lcache,
	}, nil
}

func (c *MemoryCache) Add(path, fingerprint string) {
	c.cache.Add(path, fingerprint)
}

func (c *MemoryCache) Has(path, fingerprint string) bool {
	if val, ok := c.cache.Get(path); ok {
		return val == fingerprint
	}
	return false
}

func NewFileCache(path string) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			return nil, err
		}
	}

	return &FileCache{
		path: path,
	}, nil
}

func (c *FileCache) read() map[string]string {
	m := make(map[string]string)
	data, err := os.ReadFile(c.path)
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		// on parse error, start over
		return make(map[string]string)
	}
	return m
}

func (c *FileCache) Add(path, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.read()
	m[path] = fingerprint

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.WithError(err).Error("failed to marshal cache JSON")
		return
	}
	if err := os.WriteFile(c.path, out, 0644); err != nil {
		log.WithError(err).Error("failed to write cache JSON")
	}
}

func (c *FileCache) Has(path, fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok := c.read()[path]
	return ok && val == fingerprint
}
