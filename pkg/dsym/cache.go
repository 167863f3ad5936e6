package dsym

import (
	"context"
	"path/filepath"

	"github.com/apex/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of bundles kept by NewCache(0, ...)
const DefaultCacheSize = 128

// Cache holds the bundles opened during one session, keyed by path.
// Concurrent loads of the same path share a single UUID read.
type Cache struct {
	reader UUIDReader
	files  *lru.Cache[string, *File]
	group  singleflight.Group
}

// NewCache creates a session cache backed by reader
func NewCache(size int, reader UUIDReader) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, err := lru.New[string, *File](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		reader: reader,
		files:  files,
	}, nil
}

// Load returns the bundle at path, opening it on first use
func (c *Cache) Load(ctx context.Context, path string) (*File, error) {
	key := filepath.Clean(path)
	if f, ok := c.files.Get(key); ok {
		return f, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if f, ok := c.files.Get(key); ok {
			return f, nil
		}
		f, err := Open(ctx, key, c.reader)
		if err != nil {
			return nil, err
		}
		c.files.Add(key, f)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.WithField("path", key).Debug("Shared in-flight dSYM load")
	}

	return v.(*File), nil
}

// LoadAll opens every path, skipping (and logging) the ones that fail
func (c *Cache) LoadAll(ctx context.Context, paths []string) []*File {
	var files []*File
	for _, p := range paths {
		f, err := c.Load(ctx, p)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("Skipping dSYM")
			continue
		}
		files = append(files, f)
	}
	return files
}

// Peek returns a cached bundle without loading it
func (c *Cache) Peek(path string) (*File, bool) {
	return c.files.Peek(filepath.Clean(path))
}

// Len returns the number of cached bundles
func (c *Cache) Len() int {
	return c.files.Len()
}
