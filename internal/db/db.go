// Package db provides a dSYM index interface and implementations.
package db

import (
	"strings"

	"github.com/blacktop/symbolicator/internal/model"
)

// Database is the interface that wraps the dSYM index operations.
type Database interface {
	// Connect connects to the database.
	Connect() error

	// Put inserts or updates the given entries.
	Put(entries ...*model.DSYM) error

	// FindByUUIDs returns every entry carrying one of uuids.
	FindByUUIDs(uuids []string) ([]*model.DSYM, error)

	// DeletePath removes every entry indexed at path.
	DeletePath(path string) error

	// Count returns the number of indexed entries.
	Count() (int64, error)

	// Close closes the database.
	Close() error
}

// Open picks a backend for url: postgres:// DSNs use Postgres, *.gob files
// the in-memory store and anything else SQLite.
func Open(url string, batchSize int) (Database, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(url)
	case strings.HasSuffix(url, ".gob"):
		return NewInMemory(url)
	default:
		return NewSqlite(url, batchSize)
	}
}
