package db

import (
	"encoding/gob"
	"os"
	"sort"
	"sync"

	"github.com/blacktop/symbolicator/internal/model"
	"github.com/pkg/errors"
)

// Memory is a database that stores data in memory and persists it to a gob file on Close.
type Memory struct {
	DSYMs map[string]*model.DSYM
	Path  string

	mu sync.RWMutex
}

// NewInMemory creates a new in-memory database.
func NewInMemory(path string) (*Memory, error) {
	if path == "" {
		return nil, errors.New("'path' is required")
	}
	return &Memory{
		DSYMs: make(map[string]*model.DSYM),
		Path:  path,
	}, nil
}

func memoryKey(e *model.DSYM) string {
	return e.UUID + "\x00" + e.Path
}

// Connect loads the gob file, if it exists.
func (m *Memory) Connect() error {
	f, err := os.Open(m.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Wrapf(gob.NewDecoder(f).Decode(&m.DSYMs), "failed to decode %s", m.Path)
}

// Put inserts or updates the given entries.
func (m *Memory) Put(entries ...*model.DSYM) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		cp := *e
		m.DSYMs[memoryKey(e)] = &cp
	}
	return nil
}

// FindByUUIDs returns every entry carrying one of uuids.
// It returns ErrNotFound if there is none.
func (m *Memory) FindByUUIDs(uuids []string) ([]*model.DSYM, error) {
	want := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		want[u] = true
	}

	m.mu.RLock()
	var entries []*model.DSYM
	for _, e := range m.DSYMs {
		if want[e.UUID] {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	m.mu.RUnlock()

	if len(entries) == 0 {
		return nil, model.ErrNotFound
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UUID != entries[j].UUID {
			return entries[i].UUID < entries[j].UUID
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// DeletePath removes every entry indexed at path.
func (m *Memory) DeletePath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.DSYMs {
		if e.Path == path {
			delete(m.DSYMs, k)
		}
	}
	return nil
}

// Count returns the number of indexed entries.
func (m *Memory) Count() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.DSYMs)), nil
}

// Close writes the database to its gob file.
func (m *Memory) Close() error {
	f, err := os.Create(m.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return gob.NewEncoder(f).Encode(m.DSYMs)
}
