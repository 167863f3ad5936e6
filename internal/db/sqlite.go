package db

import (
	"fmt"

	"github.com/blacktop/symbolicator/internal/model"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Sqlite is a database that stores data in a sqlite database.
type Sqlite struct {
	URL string
	// Config
	BatchSize int

	gormDB
}

// NewSqlite creates a new Sqlite database.
func NewSqlite(path string, batchSize int) (*Sqlite, error) {
	if path == "" {
		return nil, fmt.Errorf("'path' is required")
	}
	return &Sqlite{
		URL:       path,
		BatchSize: batchSize,
	}, nil
}

// Connect connects to the database.
func (s *Sqlite) Connect() (err error) {
	s.db, err = gorm.Open(sqlite.Open(s.URL), &gorm.Config{
		CreateBatchSize:        s.BatchSize,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect sqlite database: %w", err)
	}
	return s.db.AutoMigrate(&model.DSYM{})
}

// gormDB implements the queries shared by the gorm backed databases
type gormDB struct {
	db *gorm.DB
}

// Put inserts or updates the given entries.
func (g *gormDB) Put(entries ...*model.DSYM) error {
	if len(entries) == 0 {
		return nil
	}
	return g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"arch", "name", "version", "indexed_at", "updated_at"}),
	}).Create(entries).Error
}

// FindByUUIDs returns every entry carrying one of uuids.
// It returns ErrNotFound if there is none.
func (g *gormDB) FindByUUIDs(uuids []string) ([]*model.DSYM, error) {
	var entries []*model.DSYM
	if len(uuids) == 0 {
		return nil, model.ErrNotFound
	}
	if err := g.db.Where("uuid IN ?", uuids).Order("uuid, path").Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, model.ErrNotFound
	}
	return entries, nil
}

// DeletePath removes every entry indexed at path.
func (g *gormDB) DeletePath(path string) error {
	return g.db.Where("path = ?", path).Delete(&model.DSYM{}).Error
}

// Count returns the number of indexed entries.
func (g *gormDB) Count() (int64, error) {
	var n int64
	if err := g.db.Model(&model.DSYM{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database.
func (g *gormDB) Close() error {
	if g.db == nil {
		return nil
	}
	db, err := g.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
