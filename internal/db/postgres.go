package db

import (
	"fmt"

	"github.com/blacktop/symbolicator/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres is a database that stores data in a Postgres database.
// It lets a team share one dSYM index.
type Postgres struct {
	URL string

	gormDB
}

// NewPostgres creates a new Postgres database.
func NewPostgres(url string) (*Postgres, error) {
	if url == "" {
		return nil, fmt.Errorf("'url' is required")
	}
	return &Postgres{URL: url}, nil
}

// Connect connects to the database.
func (p *Postgres) Connect() (err error) {
	p.db, err = gorm.Open(postgres.Open(p.URL), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect postgres database: %w", err)
	}
	return p.db.AutoMigrate(&model.DSYM{})
}
