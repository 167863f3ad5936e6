// Package model contains the dSYM index model for the database.
package model

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("no dSYM found")

// DSYM is one architecture slice of an indexed dSYM bundle.
// The same UUID may be indexed at more than one path (copies, archives).
type DSYM struct {
	UUID      string    `gorm:"primaryKey" json:"uuid"`
	Path      string    `gorm:"primaryKey" json:"path"`
	Arch      string    `json:"arch"`
	Name      string    `gorm:"index" json:"name"`
	Version   string    `json:"version,omitempty"`
	IndexedAt time.Time `json:"indexed_at"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName overrides the pluralized default (d_syms)
func (DSYM) TableName() string {
	return "dsyms"
}
