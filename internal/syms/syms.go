// Package syms builds and queries the dSYM index
package syms

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/db"
	"github.com/blacktop/symbolicator/internal/model"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/blacktop/symbolicator/pkg/dsym"
	"github.com/dustin/go-humanize"
)

// Config for a Scan
type Config struct {
	Extension string
	Exclude   []string
	// BatchSize is the number of entries written per Put
	BatchSize int
}

// Stats summarizes a Scan
type Stats struct {
	Dirs    int `json:"dirs"`
	Bundles int `json:"bundles"`
	Entries int `json:"entries"`
	Failed  int `json:"failed"`
}

// Entries converts a bundle into one index entry per architecture
func Entries(f *dsym.File, now time.Time) []*model.DSYM {
	var out []*model.DSYM
	for _, arch := range f.Arches() {
		e := &model.DSYM{
			UUID:      string(f.UUIDs[arch]),
			Path:      f.Path,
			Arch:      arch.String(),
			Name:      f.Name(),
			IndexedAt: now,
		}
		if f.Info != nil {
			e.Version = f.Info.CFBundleShortVersionString
			if f.Info.CFBundleVersion != "" && f.Info.CFBundleVersion != e.Version {
				e.Version += " (" + f.Info.CFBundleVersion + ")"
			}
		}
		out = append(out, e)
	}
	return out
}

// Scan walks roots for dSYM bundles and stores every slice in the index
func Scan(ctx context.Context, roots []string, cache *dsym.Cache, database db.Database, conf *Config) (*Stats, error) {
	if conf.BatchSize <= 0 {
		conf.BatchSize = 100
	}
	var (
		stats Stats
		batch []*model.DSYM
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := database.Put(batch...); err != nil {
			return fmt.Errorf("failed to save dSYMs to database: %w", err)
		}
		stats.Entries += len(batch)
		batch = batch[:0]
		return nil
	}

	now := time.Now()
	for _, root := range roots {
		bundles, dirs, err := discovery.FindBundles(ctx, root, conf.Extension, conf.Exclude)
		if err != nil {
			return &stats, fmt.Errorf("failed to walk %s: %w", root, err)
		}
		stats.Dirs += dirs
		log.WithFields(log.Fields{
			"root":    root,
			"bundles": humanize.Comma(int64(len(bundles))),
		}).Debug("Found bundles")

		for _, path := range bundles {
			f, err := cache.Load(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return &stats, ctx.Err()
				}
				log.WithError(err).WithField("path", path).Warn("Skipping dSYM")
				stats.Failed++
				continue
			}
			stats.Bundles++
			batch = append(batch, Entries(f, now)...)
			if len(batch) >= conf.BatchSize {
				if err := flush(); err != nil {
					return &stats, err
				}
			}
		}
	}

	return &stats, flush()
}

// Lookup returns the indexed entries for uuids
func Lookup(database db.Database, uuids ...crashlog.UUID) ([]*model.DSYM, error) {
	keys := make([]string, 0, len(uuids))
	for _, u := range uuids {
		keys = append(keys, string(u))
	}
	return database.FindByUUIDs(keys)
}
