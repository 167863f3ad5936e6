package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/db"
	"github.com/blacktop/symbolicator/internal/model"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

// Index looks UUIDs up in a dSYM index built by `symbolicator index`
type Index struct {
	DB db.Database
}

// Name implements Tier
func (i *Index) Name() string { return "index" }

// Search implements Tier
func (i *Index) Search(_ context.Context, req Request) ([]SearchResult, error) {
	if i.DB == nil {
		return nil, fmt.Errorf("%w: no dSYM index configured", ErrIndexUnavailable)
	}

	var uuids []string
	for _, u := range sortedUUIDs(req.Missing) {
		uuids = append(uuids, string(u))
	}

	entries, err := i.DB.FindByUUIDs(uuids)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var results []SearchResult
	for _, e := range entries {
		if _, err := os.Stat(e.Path); os.IsNotExist(err) {
			log.WithField("path", e.Path).Debug("Pruning stale index entry")
			if err := i.DB.DeletePath(e.Path); err != nil {
				log.WithError(err).Warn("Failed to prune index entry")
			}
			continue
		}
		u, ok := crashlog.ParseUUID(e.UUID)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Path: e.Path,
			UUID: u,
			Arch: crashlog.Arch(e.Arch),
			Tier: i.Name(),
		})
	}

	return results, nil
}
