package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/dsym"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
)

// ShallowScan looks for bundles directly inside the report's directory
type ShallowScan struct {
	Extension string
}

// Name implements Tier
func (s *ShallowScan) Name() string { return "shallow scan" }

// Search implements Tier
func (s *ShallowScan) Search(ctx context.Context, req Request) ([]SearchResult, error) {
	if req.ReportDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(req.ReportDir)
	if err != nil {
		return nil, err
	}
	utils.SortFileNameDescend(entries)

	var candidates []string
	for _, e := range entries {
		if utils.IsHidden(e.Name()) || !utils.HasExt(e.Name(), s.Extension) {
			continue
		}
		candidates = append(candidates, filepath.Join(req.ReportDir, e.Name()))
	}

	return verify(ctx, req.Cache, s.Name(), candidates, req.Missing)
}

// DeepScan walks a directory tree (by default Xcode's archives) for bundles
type DeepScan struct {
	Root      string
	Extension string
	// Exclude holds doublestar patterns, relative to Root, of paths to skip
	Exclude []string
}

// Name implements Tier
func (d *DeepScan) Name() string { return "deep scan" }

// Search implements Tier
func (d *DeepScan) Search(ctx context.Context, req Request) ([]SearchResult, error) {
	if d.Root == "" {
		return nil, nil
	}
	if _, err := os.Stat(d.Root); err != nil {
		return nil, err
	}

	start := time.Now()
	candidates, dirs, err := FindBundles(ctx, d.Root, d.Extension, d.Exclude)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"root":    d.Root,
		"dirs":    humanize.Comma(int64(dirs)),
		"bundles": humanize.Comma(int64(len(candidates))),
		"took":    time.Since(start).Round(time.Millisecond),
	}).Debug("Walked archives")
	utils.SortPathNameDescend(candidates)

	return verify(ctx, req.Cache, d.Name(), candidates, req.Missing)
}

// FindBundles walks root for directories (or files) ending in ext, skipping
// hidden entries and anything matching an exclude pattern. It does not
// descend into the bundles it finds. It also returns the number of
// directories visited.
func FindBundles(ctx context.Context, root, ext string, exclude []string) ([]string, int, error) {
	var (
		bundles []string
		dirs    int
	)
	err := filepath.WalkDir(root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.WithError(err).WithField("path", path).Debug("Skipping unreadable path")
			if de != nil && de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != root {
			if utils.IsHidden(path) {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if rel, err := filepath.Rel(root, path); err == nil && excluded(rel, de.IsDir(), exclude) {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if utils.HasExt(path, ext) {
			bundles = append(bundles, path)
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if de.IsDir() {
			dirs++
		}
		return nil
	})
	if err != nil {
		return nil, dirs, err
	}
	return bundles, dirs, nil
}

func excluded(rel string, dir bool, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if dir {
			if ok, err := doublestar.Match(pattern, rel+"/"); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// verify opens candidates in order, keeping those that carry a missing UUID,
// and stops as soon as nothing is missing
func verify(ctx context.Context, cache *dsym.Cache, tier string, candidates []string, missing map[crashlog.UUID]struct{}) ([]SearchResult, error) {
	if cache == nil {
		return nil, fmt.Errorf("%s: no dSYM cache", tier)
	}
	left := make(map[crashlog.UUID]struct{}, len(missing))
	for u := range missing {
		left[u] = struct{}{}
	}

	var results []SearchResult
	for _, path := range candidates {
		if len(left) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		f, err := cache.Load(ctx, path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("Skipping candidate")
			continue
		}
		for _, arch := range f.Arches() {
			u := f.UUIDs[arch]
			if _, ok := left[u]; !ok {
				continue
			}
			delete(left, u)
			results = append(results, SearchResult{Path: f.Path, UUID: u, Arch: arch, Tier: tier})
		}
	}

	return results, nil
}
