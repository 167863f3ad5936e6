// Package discovery finds the dSYM bundles a report needs, trying cheap
// sources (metadata indexes) before expensive ones (filesystem scans).
package discovery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/dsym"
)

// ErrIndexUnavailable is returned by a metadata index tier that cannot run on this host
var ErrIndexUnavailable = errors.New("metadata index unavailable")

// SearchResult is a bundle found to carry a missing UUID
type SearchResult struct {
	Path string        `json:"path"`
	UUID crashlog.UUID `json:"uuid"`
	Arch crashlog.Arch `json:"arch,omitempty"`
	Tier string        `json:"tier"`
}

// Request is what a tier searches for
type Request struct {
	// Missing holds the UUIDs not found by earlier tiers
	Missing   map[crashlog.UUID]struct{}
	ReportDir string
	// Cache opens candidate bundles for the tiers that must verify them
	Cache *dsym.Cache
}

// Tier is one stage of the discovery chain
type Tier interface {
	Name() string
	Search(ctx context.Context, req Request) ([]SearchResult, error)
}

// Query starts a discovery run
type Query struct {
	Expected  map[crashlog.UUID]struct{}
	ReportDir string
	// Cache is the session's bundle cache
	Cache *dsym.Cache
	// Key, when set, makes this run supersede any run still active under
	// the same key. Runs without a key never cancel each other.
	Key string
}

// Callback receives the new results of each tier. finished is true once
// nothing is missing; no further callbacks follow.
type Callback func(finished bool, results []SearchResult)

type run struct {
	key    string
	cancel context.CancelFunc
}

// Service runs tiers in order until every expected UUID is found.
// A run started with a Query.Key cancels the previous run with that key and
// silences its callbacks.
type Service struct {
	tiers []Tier

	mu    sync.Mutex
	gen   uint64
	runs  map[uint64]*run
	byKey map[string]uint64
}

// NewService creates a discovery service trying tiers in order
func NewService(tiers ...Tier) *Service {
	return &Service{
		tiers: tiers,
		runs:  make(map[uint64]*run),
		byKey: make(map[string]uint64),
	}
}

// Tiers returns the names of the configured tiers
func (s *Service) Tiers() []string {
	var names []string
	for _, t := range s.tiers {
		names = append(names, t.Name())
	}
	return names
}

// Stop cancels every active run
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for gen, r := range s.runs {
		r.cancel()
		delete(s.runs, gen)
	}
	clear(s.byKey)
}

func (s *Service) start(ctx context.Context, key string) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != "" {
		if prev, ok := s.byKey[key]; ok {
			s.drop(prev)
		}
	}
	s.gen++
	ctx, cancel := context.WithCancel(ctx)
	s.runs[s.gen] = &run{key: key, cancel: cancel}
	if key != "" {
		s.byKey[key] = s.gen
	}
	return ctx, s.gen
}

// drop cancels and forgets run gen; s.mu must be held
func (s *Service) drop(gen uint64) {
	r, ok := s.runs[gen]
	if !ok {
		return
	}
	r.cancel()
	delete(s.runs, gen)
	if r.key != "" && s.byKey[r.key] == gen {
		delete(s.byKey, r.key)
	}
}

func (s *Service) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop(gen)
}

func (s *Service) current(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[gen]
	return ok && ctx.Err() == nil
}

// Run searches for q.Expected and returns every result found. cb (optional)
// is invoked after each tier that ran.
func (s *Service) Run(ctx context.Context, q Query, cb Callback) ([]SearchResult, error) {
	ctx, gen := s.start(ctx, q.Key)
	defer s.finish(gen)

	deliver := func(finished bool, results []SearchResult) {
		if cb != nil && s.current(ctx, gen) {
			cb(finished, results)
		}
	}

	found := make(map[crashlog.UUID]struct{})
	var all []SearchResult

	missing := difference(q.Expected, found)
	if len(missing) == 0 {
		deliver(true, nil)
		return nil, nil
	}

	for _, tier := range s.tiers {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		start := time.Now()
		results, err := tier.Search(ctx, Request{Missing: missing, ReportDir: q.ReportDir, Cache: q.Cache})
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			entry := log.WithError(err).WithField("tier", tier.Name())
			if errors.Is(err, ErrIndexUnavailable) {
				entry.Debug("Skipping tier")
			} else {
				entry.Warn("Discovery tier failed")
			}
		}

		var fresh []SearchResult
		for _, r := range results {
			if _, ok := missing[r.UUID]; !ok {
				continue
			}
			if _, dup := found[r.UUID]; dup {
				continue
			}
			if r.Tier == "" {
				r.Tier = tier.Name()
			}
			found[r.UUID] = struct{}{}
			fresh = append(fresh, r)
		}
		all = append(all, fresh...)

		missing = difference(q.Expected, found)
		utils.Indent(log.WithFields(log.Fields{
			"found":   len(found),
			"missing": len(missing),
			"took":    time.Since(start).Round(time.Millisecond),
		}).Info, 2)(tier.Name())

		finished := len(missing) == 0
		deliver(finished, fresh)
		if finished {
			break
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Path < all[j].Path })

	return all, nil
}

func difference(expected, found map[crashlog.UUID]struct{}) map[crashlog.UUID]struct{} {
	out := make(map[crashlog.UUID]struct{}, len(expected))
	for u := range expected {
		if _, ok := found[u]; !ok {
			out[u] = struct{}{}
		}
	}
	return out
}

// Paths returns the distinct bundle paths of results
func Paths(results []SearchResult) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, r := range results {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}
	return paths
}
