package discovery

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

// spotlightAttr is the metadata attribute Xcode's importer sets on dSYM bundles
const spotlightAttr = "com_apple_xcode_dsym_uuids"

var mdlsUUIDRE = regexp.MustCompile(`[[:xdigit:]]{8}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{4}-[[:xdigit:]]{12}`)

// Spotlight queries the macOS metadata index with mdfind
type Spotlight struct {
	Mdfind  string
	Mdls    string
	Runner  utils.Runner
	Enabled bool
}

// NewSpotlight returns a Spotlight tier, enabled only on darwin
func NewSpotlight(mdfind, mdls string, runner utils.Runner) *Spotlight {
	if mdfind == "" {
		mdfind = "mdfind"
	}
	if mdls == "" {
		mdls = "mdls"
	}
	if runner == nil {
		runner = &utils.ExecRunner{}
	}
	return &Spotlight{
		Mdfind:  mdfind,
		Mdls:    mdls,
		Runner:  runner,
		Enabled: runtime.GOOS == "darwin",
	}
}

// Name implements Tier
func (s *Spotlight) Name() string { return "spotlight" }

// SpotlightQuery returns the OR predicate over every UUID
func SpotlightQuery(uuids map[crashlog.UUID]struct{}) string {
	var preds []string
	for _, u := range sortedUUIDs(uuids) {
		preds = append(preds, fmt.Sprintf("%s == %q", spotlightAttr, u.Pretty()))
	}
	return strings.Join(preds, " || ")
}

// Search implements Tier
func (s *Spotlight) Search(ctx context.Context, req Request) ([]SearchResult, error) {
	if !s.Enabled {
		return nil, fmt.Errorf("%w: spotlight requires macOS", ErrIndexUnavailable)
	}
	if len(req.Missing) == 0 {
		return nil, nil
	}

	stdout, _, err := s.Runner.Run(ctx, s.Mdfind, SpotlightQuery(req.Missing))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	var results []SearchResult
	for _, path := range strings.Split(strings.TrimSpace(string(stdout)), "\n") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		uuids, err := s.tags(ctx, path)
		if err != nil {
			log.WithError(err).WithField("path", path).Debug("Failed to read dSYM UUIDs from metadata")
			continue
		}
		for _, u := range uuids {
			if _, ok := req.Missing[u]; ok {
				results = append(results, SearchResult{Path: path, UUID: u, Tier: s.Name()})
			}
		}
	}

	return results, nil
}

// tags reads the UUIDs the index recorded for path
func (s *Spotlight) tags(ctx context.Context, path string) ([]crashlog.UUID, error) {
	stdout, _, err := s.Runner.Run(ctx, s.Mdls, "-raw", "-name", spotlightAttr, path)
	if err != nil {
		return nil, err
	}
	var uuids []crashlog.UUID
	for _, m := range mdlsUUIDRE.FindAllString(string(stdout), -1) {
		if u, ok := crashlog.ParseUUID(m); ok {
			uuids = append(uuids, u)
		}
	}
	return uuids, nil
}

func sortedUUIDs(set map[crashlog.UUID]struct{}) []crashlog.UUID {
	out := make([]crashlog.UUID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
