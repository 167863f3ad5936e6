// Package symbolicate wires report parsing, dSYM discovery and the
// symbolication engine together for the CLI, the daemon and the watcher.
package symbolicate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/config"
	"github.com/blacktop/symbolicator/internal/db"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/discovery"
	"github.com/blacktop/symbolicator/pkg/dsym"
	engine "github.com/blacktop/symbolicator/pkg/symbolicate"
)

// Options for a single Run
type Options struct {
	// DSYMs are bundles supplied by the user
	DSYMs []string
	// Output overrides the default <stem>_symbolicated.<ext> path
	Output string
	// TranslateOnly stops after translating the report
	TranslateOnly bool
	// UUIDsOnly stops after resolving the report's dSYM requirements
	UUIDsOnly bool
	// Discover searches for the dSYMs the user did not supply
	Discover bool
	// DryRun skips writing the output file
	DryRun bool
	// OnDiscover receives the results of each discovery tier
	OnDiscover discovery.Callback
}

// Outcome is the result of a Run
type Outcome struct {
	Report       string                   `json:"report"`
	Output       string                   `json:"output,omitempty"`
	Translated   bool                     `json:"translated"`
	Header       *crashlog.Metadata       `json:"header,omitempty"`
	Requirements *crashlog.Requirements   `json:"requirements,omitempty"`
	Missing      []crashlog.Requirement   `json:"missing,omitempty"`
	Discovered   []discovery.SearchResult `json:"discovered,omitempty"`
	DSYMs        []*dsym.File             `json:"dsyms,omitempty"`
	Result       *engine.Result           `json:"result,omitempty"`
	Content      string                   `json:"-"`
}

// Symbolicator holds the tools and services shared by every Run
type Symbolicator struct {
	conf    *config.Config
	runner  utils.Runner
	reader  dsym.UUIDReader
	lookup  engine.Lookup
	index   db.Database
	service *discovery.Service
	engine  *engine.Engine
	opts    []crashlog.Option
}

// Option configures a Symbolicator
type Option func(*Symbolicator)

// WithRunner replaces the subprocess runner used for every external tool
func WithRunner(r utils.Runner) Option {
	return func(s *Symbolicator) {
		s.runner = r
	}
}

// WithUUIDReader replaces the bundle UUID reader
func WithUUIDReader(r dsym.UUIDReader) Option {
	return func(s *Symbolicator) {
		s.reader = r
	}
}

// WithLookup replaces the symbol lookup tool
func WithLookup(l engine.Lookup) Option {
	return func(s *Symbolicator) {
		s.lookup = l
	}
}

// WithDatabase sets the dSYM index used as a discovery tier
func WithDatabase(d db.Database) Option {
	return func(s *Symbolicator) {
		s.index = d
	}
}

// New creates a Symbolicator from conf
func New(conf *config.Config, opts ...Option) (*Symbolicator, error) {
	s := &Symbolicator{conf: conf}
	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		s.runner = &utils.ExecRunner{Timeout: conf.Tools.Timeout}
	}
	if s.reader == nil {
		switch conf.Tools.UUIDReader {
		case "macho":
			s.reader = dsym.Macho{}
		default:
			s.reader = dsym.NewDwarfdump(conf.Tools.Dwarfdump, s.runner)
		}
	}
	if s.lookup == nil {
		s.lookup = engine.NewAtos(conf.Tools.Atos, s.runner)
	}
	if s.index == nil && conf.Discovery.Index != "" {
		d, err := db.Open(conf.Discovery.Index, 100)
		if err != nil {
			return nil, err
		}
		if err := d.Connect(); err != nil {
			return nil, fmt.Errorf("failed to open dSYM index %s: %w", conf.Discovery.Index, err)
		}
		s.index = d
	}

	s.engine = engine.New(s.lookup, engine.WithParallel(conf.Symbolicate.Parallel))
	s.opts = []crashlog.Option{
		crashlog.WithSystemClassifier(crashlog.PathPrefixClassifier(conf.Symbolicate.SystemPrefixes)),
	}
	s.service = discovery.NewService(s.tiers()...)

	return s, nil
}

func (s *Symbolicator) tiers() []discovery.Tier {
	var tiers []discovery.Tier
	if s.conf.Discovery.Spotlight {
		sp := discovery.NewSpotlight(s.conf.Tools.Mdfind, s.conf.Tools.Mdls, s.runner)
		tiers = append(tiers, sp)
	}
	if s.index != nil {
		tiers = append(tiers, &discovery.Index{DB: s.index})
	}
	tiers = append(tiers, &discovery.ShallowScan{Extension: s.conf.Discovery.Extension})
	if s.conf.Discovery.Archives != "" {
		tiers = append(tiers, &discovery.DeepScan{
			Root:      s.conf.Discovery.Archives,
			Extension: s.conf.Discovery.Extension,
			Exclude:   s.conf.Discovery.Exclude,
		})
	}
	return tiers
}

// Index returns the configured dSYM index, or nil
func (s *Symbolicator) Index() db.Database {
	return s.index
}

// Tiers returns the names of the discovery tiers, cheapest first
func (s *Symbolicator) Tiers() []string {
	return s.service.Tiers()
}

// UUIDReader returns the name of the configured bundle UUID reader
func (s *Symbolicator) UUIDReader() string {
	switch s.reader.(type) {
	case dsym.Macho, *dsym.Macho:
		return "macho"
	case *dsym.Dwarfdump:
		return "dwarfdump"
	default:
		return "custom"
	}
}

// Close releases the dSYM index, if any
func (s *Symbolicator) Close() error {
	s.service.Stop()
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}

// NewCache returns a bundle cache for one session
func (s *Symbolicator) NewCache() (*dsym.Cache, error) {
	return dsym.NewCache(s.conf.Symbolicate.CacheSize, s.reader)
}

// Open loads the report at path with the configured system classifier
func (s *Symbolicator) Open(ctx context.Context, path string) (*crashlog.Report, error) {
	return crashlog.Open(ctx, path, s.opts...)
}

// Parse loads a report held in memory
func (s *Symbolicator) Parse(ctx context.Context, name string, data []byte) (*crashlog.Report, error) {
	return crashlog.Parse(ctx, name, data, s.opts...)
}

// Discover searches for the report's missing dSYMs. Starting a new
// discovery for the same report cancels the one in flight.
func (s *Symbolicator) Discover(ctx context.Context, report *crashlog.Report, have []*dsym.File, cache *dsym.Cache, cb discovery.Callback) ([]discovery.SearchResult, error) {
	return s.discover(ctx, report, have, cache, report.Path, cb)
}

// discover runs the tiers; an empty key never supersedes other runs
func (s *Symbolicator) discover(ctx context.Context, report *crashlog.Report, have []*dsym.File, cache *dsym.Cache, key string, cb discovery.Callback) ([]discovery.SearchResult, error) {
	expected := report.Requirements().ExpectedNonSystemUUIDs()
	for _, f := range have {
		for _, u := range f.UUIDs {
			delete(expected, u)
		}
	}
	return s.service.Run(ctx, discovery.Query{
		Expected:  expected,
		ReportDir: report.Dir(),
		Cache:     cache,
		Key:       key,
	}, cb)
}

// Run symbolicates the report at path
func (s *Symbolicator) Run(ctx context.Context, path string, o Options) (*Outcome, error) {
	report, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.RunReport(ctx, report, o)
}

// RunReport symbolicates an already loaded report
func (s *Symbolicator) RunReport(ctx context.Context, report *crashlog.Report, o Options) (*Outcome, error) {
	out := &Outcome{
		Report:     report.Path,
		Translated: report.Translated,
		Header:     report.Header,
	}
	if md := report.Header; md != nil {
		log.WithFields(log.Fields{
			"app":      md.Title(),
			"os":       md.OS(),
			"incident": md.IncidentID,
		}).Debug("Report header")
	}

	if o.TranslateOnly {
		out.Content = report.Content
		return out, s.write(out, report, o)
	}

	out.Requirements = report.Requirements()
	if o.UUIDsOnly {
		return out, nil
	}

	if len(o.DSYMs) == 0 && !o.Discover {
		return nil, errors.New("no dSYMs given (pass dSYM paths or enable discovery)")
	}

	cache, err := s.NewCache()
	if err != nil {
		return nil, err
	}
	bundles := cache.LoadAll(ctx, o.DSYMs)

	if o.Discover {
		// unkeyed so concurrent daemon requests stay independent
		results, err := s.discover(ctx, report, bundles, cache, "", o.OnDiscover)
		if err != nil {
			return nil, fmt.Errorf("dSYM discovery failed: %w", err)
		}
		out.Discovered = results
		bundles = append(bundles, cache.LoadAll(ctx, discovery.Paths(results))...)
	}
	out.DSYMs = bundles

	found := make(map[crashlog.UUID]struct{})
	for _, b := range bundles {
		for _, u := range b.UUIDs {
			found[u] = struct{}{}
		}
	}
	out.Missing = out.Requirements.Missing(found)
	for _, m := range out.Missing {
		log.WithFields(log.Fields{"target": m.TargetName, "uuid": m.UUID.Pretty()}).Debug("Missing dSYM")
	}

	res, err := s.engine.Symbolicate(ctx, report, bundles)
	if err != nil {
		return nil, err
	}
	out.Result = res
	out.Content = res.Content

	if !res.Succeeded() {
		return out, res.Err()
	}

	return out, s.write(out, report, o)
}

func (s *Symbolicator) write(out *Outcome, report *crashlog.Report, o Options) error {
	if o.DryRun {
		return nil
	}
	out.Output = o.Output
	if out.Output == "" {
		out.Output = OutputPath(report.Path, o.TranslateOnly)
	}
	if err := os.MkdirAll(filepath.Dir(out.Output), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out.Output, []byte(out.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out.Output, err)
	}
	return nil
}

// OutputPath returns where the output for report is written by default
func OutputPath(report string, translated bool) string {
	if translated {
		ext := filepath.Ext(report)
		return report[:len(report)-len(ext)] + "_translated.crash"
	}
	return crashlog.OutputPath(report)
}
