// Package symbolicate replaces the unresolved addresses of a report with
// symbols looked up in dSYM bundles.
package symbolicate

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/dsym"
	"golang.org/x/sync/errgroup"
)

// Engine symbolicates reports. The zero value is not usable; use New.
type Engine struct {
	lookup   Lookup
	parallel bool
	workers  int
}

// Option configures an Engine
type Option func(*Engine)

// WithParallel processes the report's processes concurrently
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = parallel
	}
}

// WithWorkers bounds the number of processes handled at once
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New creates an Engine resolving symbols with lookup
func New(lookup Lookup, opts ...Option) *Engine {
	e := &Engine{
		lookup:   lookup,
		parallel: true,
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GroupOutcome is the result of symbolicating the frames of one image
type GroupOutcome struct {
	Image       string        `json:"image"`
	LoadAddress string        `json:"load_address"`
	UUID        crashlog.UUID `json:"uuid"`
	Bundle      string        `json:"bundle,omitempty"`
	Arch        crashlog.Arch `json:"arch,omitempty"`
	Frames      int           `json:"frames"`
	Replaced    int           `json:"replaced"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
}

// Skipped returns true if no dSYM matched the group
func (g GroupOutcome) Skipped() bool {
	return g.Err == ErrNoDebugSymbols
}

// ProcessOutcome is the result of symbolicating one process
type ProcessOutcome struct {
	Name   string         `json:"name"`
	Arch   crashlog.Arch  `json:"arch,omitempty"`
	Groups []GroupOutcome `json:"groups,omitempty"`
	Err    error          `json:"-"`
	Error  string         `json:"error,omitempty"`

	edits []edit
}

// Succeeded is false only if the process could not be symbolicated at all
func (p ProcessOutcome) Succeeded() bool {
	return p.Err == nil
}

// Result is the symbolicated report
type Result struct {
	Content   string           `json:"-"`
	Processes []ProcessOutcome `json:"processes"`
}

// Succeeded returns true if every process succeeded
func (r *Result) Succeeded() bool {
	for _, p := range r.Processes {
		if !p.Succeeded() {
			return false
		}
	}
	return true
}

// Err joins the errors of the failed processes
func (r *Result) Err() error {
	var msgs []string
	for _, p := range r.Processes {
		if p.Err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", p.Name, p.Err))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("failed to symbolicate %s", strings.Join(msgs, "; "))
}

type edit struct {
	old string
	new string
}

type group struct {
	image  *crashlog.BinaryImage
	frames []crashlog.StackFrame
}

// Symbolicate resolves the frames of every process in report against
// bundles. The report itself is not modified; the new text is returned in
// Result.Content.
func (e *Engine) Symbolicate(ctx context.Context, report *crashlog.Report, bundles []*dsym.File) (*Result, error) {
	procs := report.Processes()
	outcomes := make([]ProcessOutcome, len(procs))

	var g errgroup.Group
	if e.parallel {
		g.SetLimit(e.workers)
	} else {
		g.SetLimit(1)
	}
	for i, proc := range procs {
		g.Go(func() error {
			outcomes[i] = e.SymbolicateProcess(ctx, proc, bundles)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// edits are applied in process order so the output does not depend on scheduling
	content := report.Content
	for _, out := range outcomes {
		for _, ed := range out.edits {
			content = strings.ReplaceAll(content, ed.old, ed.new)
		}
	}

	return &Result{
		Content:   content,
		Processes: outcomes,
	}, nil
}

// SymbolicateProcess computes the substitutions for one process
func (e *Engine) SymbolicateProcess(ctx context.Context, proc *crashlog.Process, bundles []*dsym.File) ProcessOutcome {
	out := ProcessOutcome{Name: proc.Name, Arch: proc.Arch}
	fields := log.Fields{"process": proc.Name}

	if !proc.HasArch() {
		log.WithFields(fields).Error("could not detect architecture")
		return out.fail(fmt.Errorf("%w: %s", crashlog.ErrMissingArchitecture, proc.Name))
	}
	if len(proc.Frames)+proc.UnresolvedFrames > 0 && (proc.Images == nil || proc.Images.Len() == 0) {
		log.WithFields(fields).Error("no binary images found (likely a crash at launch with a partial report)")
		return out.fail(fmt.Errorf("%w: %s", crashlog.ErrMissingBinaryImages, proc.Name))
	}
	if len(proc.Frames) == 0 {
		log.WithFields(fields).Debug("Nothing to symbolicate")
		return out
	}

	for _, grp := range groupFrames(proc.Frames) {
		if ctx.Err() != nil {
			return out.fail(ctx.Err())
		}
		gout, edits := e.symbolicateGroup(ctx, proc.Arch, grp, bundles)
		if gout.Err != nil {
			gout.Error = gout.Err.Error()
		}
		out.Groups = append(out.Groups, gout)
		out.edits = append(out.edits, edits...)
	}

	return out
}

func (p ProcessOutcome) fail(err error) ProcessOutcome {
	p.Err = err
	p.Error = err.Error()
	return p
}

func (e *Engine) symbolicateGroup(ctx context.Context, arch crashlog.Arch, grp group, bundles []*dsym.File) (GroupOutcome, []edit) {
	img := grp.image
	out := GroupOutcome{
		Image:       img.Name,
		LoadAddress: img.LoadAddress,
		UUID:        img.UUID,
		Frames:      len(grp.frames),
	}
	fields := log.Fields{
		"image":        img.Name,
		"load_address": img.LoadAddress,
		"uuid":         img.UUID.Pretty(),
	}

	bundle, sliceArch, ok := findBundle(bundles, img.UUID, arch)
	if !ok {
		log.WithFields(fields).Warn(ErrNoDebugSymbols.Error())
		out.Err = ErrNoDebugSymbols
		return out, nil
	}
	out.Bundle = bundle.Path
	out.Arch = sliceArch

	addrs := make([]string, 0, len(grp.frames))
	for _, f := range grp.frames {
		addrs = append(addrs, f.Address)
	}

	lines, err := e.lookup.Lookup(ctx, Request{
		Binary:      bundle.BinaryPath(),
		Arch:        sliceArch,
		LoadAddress: img.LoadAddress,
		Addresses:   addrs,
	})
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Symbol lookup failed")
		out.Err = err
		return out, nil
	}
	if len(lines) != len(addrs) {
		mismatch := &CountMismatchError{Image: img.Name, Expected: len(addrs), Got: len(lines), Output: lines}
		log.WithFields(fields).WithField("output", mismatch.FullOutput()).Error(mismatch.Error())
		out.Err = mismatch
		return out, nil
	}

	var edits []edit
	for i, f := range grp.frames {
		line, ok := f.Replace(lines[i])
		if !ok || line == f.RawText {
			continue
		}
		edits = append(edits, edit{old: f.RawText, new: line})
		out.Replaced++
	}
	log.WithFields(fields).Debugf("Symbolicated %d/%d frames", out.Replaced, out.Frames)

	return out, edits
}

// groupFrames groups the substitutable frames by image load address, in
// order of first appearance
func groupFrames(frames []crashlog.StackFrame) []group {
	var groups []group
	index := make(map[string]int)
	for _, f := range frames {
		if f.Image == nil || !f.Substitutable() {
			continue
		}
		key := f.Image.LoadAddress
		if norm, ok := crashlog.NormalizeAddress(key); ok {
			key = norm
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{image: f.Image})
		}
		groups[i].frames = append(groups[i].frames, f)
	}
	return groups
}

func findBundle(bundles []*dsym.File, uuid crashlog.UUID, arch crashlog.Arch) (*dsym.File, crashlog.Arch, bool) {
	// exact arch match first, across all bundles
	for _, b := range bundles {
		if u, ok := b.UUIDFor(arch); ok && u == uuid {
			return b, arch, true
		}
	}
	for _, b := range bundles {
		if a, ok := b.Match(uuid, arch); ok {
			return b, a, true
		}
	}
	return nil, "", false
}
