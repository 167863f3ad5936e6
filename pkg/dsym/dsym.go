// Package dsym models debug symbol bundles (dSYMs) and the UUIDs they carry.
package dsym

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/magic"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/pkg/errors"
)

// ErrBundleParse is returned when no UUIDs could be read from a bundle
var ErrBundleParse = errors.New("failed to parse debug symbol bundle")

// ParseError carries the tool output of a failed UUID read
type ParseError struct {
	Path   string
	Output string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v %s", ErrBundleParse, e.Path)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBundleParse) match
func (e *ParseError) Is(target error) bool { return target == ErrBundleParse }

// UUIDReader reads the per-architecture UUIDs of a bundle or binary
type UUIDReader interface {
	ReadUUIDs(ctx context.Context, path string) (map[crashlog.Arch]crashlog.UUID, error)
}

// File is a debug symbol bundle
type File struct {
	Path  string                          `json:"path"`
	UUIDs map[crashlog.Arch]crashlog.UUID `json:"uuids"`
	Info  *BundleInfo                     `json:"info,omitempty"`

	binaryPath string
}

// Open reads the UUIDs of the bundle at path
func Open(ctx context.Context, path string, reader UUIDReader) (*File, error) {
	path = filepath.Clean(path)

	uuids, err := reader.ReadUUIDs(ctx, path)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:  path,
		UUIDs: uuids,
	}

	if info, err := ReadBundleInfo(path); err == nil {
		f.Info = info
	} else if !os.IsNotExist(errors.Cause(err)) {
		log.WithError(err).WithField("path", path).Debug("Failed to read bundle Info.plist")
	}

	f.binaryPath, err = resolveBinaryPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve DWARF binary in %s", path)
	}

	return f, nil
}

// BinaryPath returns the path of the DWARF binary inside the bundle, or the
// path itself if it is not a bundle.
func (f *File) BinaryPath() string {
	if f.binaryPath == "" {
		return f.Path
	}
	return f.binaryPath
}

// UUIDFor returns the bundle's UUID for arch
func (f *File) UUIDFor(arch crashlog.Arch) (crashlog.UUID, bool) {
	u, ok := f.UUIDs[arch]
	return u, ok
}

// Match reports whether the bundle carries uuid. The slice for arch is
// preferred; any other slice with the same UUID also matches. The returned
// arch is the slice that matched.
func (f *File) Match(uuid crashlog.UUID, arch crashlog.Arch) (crashlog.Arch, bool) {
	if u, ok := f.UUIDs[arch]; ok && u == uuid {
		return arch, true
	}
	for _, a := range f.Arches() {
		if f.UUIDs[a] == uuid {
			return a, true
		}
	}
	return "", false
}

// Has returns true if any slice of the bundle carries uuid
func (f *File) Has(uuid crashlog.UUID) bool {
	_, ok := f.Match(uuid, "")
	return ok
}

// Arches returns the bundle's architectures in sorted order
func (f *File) Arches() []crashlog.Arch {
	arches := make([]crashlog.Arch, 0, len(f.UUIDs))
	for a := range f.UUIDs {
		arches = append(arches, a)
	}
	sort.Slice(arches, func(i, j int) bool { return arches[i] < arches[j] })
	return arches
}

// Name returns the bundle's file name
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

func (f *File) String() string {
	var parts []string
	for _, a := range f.Arches() {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.UUIDs[a].Pretty(), a))
	}
	return fmt.Sprintf("%s: %s", f.Path, strings.Join(parts, ", "))
}

// resolveBinaryPath finds <bundle>/Contents/Resources/DWARF/<binary>. The
// entry named after the bundle stem wins; otherwise the first Mach-O entry.
func resolveBinaryPath(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}

	dwarfDir := filepath.Join(path, "Contents", "Resources", "DWARF")
	entries, err := os.ReadDir(dwarfDir)
	if err != nil {
		return "", err
	}

	stem := bundleStem(path)
	var candidates []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if e.Name() == stem {
			return filepath.Join(dwarfDir, e.Name()), nil
		}
		candidates = append(candidates, filepath.Join(dwarfDir, e.Name()))
	}
	for _, c := range candidates {
		if ok, err := magic.IsMachO(c); err == nil && ok {
			return c, nil
		}
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}

	return "", fmt.Errorf("no DWARF binary found in %s", dwarfDir)
}

// bundleStem strips the .dSYM and product extensions: Foo.app.dSYM -> Foo
func bundleStem(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch ext := filepath.Ext(name); ext {
	case ".app", ".framework", ".appex", ".bundle", ".dylib", ".xpc", ".kext", ".plugin":
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
