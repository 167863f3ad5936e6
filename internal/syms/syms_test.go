package syms

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/blacktop/symbolicator/internal/db"
	"github.com/blacktop/symbolicator/pkg/crashlog"
	"github.com/blacktop/symbolicator/pkg/dsym"
)

const (
	appUUID   crashlog.UUID = "c8ecc43a6f0f3880920a071973da584c"
	appUUIDv7 crashlog.UUID = "0123456789abcdef0123456789abcdef"
	kitUUID   crashlog.UUID = "11111111222233334444555555555555"
)

type fakeReader map[string]map[crashlog.Arch]crashlog.UUID

func (f fakeReader) ReadUUIDs(_ context.Context, path string) (map[crashlog.Arch]crashlog.UUID, error) {
	if uuids, ok := f[filepath.Base(path)]; ok {
		return uuids, nil
	}
	return nil, fmt.Errorf("no UUIDs for %s", path)
}

func makeBundle(t *testing.T, dir, name string) string {
	t.Helper()
	bundle := filepath.Join(dir, name)
	dwarf := filepath.Join(bundle, "Contents", "Resources", "DWARF")
	if err := os.MkdirAll(dwarf, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dwarf, "bin"), []byte{0xcf, 0xfa, 0xed, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}
	return bundle
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	app := makeBundle(t, filepath.Join(root, "App 2024-01-01.xcarchive", "dSYMs"), "App.app.dSYM")
	kit := makeBundle(t, filepath.Join(root, "Kit"), "Kit.framework.dSYM")
	makeBundle(t, root, "Broken.framework.dSYM")
	makeBundle(t, filepath.Join(root, "skip"), "Skipped.app.dSYM")

	reader := fakeReader{
		"App.app.dSYM":       {crashlog.ArchARM64: appUUID, "armv7": appUUIDv7},
		"Kit.framework.dSYM": {crashlog.ArchARM64: kitUUID},
		"Skipped.app.dSYM":   {crashlog.ArchARM64: "ffffffffffffffffffffffffffffffff"},
	}
	cache, err := dsym.NewCache(16, reader)
	if err != nil {
		t.Fatal(err)
	}

	database, err := db.NewSqlite(filepath.Join(t.TempDir(), "index.db"), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Connect(); err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	stats, err := Scan(context.Background(), []string{root}, cache, database, &Config{
		Extension: ".dSYM",
		Exclude:   []string{"skip/**"},
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if stats.Bundles != 2 || stats.Failed != 1 || stats.Entries != 3 {
		t.Errorf("Scan() stats = %+v, want 2 bundles, 1 failed, 3 entries", stats)
	}

	entries, err := Lookup(database, appUUID, appUUIDv7, kitUUID)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	got := make(map[string]string)
	for _, e := range entries {
		got[e.UUID] = e.Path
	}
	want := map[string]string{
		string(appUUID):   app,
		string(appUUIDv7): app,
		string(kitUUID):   kit,
	}
	if len(got) != len(want) {
		t.Fatalf("Lookup() = %v, want %v", got, want)
	}
	for u, p := range want {
		if got[u] != p {
			t.Errorf("entry %s path = %q, want %q", u, got[u], p)
		}
	}
}

func TestEntries(t *testing.T) {
	now := time.Now()
	f := &dsym.File{
		Path:  "/tmp/App.app.dSYM",
		UUIDs: map[crashlog.Arch]crashlog.UUID{crashlog.ArchARM64: appUUID, crashlog.ArchX86_64: kitUUID},
		Info:  &dsym.BundleInfo{CFBundleShortVersionString: "1.2", CFBundleVersion: "42"},
	}
	entries := Entries(f, now)
	if len(entries) != 2 {
		t.Fatalf("Entries() = %d entries, want 2", len(entries))
	}
	var arches []string
	for _, e := range entries {
		arches = append(arches, e.Arch)
		if e.Version != "1.2 (42)" {
			t.Errorf("Version = %q, want 1.2 (42)", e.Version)
		}
		if e.Path != f.Path || !e.IndexedAt.Equal(now) {
			t.Errorf("entry = %+v", e)
		}
	}
	if !sort.StringsAreSorted(arches) {
		t.Errorf("arches %v not sorted", arches)
	}
}
