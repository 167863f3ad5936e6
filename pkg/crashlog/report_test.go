package crashlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenCrashReport(t *testing.T) {
	r, err := Open(context.Background(), writeReport(t, "CrashingTest.crash", crashReport))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	procs := r.Processes()
	if len(procs) != 1 {
		t.Fatalf("Processes() = %d, want 1", len(procs))
	}
	proc := procs[0]
	if proc.Name != "CrashingTest" {
		t.Errorf("Name = %q", proc.Name)
	}
	if proc.Arch != ArchX86_64 {
		t.Errorf("Arch = %q, want x86_64", proc.Arch)
	}
	if proc.Images.Len() != 3 {
		t.Errorf("Images = %d, want 3", proc.Images.Len())
	}
	if len(proc.Frames) != 5 {
		t.Fatalf("Frames = %d, want 5", len(proc.Frames))
	}

	kinds := []HintKind{HintLoadAddress, HintTargetName, HintSymbol, HintLoadAddress, HintSymbol}
	for i, frame := range proc.Frames {
		if frame.Hint.Kind != kinds[i] {
			t.Errorf("frame %d kind = %v, want %v", i, frame.Hint.Kind, kinds[i])
		}
	}
	if got := proc.Frames[3].Image.Name; got != "Helper" {
		t.Errorf("frame 3 image = %q, want Helper", got)
	}

	req := r.Requirements()
	crashing := MustParseUUID("C8ECC43A-6F0F-3880-920A-071973DA584C")
	helper := MustParseUUID("11111111-2222-3333-4444-555555555555")
	dyld := MustParseUUID("5FB7E4D6-4C6B-3E0E-8F1E-5F3C2E5B7A11")

	wantRecommended := map[UUID]Requirement{
		crashing: {TargetName: "CrashingTest", UUID: crashing},
		helper:   {TargetName: "Helper", UUID: helper},
	}
	if !reflect.DeepEqual(req.Recommended, wantRecommended) {
		t.Errorf("Recommended = %v, want %v", req.Recommended, wantRecommended)
	}
	if len(req.Optional) != 0 {
		t.Errorf("Optional = %v, want empty (CrashingTest is already recommended)", req.Optional)
	}
	if _, ok := req.System[dyld]; !ok || len(req.System) != 1 {
		t.Errorf("System = %v, want libdyld only", req.System)
	}
}

func TestOpenSampleReport(t *testing.T) {
	r, err := Open(context.Background(), writeReport(t, "hang.txt", sampleReport))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	procs := r.Processes()
	if len(procs) != 1 {
		t.Fatalf("Processes() = %d, want 1", len(procs))
	}
	proc := procs[0]
	if proc.Name != "MultiTargetHangingTest" || proc.Arch != ArchX86_64 {
		t.Errorf("process = %q %q", proc.Name, proc.Arch)
	}
	if len(proc.Frames) != 2 {
		t.Fatalf("Frames = %d, want 2", len(proc.Frames))
	}
	for _, frame := range proc.Frames {
		if frame.Hint.Kind != HintSample || frame.Image.LoadAddress != "0x10069d000" {
			t.Errorf("frame = %+v", frame)
		}
	}
	if got := proc.Frames[0].RawText; got != "??? (in MultiTargetHangingTest)  load address 0x10069d000 + 0x3e3f  [0x1006a0e3f]" {
		t.Errorf("RawText = %q", got)
	}
}

func TestOpenSpindump(t *testing.T) {
	r, err := Open(context.Background(), writeReport(t, "hang.spindump.txt", spindumpReport))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	procs := r.Processes()
	if len(procs) != 2 {
		t.Fatalf("Processes() = %d, want 2", len(procs))
	}
	if procs[0].Name != "MultiTargetHangingTest" || len(procs[0].Frames) != 2 {
		t.Errorf("process 0 = %q with %d frames", procs[0].Name, len(procs[0].Frames))
	}
	if procs[1].Name != "Helper" || len(procs[1].Frames) != 1 {
		t.Errorf("process 1 = %q with %d frames", procs[1].Name, len(procs[1].Frames))
	}
	// Helper declares no architecture and falls back to the report header
	if procs[1].Arch != ArchX86_64 {
		t.Errorf("process 1 arch = %q, want x86_64", procs[1].Arch)
	}
	if got := len(r.Requirements().Recommended); got != 2 {
		t.Errorf("Recommended = %d, want 2", got)
	}
}

func TestArchRefinedFromImages(t *testing.T) {
	content := `Process:               MyApp [1]
Code Type:             ARM (Native)

Thread 0 Crashed:
0   MyApp                         	0x00000000000c4064 0xc0000 + 16484

Binary Images:
0xc0000 - 0xc7fff MyApp armv7s  <2cd8b0dc8c6c3b1bbd8c68c2f7b7b2f2> /var/containers/Bundle/Application/ABC/MyApp.app/MyApp
`
	r, err := Parse(context.Background(), "MyApp.crash", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := r.Processes()[0].Arch; got != Arch("armv7s") {
		t.Errorf("Arch = %q, want armv7s", got)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.crash")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	unsupported := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unsupported, []byte("just some notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	failing := WithTranslator(TranslatorFunc(func(ctx context.Context, path string, data []byte) (string, error) {
		return "", errors.New("boom")
	}))
	garbage := WithTranslator(TranslatorFunc(func(ctx context.Context, path string, data []byte) (string, error) {
		return `{"still":"json"}`, nil
	}))

	tests := []struct {
		name string
		path string
		opts []Option
		want error
	}{
		{name: "missing", path: filepath.Join(dir, "nope.crash"), want: ErrFileRead},
		{name: "empty", path: empty, want: ErrEmptyFile},
		{name: "unsupported", path: unsupported, want: ErrUnsupportedFormat},
		{name: "translator fails", path: writeReport(t, "a.ips", ipsReport), opts: []Option{failing}, want: ErrTranslation},
		{name: "translator garbage", path: writeReport(t, "b.ips", ipsReport), opts: []Option{garbage}, want: ErrTranslation},
		{name: "unsupported bug type", path: writeReport(t, "c.ips", strings.Replace(ipsReport, `"bug_type":"309"`, `"bug_type":"288"`, 1)), want: ErrTranslation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.path, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenIPS(t *testing.T) {
	r, err := Open(context.Background(), writeReport(t, "CrashingTest.ips", ipsReport))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !r.Translated {
		t.Error("Translated = false")
	}
	if r.Header == nil || r.Header.AppName != "CrashingTest" || r.Header.BugType != "309" {
		t.Fatalf("Header = %+v", r.Header)
	}
	if v, b := r.Header.OSRelease(); v != "13.5" || b != "22G74" {
		t.Errorf("OSRelease() = %s, %s", v, b)
	}

	procs := r.Processes()
	if len(procs) != 1 {
		t.Fatalf("Processes() = %d, want 1", len(procs))
	}
	proc := procs[0]
	if proc.Arch != ArchARM64 {
		t.Errorf("Arch = %q, want arm64", proc.Arch)
	}
	if len(proc.Frames) != 2 {
		t.Fatalf("Frames = %d, want 2:\n%s", len(proc.Frames), r.Content)
	}
	if f := proc.Frames[0]; f.Hint.Kind != HintLoadAddress || f.Hint.Token != "0x104c5c000" || f.Address != "0x0000000104c5fde3" {
		t.Errorf("frame 0 = %+v", f)
	}
	if f := proc.Frames[1]; f.Hint.Kind != HintSymbol || f.Image.Name != "dyld" {
		t.Errorf("frame 1 = %+v", f)
	}
	req := r.Requirements()
	if len(req.Recommended) != 1 || len(req.System) != 1 {
		t.Errorf("Requirements = %+v", req)
	}
}

func TestLegacyIPSIsNotTranslated(t *testing.T) {
	header := `{"app_name":"CrashingTest","bug_type":"109","os_version":"Mac OS X 10.15.7 (19H2)"}`
	r, err := Parse(context.Background(), "legacy.ips", []byte(header+"\n"+crashReport))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Translated {
		t.Error("text body should not be translated")
	}
	if r.Metadata != header {
		t.Errorf("Metadata = %q", r.Metadata)
	}
	if strings.HasPrefix(r.Content, "{") {
		t.Error("Content still holds the metadata line")
	}
}

func TestProcessesComputedOnce(t *testing.T) {
	r, err := Parse(context.Background(), "x.crash", []byte(crashReport))
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	results := make([][]*Process, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Processes()
			r.Requirements()
		}(i)
	}
	wg.Wait()
	for i := range results {
		if len(results[i]) != 1 || results[i][0] != results[0][0] {
			t.Fatalf("Processes() returned different results across readers")
		}
	}
	if r.Requirements() != r.Requirements() {
		t.Error("Requirements() recomputed")
	}
}

func TestRequirements(t *testing.T) {
	a := Requirement{TargetName: "beta", UUID: "11111111111111111111111111111111"}
	b := Requirement{TargetName: "Alpha", UUID: "22222222222222222222222222222222"}
	c := Requirement{TargetName: "libsystem", UUID: "33333333333333333333333333333333"}

	req := NewRequirements(
		map[UUID]Requirement{a.UUID: a},
		map[UUID]Requirement{a.UUID: a, b.UUID: b},
		map[UUID]Requirement{c.UUID: c},
	)
	if _, ok := req.Optional[a.UUID]; ok {
		t.Error("optional must exclude recommended UUIDs")
	}
	if got := req.Sorted(); !reflect.DeepEqual(got, []Requirement{b, a}) {
		t.Errorf("Sorted() = %v", got)
	}
	if got := len(req.ExpectedUUIDs()); got != 3 {
		t.Errorf("ExpectedUUIDs() = %d, want 3", got)
	}
	if got := len(req.ExpectedNonSystemUUIDs()); got != 2 {
		t.Errorf("ExpectedNonSystemUUIDs() = %d, want 2", got)
	}
	missing := req.Missing(map[UUID]struct{}{a.UUID: {}})
	if !reflect.DeepEqual(missing, []Requirement{b}) {
		t.Errorf("Missing() = %v", missing)
	}

	// a UUID optional in one process and recommended in another ends up recommended
	combined := CombineRequirements(
		NewRequirements(nil, map[UUID]Requirement{b.UUID: b}, nil),
		NewRequirements(map[UUID]Requirement{b.UUID: b}, nil, nil),
	)
	if _, ok := combined.Optional[b.UUID]; ok {
		t.Error("CombineRequirements() kept a recommended UUID in optional")
	}
	if _, ok := combined.Recommended[b.UUID]; !ok {
		t.Error("CombineRequirements() lost a recommended UUID")
	}
	if combined.Empty() {
		t.Error("Empty() = true")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/tmp/CrashingTest.crash", "/tmp/CrashingTest_symbolicated.crash"},
		{"/tmp/hang.spindump.txt", "/tmp/hang.spindump_symbolicated.txt"},
		{"/tmp/report", "/tmp/report_symbolicated"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUndecodableHeaderKeepsTextBody(t *testing.T) {
	header := `{"app_name":"CrashingTest","bug_type":"109","platform":"iOS"}`
	r, err := Parse(context.Background(), "odd.ips", []byte(header+"\n"+crashReport))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if r.Header != nil {
		t.Errorf("Header = %+v, want nil", r.Header)
	}
	if r.Translated {
		t.Error("text body behind an undecodable header should not be translated")
	}
	if r.Metadata != header || len(r.Processes()) == 0 {
		t.Errorf("Metadata = %q, processes = %d", r.Metadata, len(r.Processes()))
	}
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		title string
		os    string
		when  time.Time
	}{
		{
			name:  "ips",
			line:  `{"app_name":"CrashingTest","app_version":"1.0","build_version":"1","platform":1,"os_version":"macOS 13.5 (22G74)","timestamp":"2023-08-04 19:10:03.00 +0200"}`,
			title: "CrashingTest 1.0 (1)",
			os:    "macOS 13.5 (22G74)",
			when:  time.Date(2023, 8, 4, 17, 10, 3, 0, time.UTC),
		},
		{
			name:  "rfc3339 timestamp",
			line:  `{"name":"Helper","platform":2,"os_version":"iPhone OS 17.1 (21B80)","timestamp":"2024-05-01T10:10:10Z"}`,
			title: "Helper",
			os:    "iOS 17.1 (21B80)",
			when:  time.Date(2024, 5, 1, 10, 10, 10, 0, time.UTC),
		},
		{
			name:  "no build",
			line:  `{"app_name":"Tool","platform":42,"os_version":"13.5"}`,
			title: "Tool",
			os:    "platform 42 13.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseMetadata(tt.line)
			if err != nil {
				t.Fatalf("ParseMetadata() error = %v", err)
			}
			if got := md.Title(); got != tt.title {
				t.Errorf("Title() = %q, want %q", got, tt.title)
			}
			if got := md.OS(); got != tt.os {
				t.Errorf("OS() = %q, want %q", got, tt.os)
			}
			switch {
			case tt.when.IsZero():
				if md.Timestamp != nil {
					t.Errorf("Timestamp = %v, want none", md.Timestamp)
				}
			case md.Timestamp == nil || !md.Timestamp.Equal(tt.when):
				t.Errorf("Timestamp = %v, want %v", md.Timestamp, tt.when)
			}
		})
	}

	if _, err := ParseMetadata(`{"timestamp":"yesterday"}`); err == nil {
		t.Error("ParseMetadata() should reject an unknown timestamp format")
	}
}
