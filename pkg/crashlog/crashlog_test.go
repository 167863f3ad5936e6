package crashlog

import (
	"reflect"
	"regexp"
	"testing"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   UUID
		wantOK bool
	}{
		{name: "dashed upper", in: "C8ECC43A-6F0F-3880-920A-071973DA584C", want: "c8ecc43a6f0f3880920a071973da584c", wantOK: true},
		{name: "dashed lower", in: "c8ecc43a-6f0f-3880-920a-071973da584c", want: "c8ecc43a6f0f3880920a071973da584c", wantOK: true},
		{name: "plain mixed", in: "2cd8B0DC8c6c3b1bbd8c68c2f7b7b2f2", want: "2cd8b0dc8c6c3b1bbd8c68c2f7b7b2f2", wantOK: true},
		{name: "too short", in: "c8ecc43a6f0f3880920a071973da584", wantOK: false},
		{name: "bad dashes", in: "c8ecc43a6f0f-3880-920a-071973da584c", wantOK: false},
		{name: "non hex", in: "z8ecc43a6f0f3880920a071973da584c", wantOK: false},
		{name: "empty", in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUUID(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseUUID(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseUUID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	for _, in := range []string{
		"c8ecc43a6f0f3880920a071973da584c",
		"C8ECC43A-6F0F-3880-920A-071973DA584C",
		"5fb7e4d6-4c6b-3e0e-8f1e-5f3c2e5b7a11",
	} {
		u, ok := ParseUUID(in)
		if !ok {
			t.Fatalf("ParseUUID(%q) failed", in)
		}
		again, ok := ParseUUID(u.Pretty())
		if !ok || again != u {
			t.Errorf("ParseUUID(Pretty(%q)) = %q, want %q", u, again, u)
		}
	}
	if got := MustParseUUID("c8ecc43a6f0f3880920a071973da584c").Pretty(); got != "C8ECC43A-6F0F-3880-920A-071973DA584C" {
		t.Errorf("Pretty() = %q", got)
	}
}

func TestParseArch(t *testing.T) {
	tests := []struct {
		in     string
		want   Arch
		wantOK bool
	}{
		{"X86", ArchX86, true},
		{"i386", ArchX86, true},
		{"X86-64", ArchX86_64, true},
		{"x86_64", ArchX86_64, true},
		{"ARM-64", ArchARM64, true},
		{"arm64", ArchARM64, true},
		{"ARM", ArchARM, true},
		{"arm64e", Arch("arm64e"), true},
		{"armv7s", Arch("armv7s"), true},
		{"PPC", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseArch(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseArch(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestArch(t *testing.T) {
	if !ArchARM.Incomplete() || Arch("arm64e").Incomplete() || ArchARM64.Incomplete() {
		t.Error("Incomplete() only applies to bare arm")
	}
	if got := ArchX86.AtosString(); got != "i386" {
		t.Errorf("AtosString() = %q, want i386", got)
	}
	if got := Arch("armv7").AtosString(); got != "armv7" {
		t.Errorf("AtosString() = %q, want armv7", got)
	}
	if !Arch("arm64e").IsARM() || ArchX86_64.IsARM() {
		t.Error("IsARM() mismatch")
	}
}

func TestFindArch(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Arch
		wantOK bool
	}{
		{name: "code type native", text: "Identifier: foo\nCode Type:             X86-64 (Native)\n", want: ArchX86_64, wantOK: true},
		{name: "code type translated", text: "Code Type:             ARM-64 (Translated)\n", want: ArchARM64, wantOK: true},
		{name: "architecture", text: "Architecture:     arm64e\n", want: Arch("arm64e"), wantOK: true},
		{name: "case insensitive", text: "code type: x86\n", want: ArchX86, wantOK: true},
		{name: "first wins", text: "Architecture: x86_64\nArchitecture: arm64\n", want: ArchX86_64, wantOK: true},
		{name: "missing", text: "Process: foo [1]\n", wantOK: false},
		{name: "not at line start", text: "Foo Code Type: ARM\n", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindArch(tt.text)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("FindArch() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseBinaryImage(t *testing.T) {
	tests := []struct {
		name string
		line string
		want BinaryImage
	}{
		{
			name: "macOS user image",
			line: "0x10069d000 - 0x1006a0fff +MultiTargetHangingTest (0) <C8ECC43A-6F0F-3880-920A-071973DA584C> /Users/USER/Build/MultiTargetHangingTest",
			want: BinaryImage{
				Name:        "MultiTargetHangingTest",
				UUID:        "c8ecc43a6f0f3880920a071973da584c",
				LoadAddress: "0x10069d000",
				Path:        "/Users/USER/Build/MultiTargetHangingTest",
				Identifier:  "MultiTargetHangingTest",
				UserMarked:  true,
			},
		},
		{
			name: "system framework",
			line: "    0x7fff2035b000 -     0x7fff2038afff  com.apple.CoreFoundation (6.9 - 1775.118.101) <A4D5A2B5-0000-3000-8000-123456789ABC> /System/Library/Frameworks/CoreFoundation.framework/Versions/A/CoreFoundation",
			want: BinaryImage{
				Name:        "CoreFoundation",
				UUID:        "a4d5a2b5000030008000123456789abc",
				LoadAddress: "0x7fff2035b000",
				Path:        "/System/Library/Frameworks/CoreFoundation.framework/Versions/A/CoreFoundation",
				Identifier:  "com.apple.CoreFoundation",
			},
		},
		{
			name: "iOS image with arch",
			line: "0x100cd4000 - 0x100cdbfff MyApp arm64  <2cd8b0dc8c6c3b1bbd8c68c2f7b7b2f2> /var/containers/Bundle/Application/ABC/MyApp.app/MyApp",
			want: BinaryImage{
				Name:        "MyApp",
				UUID:        "2cd8b0dc8c6c3b1bbd8c68c2f7b7b2f2",
				LoadAddress: "0x100cd4000",
				Path:        "/var/containers/Bundle/Application/ABC/MyApp.app/MyApp",
				Arch:        ArchARM64,
				Identifier:  "MyApp",
			},
		},
		{
			name: "path with spaces",
			line: "0x1000 - 0x1fff +Helper (1) <AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE> /Applications/My App.app/Contents/MacOS/My Helper",
			want: BinaryImage{
				Name:        "My Helper",
				UUID:        "aaaaaaaabbbbccccddddeeeeeeeeeeee",
				LoadAddress: "0x1000",
				Path:        "/Applications/My App.app/Contents/MacOS/My Helper",
				Identifier:  "Helper",
				UserMarked:  true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBinaryImage(tt.line)
			if !ok {
				t.Fatalf("ParseBinaryImage() failed to parse %q", tt.line)
			}
			if *got != tt.want {
				t.Errorf("ParseBinaryImage() = %+v, want %+v", *got, tt.want)
			}
		})
	}

	for _, line := range []string{
		"",
		"Binary Images:",
		"0x1000 - 0x1fff +Foo (1) <not-a-uuid> /tmp/Foo",
		"0   CrashingTest   0x000000010bbb1de3 0x10bbae000 + 15843",
	} {
		if _, ok := ParseBinaryImage(line); ok {
			t.Errorf("ParseBinaryImage(%q) should fail", line)
		}
	}
}

func TestImageRegistry(t *testing.T) {
	a := &BinaryImage{Name: "Foo", UUID: "11111111111111111111111111111111", LoadAddress: "0x1000", Identifier: "com.example.Foo"}
	b := &BinaryImage{Name: "Bar", UUID: "22222222222222222222222222222222", LoadAddress: "0x2000"}
	c := &BinaryImage{Name: "Foo", UUID: "33333333333333333333333333333333", LoadAddress: "0x3000"}
	r := NewImageRegistry([]*BinaryImage{a, b, c})

	if img, ok := r.ByName("Foo"); !ok || img != c {
		t.Errorf("ByName(Foo) should return the last image with that name")
	}
	if img, ok := r.ByName("com.example.Foo"); !ok || img != a {
		t.Errorf("ByName(identifier) should return the aliased image")
	}
	if img, ok := r.ByLoadAddress("0x0000000000001000"); !ok || img != a {
		t.Errorf("ByLoadAddress() should normalize zero padding")
	}
	if img, ok := r.Lookup("0x2000", "Foo"); !ok || img != b {
		t.Errorf("Lookup() should prefer load address")
	}
	if img, ok := r.Lookup("0x9000", "Bar"); !ok || img != b {
		t.Errorf("Lookup() should fall back to name")
	}
	if _, ok := r.Lookup("", "Missing"); ok {
		t.Errorf("Lookup() found a missing image")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestBinaryImageEqual(t *testing.T) {
	a := BinaryImage{Name: "Foo", UUID: "11111111111111111111111111111111", LoadAddress: "0x1000", Path: "/a"}
	b := BinaryImage{Name: "Foo", UUID: "11111111111111111111111111111111", LoadAddress: "0x1000", Path: "/b"}
	if !a.Equal(b) {
		t.Error("Equal() should only compare name, uuid and load address")
	}
	b.LoadAddress = "0x2000"
	if a.Equal(b) {
		t.Error("Equal() should compare load address")
	}
}

func TestPathPrefixClassifier(t *testing.T) {
	classify := PathPrefixClassifier(DefaultSystemPrefixes)
	tests := []struct {
		img  BinaryImage
		want bool
	}{
		{BinaryImage{Path: "/usr/lib/system/libdyld.dylib"}, true},
		{BinaryImage{Path: "/System/Library/Frameworks/AppKit.framework/Versions/C/AppKit"}, true},
		{BinaryImage{Path: "/Applications/Foo.app/Contents/MacOS/Foo"}, false},
		{BinaryImage{Path: "/usr/lib/libfoo.dylib", UserMarked: true}, false},
	}
	for _, tt := range tests {
		if got := classify(tt.img); got != tt.want {
			t.Errorf("classify(%s) = %v, want %v", tt.img.Path, got, tt.want)
		}
	}
}

func TestCaptures(t *testing.T) {
	re := regexp.MustCompile(`(?P<key>\w+)=(?P<val>\w*)`)

	got := Captures(re, "a=1 b= c=3")
	want := [][]string{{"a", "1"}, {"b", ""}, {"c", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Captures() = %q, want %q", got, want)
	}
	if got := Captures(re, "nothing here"); got != nil {
		t.Errorf("Captures() = %q, want nil", got)
	}

	m := re.FindStringSubmatch("arch=arm64")
	if got := Named(re, m, "val"); got != "arm64" {
		t.Errorf("Named(val) = %q, want arm64", got)
	}
	if got := Named(re, m, "missing"); got != "" {
		t.Errorf("Named(missing) = %q, want empty", got)
	}
}
