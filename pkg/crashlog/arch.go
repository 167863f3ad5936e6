package crashlog

import (
	"regexp"
	"strings"
)

// Arch is a CPU architecture as named by crash reports and the symbol tools
type Arch string

const (
	ArchX86    Arch = "x86"
	ArchX86_64 Arch = "x86_64"
	ArchARM64  Arch = "arm64"
	// ArchARM is an ARM architecture whose subvariant is not yet known
	ArchARM Arch = "arm"
)

var archDeclRE = regexp.MustCompile(`(?mi)^[ \t]*(?:Code Type|Architecture):[ \t]*(?P<arch>[^\r\n]*?)[ \t]*(?:\(.*\))?[ \t]*$`)

// ParseArch parses an architecture token as found in reports and dwarfdump output
func ParseArch(s string) (Arch, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "x86", "i386":
		return ArchX86, true
	case "x86-64", "x86_64", "x86_64h":
		return ArchX86_64, true
	case "arm-64", "arm64":
		return ArchARM64, true
	case "arm":
		return ArchARM, true
	}
	if strings.HasPrefix(s, "arm") && !strings.ContainsAny(s, " \t") {
		return Arch(s), true
	}
	return "", false
}

// FindArch returns the architecture declared by the first "Code Type:" or
// "Architecture:" line of text.
func FindArch(text string) (Arch, bool) {
	m := archDeclRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	fields := strings.Fields(m[archDeclRE.SubexpIndex("arch")])
	if len(fields) == 0 {
		return "", false
	}
	return ParseArch(fields[0])
}

// IsARM returns true for any ARM architecture, complete or not
func (a Arch) IsARM() bool {
	return strings.HasPrefix(string(a), "arm")
}

// Incomplete returns true for an ARM architecture with an unknown subvariant
func (a Arch) Incomplete() bool {
	return a == ArchARM
}

// AtosString returns the name the symbol lookup tool expects for -arch
func (a Arch) AtosString() string {
	if a == ArchX86 {
		return "i386"
	}
	return string(a)
}

func (a Arch) String() string {
	return string(a)
}
