package crashlog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/blacktop/symbolicator/internal/utils"
)

// HintKind says which grammar produced a frame and therefore how its text is rewritten
type HintKind int

const (
	// HintLoadAddress is a crash report frame of the form "<addr> <load address> + <offset>"
	HintLoadAddress HintKind = iota
	// HintTargetName is a crash report frame of the form "<addr> <target> + <offset>"
	HintTargetName
	// HintSymbol is a crash report frame that already names a symbol
	HintSymbol
	// HintSample is a sample report frame "??? (in <target>) load address <load> + <offset> [<addr>]"
	HintSample
	// HintSpindump is a spindump frame "<count> ??? (<target> + <offset>) [<addr>]"
	HintSpindump
)

func (k HintKind) String() string {
	switch k {
	case HintLoadAddress:
		return "load address"
	case HintTargetName:
		return "target name"
	case HintSymbol:
		return "symbol"
	case HintSample:
		return "sample"
	case HintSpindump:
		return "spindump"
	default:
		return "unknown"
	}
}

// AddressingHint records how a frame referenced its image along with the
// token the report used for it (load address, target name or symbol).
type AddressingHint struct {
	Kind  HintKind `json:"kind"`
	Token string   `json:"token,omitempty"`
}

// StackFrame is one frame recognized in a report
type StackFrame struct {
	Address    string       `json:"address"`
	ByteOffset string       `json:"byte_offset"`
	Image      *BinaryImage `json:"image"`
	// Recommended is false when the report already shows a symbol for the frame
	Recommended bool           `json:"recommended"`
	RawText     string         `json:"raw_text"`
	Hint        AddressingHint `json:"hint"`
}

// ReadableByteOffset returns the byte offset in decimal
func (f StackFrame) ReadableByteOffset() string {
	if !strings.HasPrefix(strings.ToLower(f.ByteOffset), "0x") {
		return f.ByteOffset
	}
	v, err := utils.ConvertHexToInt(f.ByteOffset)
	if err != nil {
		return f.ByteOffset
	}
	return strconv.FormatUint(v, 10)
}

// Substitutable returns true if Replace knows how to rewrite the frame
func (f StackFrame) Substitutable() bool {
	return f.Hint.Kind != HintSymbol
}

var (
	sampleShapeRE   = regexp.MustCompile(`\?\?\?\s+\(in\s+.+?\)\s+load address\s+.+?\[`)
	spindumpShapeRE = regexp.MustCompile(`\?\?\?(\s+\(.+?\)\s+\[)`)
)

// Replace returns the frame's raw text with the symbol lookup result
// substituted in. The second return value is false if no substitution shape
// applies, in which case the raw text is returned unchanged. Replace is
// idempotent: applying it to its own output is a no-op.
func (f StackFrame) Replace(result string) (string, bool) {
	line := f.RawText
	switch f.Hint.Kind {
	case HintSample:
		re, err := regexp.Compile(sampleShapeRE.String() + regexp.QuoteMeta(f.Address) + `\]`)
		if err != nil || !re.MatchString(line) {
			return line, false
		}
		repl := result + " + " + f.ReadableByteOffset() + "  [" + f.Address + "]"
		return re.ReplaceAllLiteralString(line, repl), true
	case HintLoadAddress, HintTargetName:
		re, err := regexp.Compile(regexp.QuoteMeta(f.Address) + `(\s+)` + regexp.QuoteMeta(f.Hint.Token) + `(\s+\+)`)
		if err != nil {
			return line, false
		}
		m := re.FindStringSubmatchIndex(line)
		if m == nil {
			return line, false
		}
		ws := line[m[2]:m[3]]
		tail := line[m[4]:m[5]]
		return line[:m[0]] + f.Address + ws + result + tail + line[m[1]:], true
	case HintSpindump:
		m := spindumpShapeRE.FindStringSubmatchIndex(line)
		if m == nil {
			return line, false
		}
		return line[:m[0]] + result + line[m[2]:m[3]] + line[m[1]:], true
	}
	return line, false
}
