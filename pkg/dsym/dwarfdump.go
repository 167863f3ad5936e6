package dsym

import (
	"context"
	"regexp"
	"strings"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

var dwarfdumpUUIDRE = regexp.MustCompile(`(?m)^UUID:\s+([0-9A-Fa-f-]+)\s+\(([^)]+)\)`)

// Dwarfdump reads bundle UUIDs with `dwarfdump --uuid`
type Dwarfdump struct {
	Tool   string
	Runner utils.Runner
}

// NewDwarfdump returns a reader running tool with runner
func NewDwarfdump(tool string, runner utils.Runner) *Dwarfdump {
	if tool == "" {
		tool = "dwarfdump"
	}
	if runner == nil {
		runner = &utils.ExecRunner{}
	}
	return &Dwarfdump{Tool: tool, Runner: runner}
}

// ReadUUIDs implements UUIDReader
func (d *Dwarfdump) ReadUUIDs(ctx context.Context, path string) (map[crashlog.Arch]crashlog.UUID, error) {
	stdout, stderr, err := d.Runner.Run(ctx, d.Tool, "--uuid", path)

	uuids := ParseDwarfdump(string(stdout))

	errOut := strings.TrimSpace(string(stderr))
	if isSymlinkNoise(errOut) {
		errOut = ""
	}

	if len(uuids) == 0 && (err != nil || errOut != "") {
		return nil, &ParseError{Path: path, Output: errOut, Err: err}
	}
	if len(uuids) == 0 {
		return nil, &ParseError{Path: path, Output: strings.TrimSpace(string(stdout))}
	}
	if errOut != "" {
		log.WithField("path", path).Debugf("%s: %s", d.Tool, errOut)
	}

	return uuids, nil
}

// ParseDwarfdump extracts the `UUID: <uuid> (<arch>)` lines of dwarfdump output
func ParseDwarfdump(out string) map[crashlog.Arch]crashlog.UUID {
	uuids := make(map[crashlog.Arch]crashlog.UUID)
	for _, m := range crashlog.Captures(dwarfdumpUUIDRE, out) {
		u, ok := crashlog.ParseUUID(m[0])
		if !ok {
			continue
		}
		arch, ok := crashlog.ParseArch(m[1])
		if !ok {
			log.Debugf("dwarfdump: skipping unknown arch %q", m[1])
			continue
		}
		uuids[arch] = u
	}
	return uuids
}

// dwarfdump complains about symlink loops inside some bundles and still succeeds
func isSymlinkNoise(stderr string) bool {
	if stderr == "" {
		return false
	}
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(line), "symbolic link") {
			return false
		}
	}
	return true
}
