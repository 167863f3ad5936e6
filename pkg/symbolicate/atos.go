package symbolicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/blacktop/symbolicator/internal/utils"
	"github.com/blacktop/symbolicator/pkg/crashlog"
)

// Request is one symbol lookup: every address of a frame group resolved
// against a single DWARF binary.
type Request struct {
	Binary      string
	Arch        crashlog.Arch
	LoadAddress string
	Addresses   []string
}

// Lookup resolves addresses to symbols. It returns one line per address, in order.
type Lookup interface {
	Lookup(ctx context.Context, req Request) ([]string, error)
}

// LookupFunc adapts a function to the Lookup interface
type LookupFunc func(ctx context.Context, req Request) ([]string, error)

// Lookup implements Lookup
func (f LookupFunc) Lookup(ctx context.Context, req Request) ([]string, error) {
	return f(ctx, req)
}

// Atos runs `atos -o <binary> -arch <arch> -l <load> <addr...>`
type Atos struct {
	Tool   string
	Runner utils.Runner
}

// NewAtos returns an atos Lookup
func NewAtos(tool string, runner utils.Runner) *Atos {
	if tool == "" {
		tool = "atos"
	}
	if runner == nil {
		runner = &utils.ExecRunner{}
	}
	return &Atos{Tool: tool, Runner: runner}
}

// Args returns the command line for req (without the tool name)
func (a *Atos) Args(req Request) []string {
	args := []string{"-o", req.Binary, "-arch", req.Arch.AtosString(), "-l", req.LoadAddress}
	return append(args, req.Addresses...)
}

// Lookup implements Lookup
func (a *Atos) Lookup(ctx context.Context, req Request) ([]string, error) {
	stdout, _, err := a.Runner.Run(ctx, a.Tool, a.Args(req)...)
	if err != nil {
		return nil, fmt.Errorf("%s failed for %s: %w", a.Tool, req.Binary, err)
	}
	return splitLines(string(stdout)), nil
}

func splitLines(out string) []string {
	out = strings.TrimRight(out, "\r\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r \t")
	}
	return lines
}
