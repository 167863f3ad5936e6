package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/apex/log"
)

// Runner runs an external tool and returns what it wrote to stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs tools with os/exec, each call bounded by Timeout (if set).
type ExecRunner struct {
	Timeout time.Duration
}

// Run implements Runner
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.WithField("cmd", cmd.String()).Debug("Running")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%v: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.Bytes(), stderr.Bytes(), nil
}

// RunnerFunc adapts a function to the Runner interface
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

// Run implements Runner
func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args...)
}
