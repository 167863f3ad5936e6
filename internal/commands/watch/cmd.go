package watch

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/blacktop/symbolicator/internal/commands/symbolicate"
)

// RunCommand runs cmd through the shell with the outcome exported in its environment
func RunCommand(ctx context.Context, cmd string, out *symbolicate.Outcome) error {
	env := os.Environ()
	env = append(env,
		fmt.Sprintf("SYMBOLICATOR_REPORT=%s", out.Report),
		fmt.Sprintf("SYMBOLICATOR_OUTPUT=%s", out.Output),
		fmt.Sprintf("SYMBOLICATOR_MISSING=%d", len(out.Missing)),
	)
	c := exec.CommandContext(ctx, "sh", "-c", cmd)
	c.Env = env
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("failed to run command: %v", err)
	}
	return nil
}
