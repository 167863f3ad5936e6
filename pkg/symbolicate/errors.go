package symbolicate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDebugSymbols marks a frame group skipped for lack of a matching dSYM.
	// It is never fatal.
	ErrNoDebugSymbols = errors.New("no dSYMs provided")
	// ErrOutputCountMismatch is returned when the lookup tool does not return
	// exactly one line per address
	ErrOutputCountMismatch = errors.New("symbol lookup output count mismatch")
)

// CountMismatchError records the full lookup output of a failed group
type CountMismatchError struct {
	Image    string
	Expected int
	Got      int
	Output   []string
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%v for %s: expected %d lines, got %d", ErrOutputCountMismatch, e.Image, e.Expected, e.Got)
}

func (e *CountMismatchError) Is(target error) bool { return target == ErrOutputCountMismatch }

// FullOutput returns the tool output joined by newlines
func (e *CountMismatchError) FullOutput() string {
	return strings.Join(e.Output, "\n")
}
