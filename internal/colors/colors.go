// Package colors provides the CLI color palette.
//
// Colors are disabled automatically when stdout is not a terminal; Init
// overrides that from the --color/--no-color flags.
package colors

import "github.com/fatih/color"

// Init overrides the auto-detected color setting when forceColor is non-nil.
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

func Bold() *color.Color         { return color.New(color.Bold) }
func Faint() *color.Color        { return color.New(color.Faint) }
func BoldHiRed() *color.Color    { return color.New(color.Bold, color.FgHiRed) }
func BoldHiGreen() *color.Color  { return color.New(color.Bold, color.FgHiGreen) }
func BoldHiYellow() *color.Color { return color.New(color.Bold, color.FgHiYellow) }
func BoldHiBlue() *color.Color   { return color.New(color.Bold, color.FgHiBlue) }
func HiMagenta() *color.Color    { return color.New(color.FgHiMagenta) }

var (
	// Recommended marks dSYMs that must be found to symbolicate the report
	Recommended = BoldHiRed().SprintFunc()
	// Optional marks dSYMs that would improve already-symbolicated frames
	Optional = BoldHiYellow().SprintFunc()
	// System marks OS images
	System = Faint().SprintFunc()
	// UUID formats binary UUIDs
	UUID = HiMagenta().SprintFunc()
	// Success formats successful outcomes
	Success = BoldHiGreen().SprintFunc()
	// Failure formats failed outcomes
	Failure = BoldHiRed().SprintFunc()
	// Field formats listing labels
	Field = BoldHiBlue().SprintFunc()
)
