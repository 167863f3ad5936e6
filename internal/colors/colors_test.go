package colors

import (
	"testing"

	"github.com/fatih/color"
)

func TestInit(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	on, off := true, false
	tests := []struct {
		name  string
		start bool
		force *bool
		want  bool
	}{
		{name: "force on", start: true, force: &on, want: true},
		{name: "force off", start: false, force: &off, want: false},
		{name: "nil keeps enabled", start: false, force: nil, want: true},
		{name: "nil keeps disabled", start: true, force: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			color.NoColor = tt.start
			Init(tt.force)
			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaletteNoColor(t *testing.T) {
	orig := color.NoColor
	defer func() { color.NoColor = orig }()

	color.NoColor = true
	if got := Recommended("Foo"); got != "Foo" {
		t.Errorf("Recommended() with colors disabled = %q, want %q", got, "Foo")
	}
	if got := UUID("abc"); got != "abc" {
		t.Errorf("UUID() with colors disabled = %q, want %q", got, "abc")
	}
}
