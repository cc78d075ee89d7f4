package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
)

// isColorTerminal reports whether stdout is an interactive terminal that
// should receive ANSI styling, honoring NO_COLOR the way the teacher's
// internal/ui package does (see DetectNoColor in the now-removed
// internal/ui/ui.go, grounded here instead on a single isatty check since
// citeq's CLI output is line-oriented, not the teacher's rendered TUI).
func isColorTerminal() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := os.Stdout.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

const (
	ansiDim  = "\x1b[2m"
	ansiBold = "\x1b[1m"
	ansiOff  = "\x1b[0m"
)

// dim wraps s in a dim ANSI sequence when color is enabled, otherwise
// returns s unchanged.
func dim(color bool, s string) string {
	if !color {
		return s
	}
	return ansiDim + s + ansiOff
}

// bold wraps s in a bold ANSI sequence when color is enabled, otherwise
// returns s unchanged.
func bold(color bool, s string) string {
	if !color {
		return s
	}
	return ansiBold + s + ansiOff
}
