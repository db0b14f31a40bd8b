package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the splitbill banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []termenv.Style{
		termenv.String("           _ _ _   _     _ _ _ ").Foreground(p.Color("#34d399")),
		termenv.String("  ___ _ __| (_) |_| |__ (_) | |").Foreground(p.Color("#2dd4bf")),
		termenv.String(" (_-<| '_ \\ | |  _| '_ \\| | | |").Foreground(p.Color("#22d3ee")),
		termenv.String(" /__/| .__/_|_|\\__|_.__/|_|_|_|").Foreground(p.Color("#38bdf8")),
		termenv.String("     |_|").Foreground(p.Color("#60a5fa")),
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// Highlight styles a button number for the terminal.
func Highlight(s string) string {
	p := termenv.ColorProfile()
	return termenv.String(s).Bold().Foreground(p.Color("#34d399")).String()
}
