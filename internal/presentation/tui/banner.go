package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the cohort banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ ___  _  _  ___  ___ _____ ", "#818cf8"},
		{"  / __/ _ \\| || |/ _ \\| _ \\_   _|", "#a78bfa"},
		{" | (_| (_) | __ | (_) |   / | |  ", "#c084fc"},
		{"  \\___\\___/|_||_|\\___/|_|_\\ |_|  ", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// StateColor returns a terminal-coloured rendering of a state name.
func StateColor(state string) string {
	p := termenv.ColorProfile()
	color := "#9ca3af"
	switch state {
	case "participating":
		color = "#34d399"
	case "not-participating":
		color = "#fbbf24"
	case "completed":
		color = "#60a5fa"
	case "expired":
		color = "#f87171"
	}
	return termenv.String(state).Foreground(p.Color(color)).String()
}
