package main

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// printBanner writes the startup banner in a violet gradient.
func printBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  ___              _ ___         ", "#818cf8"},
		{" | _ \\___ ___ __ _| | _ \\_ _ ___ ", "#a78bfa"},
		{" |  _/ _ (_-</ _` | |  _/ '_/ _ \\", "#c084fc"},
		{" |_| \\___/__/\\__,_|_|_| |_| \\___/", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
