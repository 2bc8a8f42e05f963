package format

import (
	"os"

	"golang.org/x/term"
)

var (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Yellow  = "\033[33m"
	Cyan    = "\033[36m"
	Green   = "\033[32m"
	Magenta = "\033[35m"
	Blue    = "\033[34m"
	Red     = "\033[31m"
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		DisableColors()
	} else if !term.IsTerminal(int(os.Stdout.Fd())) {
		DisableColors()
	}
}

// DisableColors turns every escape sequence into the empty string.
func DisableColors() {
	Reset, Bold, Dim = "", "", ""
	Yellow, Cyan, Green, Magenta, Blue, Red = "", "", "", "", "", ""
}

// stackColor picks a stable colour per stack position.
func stackColor(i int) string {
	palette := []string{Cyan, Magenta, Green, Blue, Yellow}
	return palette[i%len(palette)]
}

// TermWidth returns the terminal width, defaulting to 80.
func TermWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
