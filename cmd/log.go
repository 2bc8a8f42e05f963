package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jensroland/git-hunklock/internal/debug"
	"github.com/jensroland/git-hunklock/internal/format"
)

// RunLog handles the "log" subcommand.
func RunLog(args []string) {
	fs := newFlagSet("log")
	n := fs.IntP("lines", "n", 100, "Number of lines to show")
	fs.Parse(args)

	run("log", false, func(_ context.Context, e *env) error {
		return cmdLog(e, os.Stdout, *n)
	})
}

func cmdLog(e *env, w io.Writer, n int) error {
	logFile := filepath.Join(e.paths.LogDir, debug.FileName)
	lines, err := debug.Tail(e.paths.LogDir, n)
	if err != nil {
		return err
	}
	if lines == nil {
		fmt.Fprintf(w, "No log file at %s\n", logFile)
		return nil
	}
	fmt.Fprintf(w, "%s--- %s (last %d lines) ---%s\n\n", format.Dim, logFile, len(lines), format.Reset)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
