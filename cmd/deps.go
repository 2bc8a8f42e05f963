package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jensroland/git-hunklock/internal/format"
	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/ranges"
)

// RunDeps handles the "deps" subcommand.
func RunDeps(args []string) {
	fs := newFlagSet("deps")
	jsonOutput := fs.Bool("json", false, "Output dependencies as JSON")
	fs.Parse(args)

	run("deps", true, func(ctx context.Context, e *env) error {
		return cmdDeps(ctx, e, os.Stdout, *jsonOutput)
	})
}

func cmdDeps(ctx context.Context, e *env, w io.Writer, jsonOutput bool) error {
	snap, err := e.workspace().Snapshot(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w, snap.Deps)
	}
	format.Dependencies(w, snap.Deps, e.stacks())
	return nil
}

// RunRanges handles the "ranges" subcommand.
func RunRanges(args []string) {
	fs := newFlagSet("ranges")
	jsonOutput := fs.Bool("json", false, "Output ranges as JSON")
	fs.Parse(args)

	run("ranges", true, func(ctx context.Context, e *env) error {
		var paths []string
		for _, arg := range fs.Args() {
			rel, err := relativePath(arg, e.paths.Root)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
		}
		return cmdRanges(ctx, e, os.Stdout, paths, *jsonOutput)
	})
}

type rangesOutput struct {
	Paths                     map[string][]hunk.Range   `json:"paths"`
	CommitDependencies        ranges.Dependencies       `json:"commitDependencies"`
	InverseCommitDependencies ranges.Dependencies       `json:"inverseCommitDependencies"`
	Errors                    []ranges.CalculationError `json:"errors"`
}

// cmdRanges dumps the ledger for the given paths, or for every tracked path.
func cmdRanges(ctx context.Context, e *env, w io.Writer, paths []string, jsonOutput bool) error {
	ledger, err := e.workspace().Ledger(ctx)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		paths = ledger.Paths()
	}

	if jsonOutput {
		out := rangesOutput{
			Paths:                     make(map[string][]hunk.Range, len(paths)),
			CommitDependencies:        ledger.CommitDependencies,
			InverseCommitDependencies: ledger.InverseCommitDependencies,
			Errors:                    ledger.Errors,
		}
		for _, p := range paths {
			out.Paths[p] = ledger.Ranges(p)
		}
		return printJSON(w, out)
	}

	stacks := e.stacks()
	for _, p := range paths {
		rs := ledger.Ranges(p)
		if rs == nil {
			fmt.Fprintf(w, "%s%s: not touched by any applied stack%s\n", format.Dim, p, format.Reset)
			continue
		}
		format.Ranges(w, p, rs, stacks)
	}
	format.CalculationErrors(w, ledger.Errors)
	return nil
}
