package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jensroland/git-hunklock/internal/assign"
	"github.com/jensroland/git-hunklock/internal/config"
	"github.com/jensroland/git-hunklock/internal/format"
	"github.com/jensroland/git-hunklock/internal/hunk"
)

// RunAssignments handles the "assignments" subcommand.
func RunAssignments(args []string) {
	fs := newFlagSet("assignments")
	jsonOutput := fs.Bool("json", false, "Output assignments as JSON")
	fromLocks := fs.Bool("from-locks", false, "Let locks override existing assignments")
	fs.Parse(args)

	run("assignments", true, func(ctx context.Context, e *env) error {
		return cmdAssignments(ctx, e, os.Stdout, *fromLocks, *jsonOutput)
	})
}

func cmdAssignments(ctx context.Context, e *env, w io.Writer, fromLocks, jsonOutput bool) error {
	as, fallback, err := e.workspace().Assignments(ctx, fromLocks)
	if err != nil {
		return err
	}
	if fallback != nil {
		fmt.Fprintf(os.Stderr, "%swarning:%s %v; showing unreconciled hunks\n", format.Yellow, format.Reset, fallback)
	}
	if jsonOutput {
		if as == nil {
			as = []assign.Assignment{}
		}
		return printJSON(w, as)
	}
	format.Assignments(w, as, e.stacks())
	return nil
}

// RunAssign handles the "assign" subcommand.
func RunAssign(args []string) {
	fs := newFlagSet("assign")
	hunkSpec := fs.String("hunk", "", "Hunk header (old_start,old_lines,new_start,new_lines or @@ -a,b +c,d @@); whole file if omitted")
	stackRef := fs.String("stack", "", "Target stack name or id, or \"none\" to unassign")
	jsonOutput := fs.Bool("json", false, "Output assignments and rejections as JSON")
	fs.Parse(args)

	if fs.NArg() != 1 || *stackRef == "" {
		fmt.Fprintln(os.Stderr, "Usage: git-hunklock assign <path> --stack <name|id|none> [--hunk <o,ol,n,nl>]")
		os.Exit(1)
	}

	run("assign", true, func(ctx context.Context, e *env) error {
		path, err := relativePath(fs.Arg(0), e.paths.Root)
		if err != nil {
			return err
		}
		req, err := buildRequest(e.cfg, path, *hunkSpec, *stackRef)
		if err != nil {
			return err
		}
		return cmdAssign(ctx, e, os.Stdout, []assign.Request{req}, *jsonOutput)
	})
}

type assignOutput struct {
	Assignments []assign.Assignment `json:"assignments"`
	Rejections  []assign.Rejection  `json:"rejections"`
}

func cmdAssign(ctx context.Context, e *env, w io.Writer, reqs []assign.Request, jsonOutput bool) error {
	as, rejections, err := e.workspace().Assign(ctx, reqs)
	if err != nil {
		return err
	}
	if jsonOutput {
		if err := printJSON(w, assignOutput{Assignments: as, Rejections: rejections}); err != nil {
			return err
		}
	} else {
		stacks := e.stacks()
		format.Rejections(w, rejections, stacks)
		format.Assignments(w, as, stacks)
	}
	if len(rejections) > 0 {
		return fmt.Errorf("%d of %d requests rejected", len(rejections), len(reqs))
	}
	return nil
}

func buildRequest(cfg *config.Config, path, hunkSpec, stackRef string) (assign.Request, error) {
	req := assign.Request{PathBytes: []byte(path)}
	if hunkSpec != "" {
		h, err := parseHunk(hunkSpec)
		if err != nil {
			return assign.Request{}, err
		}
		req.Header = &h
	}
	id, err := resolveStack(cfg, stackRef)
	if err != nil {
		return assign.Request{}, err
	}
	req.StackID = id
	return req, nil
}

// parseHunk accepts "old_start,old_lines,new_start,new_lines" or a unified
// diff hunk header.
func parseHunk(s string) (hunk.Header, error) {
	h, err := hunk.ParseHeader(s)
	if err != nil {
		return hunk.Header{}, fmt.Errorf("--hunk: %w", err)
	}
	return h, nil
}

// resolveStack maps a stack name or id to its id. "none" unassigns.
func resolveStack(cfg *config.Config, ref string) (*hunk.StackID, error) {
	if ref == "none" {
		return nil, nil
	}
	s, ok := cfg.Find(ref)
	if !ok {
		return nil, fmt.Errorf("unknown stack %q", ref)
	}
	id, err := s.StackID()
	if err != nil {
		return nil, err
	}
	return &id, nil
}
