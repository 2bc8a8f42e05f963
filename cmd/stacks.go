package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jensroland/git-hunklock/internal/format"
	"github.com/jensroland/git-hunklock/internal/git"
)

// RunStacks handles the "stacks" subcommand and its add, apply and
// unapply actions.
func RunStacks(args []string) {
	action := ""
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "":
		run("stacks", false, func(ctx context.Context, e *env) error {
			return cmdStacks(ctx, e, os.Stdout)
		})
	case "add":
		fs := newFlagSet("stacks add")
		base := fs.String("base", "", "Commits reachable from this ref are not part of the stack")
		tip := fs.String("tip", "", "Last commit of the stack")
		fs.Parse(args)
		if fs.NArg() != 1 || *tip == "" {
			fmt.Fprintln(os.Stderr, "Usage: git-hunklock stacks add <name> --tip <ref> [--base <ref>]")
			os.Exit(1)
		}
		run("stacks add", false, func(ctx context.Context, e *env) error {
			return cmdStacksAdd(ctx, e, os.Stdout, fs.Arg(0), *base, *tip)
		})
	case "apply", "unapply":
		if len(args) != 1 {
			fmt.Fprintf(os.Stderr, "Usage: git-hunklock stacks %s <name|id>\n", action)
			os.Exit(1)
		}
		run("stacks "+action, true, func(ctx context.Context, e *env) error {
			return cmdStacksApply(e, os.Stdout, args[0], action == "apply")
		})
	default:
		fmt.Fprintf(os.Stderr, "Unknown stacks action %q\n\n%s", action, Usage)
		os.Exit(1)
	}
}

func cmdStacks(ctx context.Context, e *env, w io.Writer) error {
	if len(e.cfg.Stacks) == 0 {
		fmt.Fprintf(w, "%sNo stacks configured.%s\n", format.Dim, format.Reset)
		return nil
	}
	stacks := e.stacks()
	for _, s := range e.cfg.Stacks {
		marker := "  "
		if s.Applied {
			marker = format.Green + "* " + format.Reset
		}
		tip := format.Red + "unresolved" + format.Reset
		if c, err := git.ResolveCommit(ctx, e.paths.Root, s.Tip); err == nil {
			tip = c.Short()
		}
		label := s.Name
		if id, err := s.StackID(); err == nil {
			label = stacks.Label(id)
		}
		span := s.Tip
		if s.Base != "" {
			span = s.Base + ".." + s.Tip
		}
		fmt.Fprintf(w, "%s%s %s%s%s %s (%s)\n", marker, label, format.Dim, s.ID, format.Reset, span, tip)
	}
	return nil
}

func cmdStacksAdd(ctx context.Context, e *env, w io.Writer, name, base, tip string) error {
	for _, ref := range []string{base, tip} {
		if ref == "" {
			continue
		}
		if _, err := git.ResolveCommit(ctx, e.paths.Root, ref); err != nil {
			return err
		}
	}
	s, err := e.cfg.AddStack(name, base, tip)
	if err != nil {
		return err
	}
	if err := e.cfg.Save(e.paths.ConfigFile); err != nil {
		return err
	}
	e.log.WithField("stack", s.ID).Info("added stack " + s.Name)
	fmt.Fprintf(w, "Added stack %s (%s)\n", s.Name, s.ID)
	return nil
}

func cmdStacksApply(e *env, w io.Writer, ref string, applied bool) error {
	target, ok := e.cfg.Find(ref)
	if !ok {
		return fmt.Errorf("unknown stack %q", ref)
	}
	for i := range e.cfg.Stacks {
		if e.cfg.Stacks[i].ID == target.ID {
			e.cfg.Stacks[i].Applied = applied
		}
	}
	if err := e.cfg.Save(e.paths.ConfigFile); err != nil {
		return err
	}
	state := "unapplied"
	if applied {
		state = "applied"
	}
	fmt.Fprintf(w, "Stack %s %s\n", target.Name, state)
	return nil
}
