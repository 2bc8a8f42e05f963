package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/jensroland/git-hunklock/internal/config"
	"github.com/jensroland/git-hunklock/internal/debug"
	"github.com/jensroland/git-hunklock/internal/format"
	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/project"
	"github.com/jensroland/git-hunklock/internal/workspace"
)

// Usage is printed for "help" and for unknown subcommands.
const Usage = `hunklock: which stack does each uncommitted hunk belong to?

Usage:
    git-hunklock deps [--json]                       # locks per uncommitted hunk
    git-hunklock assignments [--json] [--from-locks] # reconcile and show assignments
    git-hunklock assign <path> --stack <name|id|none> [--hunk <o,ol,n,nl>]
    git-hunklock ranges [<path>] [--json]            # commit ranges of the applied stacks
    git-hunklock stacks                              # configured stacks
    git-hunklock stacks add <name> --tip <ref> [--base <ref>]
    git-hunklock stacks apply|unapply <name|id>
    git-hunklock log [-n <lines>]                    # tail of the debug log
    git-hunklock --version
`

// env is what every command runs against.
type env struct {
	paths project.Paths
	cfg   *config.Config
	log   *logrus.Logger
	close func()
}

func (e *env) workspace() *workspace.Workspace {
	return workspace.New(e.paths, e.cfg, e.log)
}

// stacks returns the display names of the configured stacks.
func (e *env) stacks() format.Stacks {
	var ids []hunk.StackID
	var names []string
	for _, s := range e.cfg.Stacks {
		id, err := s.StackID()
		if err != nil {
			continue
		}
		ids = append(ids, id)
		names = append(names, s.Name)
	}
	return format.NewStacks(ids, names)
}

// setup finds the repository, loads the config and opens the debug log.
// Without requireConfig a missing config yields the empty default.
func setup(command string, requireConfig bool) (*env, error) {
	root, err := project.FindRoot()
	if err != nil {
		return nil, err
	}
	paths := project.NewPaths(root)
	cfg, err := config.Load(paths.ConfigFile)
	if errors.Is(err, config.ErrNotInitialized) && !requireConfig {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	logger, closeLog := debug.Open(paths.LogDir, cfg.LogLevel)
	logger.WithFields(logrus.Fields{"command": command, "root": root}).Debug("start")
	return &env{paths: paths, cfg: cfg, log: logger, close: closeLog}, nil
}

// run sets up the environment and runs fn, exiting 1 on error. The
// context is cancelled on interrupt so running git processes are killed.
func run(command string, requireConfig bool, fn func(ctx context.Context, e *env) error) {
	e, err := setup(command, requireConfig)
	if err != nil {
		fail(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = fn(ctx, e)
	stop()
	if err != nil {
		e.log.WithError(err).WithField("command", command).Error("command failed")
	}
	e.close()
	if err != nil {
		fail(err)
	}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
	}
	return fs
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// relativePath turns a path given on the command line into a path relative
// to the repository root, in git's slash form.
func relativePath(filePath, projectRoot string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", err
	}
	// Compare resolved paths so a symlinked temp or home dir still matches.
	if resolved, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(resolved, filepath.Base(abs))
	}
	if resolved, err := filepath.EvalSymlinks(projectRoot); err == nil {
		projectRoot = resolved
	}
	rel, err := filepath.Rel(projectRoot, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%s is outside the repository", filePath)
	}
	return filepath.ToSlash(rel), nil
}
