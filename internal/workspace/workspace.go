// Package workspace collects the inputs of the dependency and assignment
// engine from git, the config and the store, and persists the results.
package workspace

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jensroland/git-hunklock/internal/assign"
	"github.com/jensroland/git-hunklock/internal/config"
	"github.com/jensroland/git-hunklock/internal/deps"
	"github.com/jensroland/git-hunklock/internal/git"
	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/project"
	"github.com/jensroland/git-hunklock/internal/ranges"
	"github.com/jensroland/git-hunklock/internal/store"
)

// Workspace is one repository with its configured stacks.
type Workspace struct {
	Paths  project.Paths
	Config *config.Config
	Log    logrus.FieldLogger
}

func New(paths project.Paths, cfg *config.Config, log logrus.FieldLogger) *Workspace {
	return &Workspace{Paths: paths, Config: cfg, Log: log}
}

// Snapshot is the state of the workspace at one point in time.
type Snapshot struct {
	Ledger   *ranges.WorkspaceRanges
	Worktree []git.FileChange
	Deps     deps.HunkDependencies
}

// Applied returns the ids of the applied stacks.
func (w *Workspace) Applied() []hunk.StackID {
	return w.Config.Applied()
}

func (w *Workspace) stackRefs() ([]git.StackRef, error) {
	var refs []git.StackRef
	for _, s := range w.Config.Stacks {
		if !s.Applied {
			continue
		}
		id, err := s.StackID()
		if err != nil {
			return nil, err
		}
		refs = append(refs, git.StackRef{ID: id, Base: s.Base, Tip: s.Tip})
	}
	return refs, nil
}

// Ledger replays the commits of all applied stacks.
func (w *Workspace) Ledger(ctx context.Context) (*ranges.WorkspaceRanges, error) {
	refs, err := w.stackRefs()
	if err != nil {
		return nil, err
	}
	stacks, failures, err := git.CollectStacks(ctx, w.Paths.Root, refs, w.Config.Workers)
	if err != nil {
		return nil, fmt.Errorf("collect stacks: %w", err)
	}
	ledger := ranges.Build(stacks)
	ledger.Errors = append(failures, ledger.Errors...)
	for _, e := range ledger.Errors {
		w.Log.WithFields(logrus.Fields{
			"path":   e.Path,
			"stack":  e.StackID,
			"commit": e.CommitID.String(),
		}).Warn(e.Message)
	}
	w.Log.WithFields(logrus.Fields{"stacks": len(stacks), "paths": len(ledger.Paths())}).Debug("built ranges")
	return ledger, nil
}

// Worktree diffs the uncommitted changes against HEAD.
func (w *Workspace) Worktree(ctx context.Context) ([]git.FileChange, error) {
	changes, err := git.WorktreeChanges(ctx, w.Paths.Root, git.WorktreeOptions{
		Workers:  w.Config.Workers,
		MaxBytes: w.Config.MaxDiffBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("worktree changes: %w", err)
	}
	w.Log.WithField("files", len(changes)).Debug("diffed worktree")
	return changes, nil
}

// Snapshot computes the ledger, the worktree diff and the locks under a
// shared worktree lock.
func (w *Workspace) Snapshot(ctx context.Context) (*Snapshot, error) {
	lock, err := project.Lock(w.Paths, project.Shared)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()
	return w.snapshot(ctx)
}

func (w *Workspace) snapshot(ctx context.Context) (*Snapshot, error) {
	ledger, err := w.Ledger(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := w.Worktree(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Ledger:   ledger,
		Worktree: changes,
		Deps:     deps.Resolve(DependencyInput(changes), ledger),
	}, nil
}

// DependencyInput converts worktree changes to resolver input.
func DependencyInput(changes []git.FileChange) []deps.WorktreeChange {
	out := make([]deps.WorktreeChange, 0, len(changes))
	for _, c := range changes {
		out = append(out, deps.WorktreeChange{Path: c.Path, Kind: c.Kind, Hunks: c.Headers()})
	}
	return out
}

// WorktreeAssignments derives one unassigned assignment per worktree hunk.
func WorktreeAssignments(changes []git.FileChange) []assign.Assignment {
	var out []assign.Assignment
	for _, c := range changes {
		d := &assign.Diff{Binary: c.Binary, TooLarge: c.TooLarge}
		for _, h := range c.Hunks {
			d.Hunks = append(d.Hunks, assign.DiffHunk{Header: h.Header, Body: h.Body})
		}
		out = append(out, assign.FromDiff([]byte(c.Path), d)...)
	}
	return out
}

// Assignments reconciles the worktree with the persisted assignments and
// the locks, and persists the outcome. If the reconciliation inputs cannot
// be collected the plain worktree assignments are returned and persisted,
// with the failure as fallback.
func (w *Workspace) Assignments(ctx context.Context, fromLocks bool) (as []assign.Assignment, fallback error, err error) {
	lock, err := project.Lock(w.Paths, project.Exclusive)
	if err != nil {
		return nil, nil, err
	}
	defer lock.Unlock()

	changes, err := w.Worktree(ctx)
	if err != nil {
		return nil, nil, err
	}
	worktree := WorktreeAssignments(changes)

	db, err := store.Open(w.Paths.StoreDB)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	as, fallback = assign.WithFallback(worktree, func() ([]assign.Assignment, error) {
		persisted, err := db.Load(ctx)
		if err != nil {
			return nil, err
		}
		ledger, err := w.Ledger(ctx)
		if err != nil {
			return nil, err
		}
		d := deps.Resolve(DependencyInput(changes), ledger)
		return assign.WithWorktreeAndLocks(worktree, persisted, d, w.Applied(), fromLocks), nil
	})
	if fallback != nil {
		w.Log.WithError(fallback).Warn("using worktree assignments")
	}
	if err := db.Replace(ctx, as); err != nil {
		return nil, nil, fmt.Errorf("persist assignments: %w", err)
	}
	w.Log.WithField("assignments", len(as)).Info("reconciled assignments")
	return as, fallback, nil
}

// Assign applies requests on top of the reconciled assignments and
// persists the outcome.
func (w *Workspace) Assign(ctx context.Context, reqs []assign.Request) ([]assign.Assignment, []assign.Rejection, error) {
	lock, err := project.Lock(w.Paths, project.Exclusive)
	if err != nil {
		return nil, nil, err
	}
	defer lock.Unlock()

	snap, err := w.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(w.Paths.StoreDB)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	persisted, err := db.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load assignments: %w", err)
	}

	as, rejections := assign.Apply(WorktreeAssignments(snap.Worktree), persisted, reqs, snap.Deps, w.Applied())
	if err := db.Replace(ctx, as); err != nil {
		return nil, nil, fmt.Errorf("persist assignments: %w", err)
	}
	for _, r := range rejections {
		w.Log.WithFields(logrus.Fields{
			"path":   string(r.Request.PathBytes),
			"reason": r.Reason.String(),
		}).Info("request rejected")
	}
	return as, rejections, nil
}
