package assign

import (
	"fmt"
	"slices"

	"github.com/jensroland/git-hunklock/internal/deps"
	"github.com/jensroland/git-hunklock/internal/hunk"
)

// FromDependencies turns every locked hunk into an assignment carrying its
// locks. The stack is set only when all locks point to one stack; a hunk
// locked to several stacks has no safe default.
func FromDependencies(d deps.HunkDependencies) []Assignment {
	out := make([]Assignment, 0, len(d.Diffs))
	for _, dep := range d.Diffs {
		header := dep.Header
		a := Assignment{
			Header:    &header,
			Path:      dep.Path,
			PathBytes: []byte(dep.Path),
			Locks:     slices.Clone(dep.Locks),
		}
		if stacks := deps.LockedStacks(dep.Locks); len(stacks) == 1 {
			a.StackID = &stacks[0]
		}
		out = append(out, a)
	}
	return out
}

// FromRequests turns requests into assignments so they can be reconciled
// like persisted ones.
func FromRequests(reqs []Request) []Assignment {
	out := make([]Assignment, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, Assignment{
			Header:    r.Header,
			Path:      pathOf(r.PathBytes),
			PathBytes: r.PathBytes,
			StackID:   r.StackID,
		})
	}
	return out
}

// WithWorktreeAndLocks returns the current assignments of the workspace.
// The worktree assignments inherit the persisted state, then locks are
// applied. When fromLocks is false a hunk without an assignment is left
// unassigned even if it is locked to a single stack; an assigned hunk still
// moves to the stack it is locked to.
func WithWorktreeAndLocks(worktree, persisted []Assignment, d deps.HunkDependencies, applied []hunk.StackID, fromLocks bool) []Assignment {
	withWorktree := Reconcile(worktree, persisted, applied, SetMostLines, true)
	return Reconcile(withWorktree, FromDependencies(d), applied, SetNone, fromLocks)
}

// Apply reconciles the worktree with the persisted assignments, the
// requests, and finally the locks. Requests the outcome does not honour
// are returned as rejections. A request for a stack outside applied, or for
// a hunk that does not exactly match a live one, changes nothing.
func Apply(worktree, persisted []Assignment, reqs []Request, d deps.HunkDependencies, applied []hunk.StackID) ([]Assignment, []Rejection) {
	withWorktree := Reconcile(worktree, persisted, applied, SetMostLines, true)

	var rejections []Rejection
	var accepted []Request
	for _, req := range reqs {
		switch {
		case req.StackID != nil && !slices.Contains(applied, *req.StackID):
			rejections = append(rejections, Rejection{Request: req, Reason: StackNotApplied})
		case !slices.ContainsFunc(withWorktree, req.Matches):
			rejections = append(rejections, Rejection{Request: req, Reason: NotFound})
		default:
			accepted = append(accepted, req)
		}
	}
	withRequests := Reconcile(withWorktree, FromRequests(accepted), applied, SetMostLines, true)
	withLocks := Reconcile(withRequests, FromDependencies(d), applied, SetNone, false)

	for _, req := range accepted {
		var locks []hunk.Lock
		for _, a := range withLocks {
			if req.Matches(a) && !sameStack(req.StackID, a.StackID) {
				locks = append(locks, a.Locks...)
			}
		}
		if len(locks) > 0 {
			rejections = append(rejections, Rejection{Request: req, Reason: Locked, Locks: locks})
		}
	}
	return withLocks, rejections
}

// WithFallback runs reconcile and, if it fails, returns the worktree
// assignments unchanged together with the failure so the caller can still
// show every hunk.
func WithFallback(worktree []Assignment, reconcile func() ([]Assignment, error)) ([]Assignment, error) {
	if len(worktree) == 0 {
		return nil, nil
	}
	out, err := reconcile()
	if err != nil {
		return worktree, fmt.Errorf("reconciling assignments: %w", err)
	}
	return out, nil
}

func sameStack(a, b *hunk.StackID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
