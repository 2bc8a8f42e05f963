// Package deps computes which commits every uncommitted hunk is locked to.
package deps

import (
	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/ranges"
)

// WorktreeChange is a path with its zero-context hunks against HEAD.
type WorktreeChange struct {
	Path  string
	Kind  hunk.ChangeKind
	Hunks []hunk.Header
}

// PathDependency is one locked hunk.
type PathDependency struct {
	Path   string      `json:"path"`
	Header hunk.Header `json:"hunk"`
	Locks  []hunk.Lock `json:"locks"`
}

// HunkDependencies lists the locked hunks of the worktree. Hunks that lock
// to nothing are absent. Errors are the ledger's calculation errors.
type HunkDependencies struct {
	Diffs  []PathDependency          `json:"diffs"`
	Errors []ranges.CalculationError `json:"errors"`
}

// Resolve looks up every worktree hunk in the ledger by its old side.
// Locks are not deduplicated: one lock per intersecting range.
func Resolve(changes []WorktreeChange, ledger *ranges.WorkspaceRanges) HunkDependencies {
	var out HunkDependencies
	for _, change := range changes {
		for _, h := range change.Hunks {
			hits, ok := ledger.Intersection(change.Path, h.OldStart, h.OldLines)
			if !ok || len(hits) == 0 {
				continue
			}
			locks := make([]hunk.Lock, 0, len(hits))
			for _, r := range hits {
				locks = append(locks, r.Lock())
			}
			out.Diffs = append(out.Diffs, PathDependency{Path: change.Path, Header: h, Locks: locks})
		}
	}
	out.Errors = ledger.Errors
	return out
}

// Locks returns the locks of the hunk at path with header h, or nil.
func (d HunkDependencies) Locks(path string, h hunk.Header) []hunk.Lock {
	for _, dep := range d.Diffs {
		if dep.Path == path && dep.Header == h {
			return dep.Locks
		}
	}
	return nil
}

// LockedStacks returns the distinct stacks a set of locks points to, in
// first-seen order.
func LockedStacks(locks []hunk.Lock) []hunk.StackID {
	var out []hunk.StackID
	seen := make(map[hunk.StackID]bool)
	for _, l := range locks {
		if !seen[l.StackID] {
			seen[l.StackID] = true
			out = append(out, l.StackID)
		}
	}
	return out
}
