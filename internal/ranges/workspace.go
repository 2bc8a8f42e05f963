// Package ranges tracks where the hunks of committed changes currently live
// in the workspace tree, so uncommitted edits can be matched to the commits
// they overlap.
package ranges

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// InputFile is one changed path of a commit with its zero-context hunks.
type InputFile struct {
	Path       string
	ChangeKind hunk.ChangeKind
	Hunks      []hunk.Header
}

// InputCommit is one commit of a stack.
type InputCommit struct {
	CommitID hunk.CommitID
	Files    []InputFile
}

// InputStack lists a stack's commits from base to tip.
type InputStack struct {
	StackID hunk.StackID
	Commits []InputCommit
}

// CalculationError records a path whose ranges could not be computed.
type CalculationError struct {
	Message  string        `json:"message"`
	StackID  hunk.StackID  `json:"stackId"`
	CommitID hunk.CommitID `json:"commitId"`
	Path     string        `json:"path"`
}

func (e CalculationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("stack %s: %s", e.StackID, e.Message)
	}
	return fmt.Sprintf("%s: commit %s of stack %s: %s", e.Path, e.CommitID.Short(), e.StackID, e.Message)
}

// Dependencies maps a commit to the commits it depends on, per stack.
type Dependencies map[hunk.StackID]map[hunk.CommitID][]hunk.CommitID

// WorkspaceRanges is the ledger of committed ranges for every path touched
// by the workspace's stacks. It is immutable once built.
type WorkspaceRanges struct {
	paths map[string][]hunk.Range

	// CommitDependencies maps each commit to the commits whose lines it
	// overwrote.
	CommitDependencies Dependencies
	// InverseCommitDependencies maps each commit to the commits that
	// overwrote its lines.
	InverseCommitDependencies Dependencies
	Errors                    []CalculationError
}

// Build replays every stack on its own, commits base to tip, and then merges
// the per-stack ranges of each path into workspace coordinates. A path that
// fails in a stack is recorded in Errors and that stack's ranges for it are
// left out; other stacks and paths are unaffected.
func Build(stacks []InputStack) *WorkspaceRanges {
	w := &WorkspaceRanges{
		paths:                     make(map[string][]hunk.Range),
		CommitDependencies:        make(Dependencies),
		InverseCommitDependencies: make(Dependencies),
	}

	perStack := make([]map[string]*PathRanges, len(stacks))
	for i, stack := range stacks {
		paths := make(map[string]*PathRanges)
		failed := make(map[string]bool)
		for _, commit := range stack.Commits {
			for _, file := range commit.Files {
				if failed[file.Path] {
					continue
				}
				pr := paths[file.Path]
				if pr == nil {
					pr = &PathRanges{}
					paths[file.Path] = pr
				}
				if err := pr.Add(stack.StackID, commit.CommitID, file.ChangeKind, file.Hunks); err != nil {
					w.Errors = append(w.Errors, CalculationError{
						Message:  err.Error(),
						StackID:  stack.StackID,
						CommitID: commit.CommitID,
						Path:     file.Path,
					})
					failed[file.Path] = true
					delete(paths, file.Path)
				}
			}
		}
		for _, pr := range paths {
			for commit, parents := range pr.Dependencies() {
				for parent := range parents {
					w.CommitDependencies.add(stack.StackID, commit, parent)
					w.InverseCommitDependencies.add(stack.StackID, parent, commit)
				}
			}
		}
		perStack[i] = paths
	}

	all := make(map[string]bool)
	for _, paths := range perStack {
		for path := range paths {
			all[path] = true
		}
	}
	for path := range all {
		var lists [][]hunk.Range
		for _, paths := range perStack {
			if pr, ok := paths[path]; ok {
				lists = append(lists, pr.Ranges())
			}
		}
		w.paths[path] = combine(lists)
	}
	w.CommitDependencies.sort()
	w.InverseCommitDependencies.sort()
	return w
}

// combine merges the ranges one path has in several stacks. Stacks touch
// disjoint lines, so taking ranges top to bottom and moving each by the net
// lines of the other stacks' ranges above it yields workspace positions.
// On equal starts the earlier stack goes first.
func combine(lists [][]hunk.Range) []hunk.Range {
	shifts := make([]int64, len(lists))
	next := make([]int, len(lists))
	var out []hunk.Range
	for {
		pick := -1
		for i, rs := range lists {
			if next[i] == len(rs) {
				continue
			}
			if pick < 0 || rs[next[i]].Start < lists[pick][next[pick]].Start {
				pick = i
			}
		}
		if pick < 0 {
			return out
		}
		r := lists[pick][next[pick]]
		next[pick]++
		r.Start = saturate(int64(r.Start) + shifts[pick])
		out = append(out, r)
		for i := range shifts {
			if i != pick {
				shifts[i] += int64(r.LineShift)
			}
		}
	}
}

func saturate(v int64) uint32 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// Intersection returns the ranges of path that intersect (start, lines).
// The boolean is false when no commit touched the path at all.
func (w *WorkspaceRanges) Intersection(path string, start, lines uint32) ([]hunk.Range, bool) {
	ranges, ok := w.paths[path]
	if !ok {
		return nil, false
	}
	var out []hunk.Range
	for _, r := range ranges {
		if hit, err := r.Intersects(start, lines); err == nil && hit {
			out = append(out, r)
		}
	}
	return out, true
}

// Paths returns the tracked paths in sorted order.
func (w *WorkspaceRanges) Paths() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Ranges returns a copy of the ranges tracked for path.
func (w *WorkspaceRanges) Ranges(path string) []hunk.Range {
	return slices.Clone(w.paths[path])
}

func (d Dependencies) add(stackID hunk.StackID, commit, dep hunk.CommitID) {
	byCommit := d[stackID]
	if byCommit == nil {
		byCommit = make(map[hunk.CommitID][]hunk.CommitID)
		d[stackID] = byCommit
	}
	if !slices.Contains(byCommit[commit], dep) {
		byCommit[commit] = append(byCommit[commit], dep)
	}
}

func (d Dependencies) sort() {
	for _, byCommit := range d {
		for _, deps := range byCommit {
			slices.SortFunc(deps, func(a, b hunk.CommitID) int {
				return bytes.Compare(a[:], b[:])
			})
		}
	}
}
