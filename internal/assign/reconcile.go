package assign

import (
	"slices"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// Reconcile carries the state of old assignments over to the freshly
// derived ones in next. The result has the order of next; neither input is
// modified.
//
// A next entry that overlaps exactly one old entry takes its locks, path and,
// when set, id and line numbers. The stack is taken only if the entry already
// has one or updateUnassigned is set, so an unassigned hunk stays unassigned
// by default. With several overlapping entries the one with the most new
// lines wins (first one on ties); under SetNone disagreeing stacks leave the
// hunk unassigned. A stack outside applied is always dropped.
func Reconcile(next, old []Assignment, applied []hunk.StackID, policy MultipleOverlapping, updateUnassigned bool) []Assignment {
	out := make([]Assignment, len(next))
	for i, n := range next {
		var matches []Assignment
		for _, o := range old {
			if n.Intersects(o) {
				matches = append(matches, o)
			}
		}

		switch len(matches) {
		case 0:
		case 1:
			n = carryOver(n, matches[0], applied, updateUnassigned)
		default:
			n = carryOver(n, mostLines(matches), applied, updateUnassigned)
			if policy == SetNone && distinctStacks(matches) > 1 {
				n.StackID = nil
			}
		}
		out[i] = n
	}
	return out
}

func carryOver(n, o Assignment, applied []hunk.StackID, updateUnassigned bool) Assignment {
	n.Locks = slices.Clone(o.Locks)
	n.Path = o.Path
	if o.ID != nil {
		id := *o.ID
		n.ID = &id
	}
	if o.LineNumsAdded != nil {
		n.LineNumsAdded = o.LineNumsAdded
	}
	if o.LineNumsRemoved != nil {
		n.LineNumsRemoved = o.LineNumsRemoved
	}
	if n.StackID != nil || updateUnassigned {
		n.StackID = o.StackID
	}
	if n.StackID != nil && !slices.Contains(applied, *n.StackID) {
		n.StackID = nil
	}
	return n
}

func mostLines(matches []Assignment) Assignment {
	best := matches[0]
	for _, m := range matches[1:] {
		if newLines(m) > newLines(best) {
			best = m
		}
	}
	return best
}

func newLines(a Assignment) uint32 {
	if a.Header == nil {
		return 0
	}
	return a.Header.NewLines
}

// distinctStacks counts unassigned as a stack of its own.
func distinctStacks(matches []Assignment) int {
	seen := make(map[hunk.StackID]bool)
	unassigned := 0
	for _, m := range matches {
		if m.StackID == nil {
			unassigned = 1
			continue
		}
		seen[*m.StackID] = true
	}
	return len(seen) + unassigned
}
