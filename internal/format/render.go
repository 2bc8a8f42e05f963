package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jensroland/git-hunklock/internal/assign"
	"github.com/jensroland/git-hunklock/internal/deps"
	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/ranges"
)

// Stacks names and colours stacks for display.
type Stacks struct {
	names map[hunk.StackID]string
	order map[hunk.StackID]int
}

// NewStacks registers the stacks in display order.
func NewStacks(ids []hunk.StackID, names []string) Stacks {
	s := Stacks{names: make(map[hunk.StackID]string), order: make(map[hunk.StackID]int)}
	for i, id := range ids {
		s.order[id] = i
		if i < len(names) {
			s.names[id] = names[i]
		}
	}
	return s
}

// Label returns the coloured name of a stack, or its short id if unknown.
func (s Stacks) Label(id hunk.StackID) string {
	name, ok := s.names[id]
	if !ok {
		return Dim + id.String()[:8] + Reset
	}
	return stackColor(s.order[id]) + name + Reset
}

func (s Stacks) lock(l hunk.Lock) string {
	return s.Label(l.StackID) + " " + Dim + l.CommitID.Short() + Reset
}

// Dependencies prints every locked hunk followed by the commits it depends on.
func Dependencies(w io.Writer, d deps.HunkDependencies, stacks Stacks) {
	if len(d.Diffs) == 0 {
		fmt.Fprintf(w, "%sNo uncommitted hunk depends on a stack commit.%s\n", Dim, Reset)
	}
	for _, dep := range d.Diffs {
		fmt.Fprintf(w, "%s%s%s %s%s%s\n", Bold, dep.Path, Reset, Dim, dep.Header, Reset)
		for _, l := range uniqueLocks(dep.Locks) {
			fmt.Fprintf(w, "  %slocked to%s %s\n", Yellow, Reset, stacks.lock(l))
		}
	}
	CalculationErrors(w, d.Errors)
}

// uniqueLocks drops repeated locks for display.
func uniqueLocks(locks []hunk.Lock) []hunk.Lock {
	var out []hunk.Lock
	seen := make(map[hunk.Lock]bool)
	for _, l := range locks {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

// CalculationErrors renders the paths whose ranges could not be computed.
func CalculationErrors(w io.Writer, errs []ranges.CalculationError) {
	if len(errs) == 0 {
		return
	}
	var b strings.Builder
	for _, e := range errs {
		if e.Path == "" {
			fmt.Fprintf(&b, "stack %s: %s\n", e.StackID.String()[:8], e.Message)
			continue
		}
		fmt.Fprintf(&b, "%s (commit %s): %s\n", e.Path, e.CommitID.Short(), e.Message)
	}
	fmt.Fprintf(w, "\n%s%s%s\n", Red, BorderedText(strings.TrimSuffix(b.String(), "\n"), "dependencies unknown", TermWidth()), Reset)
}

// Assignments prints assignments grouped by stack, unassigned last.
func Assignments(w io.Writer, as []assign.Assignment, stacks Stacks) {
	if len(as) == 0 {
		fmt.Fprintf(w, "%sNo uncommitted changes.%s\n", Dim, Reset)
		return
	}

	groups := make(map[string][]assign.Assignment)
	var keys []string
	for _, a := range as {
		key := ""
		if a.StackID != nil {
			key = a.StackID.String()
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], a)
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[j] == "" && keys[i] != "" })

	for i, key := range keys {
		if i > 0 {
			fmt.Fprintln(w)
		}
		group := groups[key]
		if key == "" {
			fmt.Fprintf(w, "%sunassigned%s\n", Dim, Reset)
		} else {
			fmt.Fprintln(w, stacks.Label(*group[0].StackID))
		}
		for _, a := range group {
			fmt.Fprintf(w, "  %s\n", assignmentLine(a, stacks))
		}
	}
}

func assignmentLine(a assign.Assignment, stacks Stacks) string {
	line := Bold + a.Path + Reset
	if a.Header == nil {
		line += " " + Dim + "(whole file)" + Reset
	} else {
		line += " " + Dim + a.Header.String() + Reset
	}
	if a.LineNumsAdded != nil && !a.LineNumsAdded.IsEmpty() {
		line += " " + Green + "+L" + a.LineNumsAdded.String() + Reset
	}
	if a.LineNumsRemoved != nil && !a.LineNumsRemoved.IsEmpty() {
		line += " " + Red + "-L" + a.LineNumsRemoved.String() + Reset
	}
	if locks := uniqueLocks(a.Locks); len(locks) > 0 {
		parts := make([]string, len(locks))
		for i, l := range locks {
			parts[i] = stacks.lock(l)
		}
		line += " " + Yellow + "locked:" + Reset + " " + strings.Join(parts, ", ")
	}
	return line
}

// Rejections explains requests that were not honoured.
func Rejections(w io.Writer, rs []assign.Rejection, stacks Stacks) {
	for _, r := range rs {
		target := "unassigned"
		if r.Request.StackID != nil {
			target = stacks.Label(*r.Request.StackID)
		}
		what := string(r.Request.PathBytes)
		if r.Request.Header != nil {
			what += " " + r.Request.Header.String()
		}
		fmt.Fprintf(w, "%srejected%s %s -> %s: %s", Red, Reset, what, target, r.Reason)
		if locks := uniqueLocks(r.Locks); len(locks) > 0 {
			parts := make([]string, len(locks))
			for i, l := range locks {
				parts[i] = stacks.lock(l)
			}
			fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
		}
		fmt.Fprintln(w)
	}
}

// Ranges dumps the tracked ranges of one path.
func Ranges(w io.Writer, path string, rs []hunk.Range, stacks Stacks) {
	fmt.Fprintf(w, "%s%s%s\n", Bold, path, Reset)
	for _, r := range rs {
		span := fmt.Sprintf("L%d", r.Start)
		switch {
		case r.Lines == 0:
			span = fmt.Sprintf("after L%d", r.Start)
		case r.Lines > 1:
			span = fmt.Sprintf("L%d-%d", r.Start, r.Start+r.Lines-1)
		}
		fmt.Fprintf(w, "  %-16s %-12s %s %sshift %+d%s\n", span, r.ChangeKind, stacks.lock(r.Lock()), Dim, r.LineShift, Reset)
	}
}
