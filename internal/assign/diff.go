package assign

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/lineset"
)

// Diff is the uncommitted diff of one path. A nil *Diff means the diff
// could not be computed.
type Diff struct {
	Binary   bool
	TooLarge bool
	Hunks    []DiffHunk
}

// DiffHunk is one hunk with its body: the lines after the "@@" header, each
// prefixed with '+', '-' or ' '.
type DiffHunk struct {
	Header hunk.Header
	Body   string
}

// FromDiff derives unassigned assignments for one path, each with a fresh id.
// Binary, oversized or hunk-less diffs yield a single whole-file assignment.
func FromDiff(pathBytes []byte, d *Diff) []Assignment {
	if d == nil || d.Binary || d.TooLarge || len(d.Hunks) == 0 {
		return []Assignment{wholeFile(pathBytes)}
	}
	out := make([]Assignment, 0, len(d.Hunks))
	for _, h := range d.Hunks {
		added, removed := LineNums(h.Body, h.Header.OldStart, h.Header.NewStart)
		header := h.Header
		id := uuid.New()
		out = append(out, Assignment{
			ID:              &id,
			Header:          &header,
			Path:            pathOf(pathBytes),
			PathBytes:       pathBytes,
			LineNumsAdded:   &added,
			LineNumsRemoved: &removed,
		})
	}
	return out
}

func wholeFile(pathBytes []byte) Assignment {
	id := uuid.New()
	return Assignment{ID: &id, Path: pathOf(pathBytes), PathBytes: pathBytes}
}

// LineNums walks a hunk body and returns the new-side numbers of added
// lines and the old-side numbers of removed lines. Counting starts at
// oldStart and newStart inclusive.
func LineNums(body string, oldStart, newStart uint32) (added, removed lineset.LineSet) {
	var plus, minus []int
	oldLine, newLine := int(oldStart), int(newStart)
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			plus = append(plus, newLine)
			newLine++
		case '-':
			minus = append(minus, oldLine)
			oldLine++
		case '@', '\\':
			// header or "\ No newline at end of file"
		default:
			oldLine++
			newLine++
		}
	}
	return lineset.New(plus...), lineset.New(minus...)
}
