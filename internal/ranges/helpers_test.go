package ranges

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

func cid(c byte) hunk.CommitID {
	return hunk.MustCommitID(strings.Repeat(string(c), 40))
}

// zeroContext parses a unified diff hunk whose context lines carry no
// prefix and returns its header as `git diff -U0` would print it.
func zeroContext(t *testing.T, text string) hunk.Header {
	t.Helper()
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	h, err := hunk.ParseHeader(lines[0])
	require.NoError(t, err)

	body := lines[1:]
	isChange := func(l string) bool {
		return strings.HasPrefix(l, "+") || strings.HasPrefix(l, "-")
	}
	lead := 0
	for lead < len(body) && !isChange(body[lead]) {
		lead++
	}
	trail := 0
	for trail < len(body)-lead && !isChange(body[len(body)-1-trail]) {
		trail++
	}

	h.OldStart, h.OldLines = trimSide(h.OldStart, h.OldLines, uint32(lead), uint32(trail))
	h.NewStart, h.NewLines = trimSide(h.NewStart, h.NewLines, uint32(lead), uint32(trail))
	return h
}

func trimSide(start, lines, lead, trail uint32) (uint32, uint32) {
	if lines == 0 {
		return start, 0
	}
	lines -= lead + trail
	if lines == 0 {
		return start + lead - 1, 0
	}
	return start + lead, lines
}

func mod(start, lines uint32, commit hunk.CommitID, stack hunk.StackID, shift int32) hunk.Range {
	return hunk.Range{ChangeKind: hunk.Modification, StackID: stack, CommitID: commit, Start: start, Lines: lines, LineShift: shift}
}

func addition(start, lines uint32, commit hunk.CommitID, stack hunk.StackID, shift int32) hunk.Range {
	r := mod(start, lines, commit, stack, shift)
	r.ChangeKind = hunk.Addition
	return r
}

func commitsOf(rs []hunk.Range) []hunk.CommitID {
	out := make([]hunk.CommitID, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.CommitID)
	}
	return out
}
