package ranges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

func TestBuild_TwoStacksShareOnePath(t *testing.T) {
	s1, s2 := hunk.NewStackID(), hunk.NewStackID()
	c1, c2 := cid('a'), cid('b')

	w := Build([]InputStack{
		{StackID: s1, Commits: []InputCommit{{
			CommitID: c1,
			Files: []InputFile{{
				Path:       "test.txt",
				ChangeKind: hunk.Modification,
				Hunks:      []hunk.Header{{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1}},
			}},
		}}},
		{StackID: s2, Commits: []InputCommit{{
			CommitID: c2,
			Files: []InputFile{{
				Path:       "test.txt",
				ChangeKind: hunk.Modification,
				Hunks: []hunk.Header{
					{OldStart: 9, OldLines: 2, NewStart: 8, NewLines: 0},
					{OldStart: 16, OldLines: 0, NewStart: 15, NewLines: 1},
				},
			}},
		}}},
	})
	require.Empty(t, w.Errors)

	hits, ok := w.Intersection("test.txt", 2, 1)
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, hunk.Lock{StackID: s1, CommitID: c1}, hits[0].Lock())

	hits, ok = w.Intersection("test.txt", 8, 2)
	require.True(t, ok)
	require.Len(t, hits, 1)
	assert.Equal(t, s2, hits[0].StackID)

	hits, _ = w.Intersection("test.txt", 15, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, c2, hits[0].CommitID)

	hits, ok = w.Intersection("test.txt", 30, 1)
	assert.True(t, ok)
	assert.Empty(t, hits)
}

func TestBuild_StacksShiftEachOther(t *testing.T) {
	s1, s2 := hunk.NewStackID(), hunk.NewStackID()
	c1, c2 := cid('a'), cid('b')
	file := func(h hunk.Header) []InputFile {
		return []InputFile{{Path: "test.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{h}}}
	}

	t.Run("lines added above move the other stack down", func(t *testing.T) {
		w := Build([]InputStack{
			{StackID: s1, Commits: []InputCommit{{CommitID: c1, Files: file(hunk.Header{NewStart: 1, NewLines: 2})}}},
			{StackID: s2, Commits: []InputCommit{{CommitID: c2, Files: file(hunk.Header{OldStart: 8, OldLines: 1, NewStart: 8, NewLines: 1})}}},
		})
		require.Empty(t, w.Errors)
		assert.Equal(t, []hunk.Range{mod(1, 2, c1, s1, 2), mod(10, 1, c2, s2, 0)}, w.Ranges("test.txt"))

		hits, ok := w.Intersection("test.txt", 10, 1)
		require.True(t, ok)
		assert.Equal(t, []hunk.CommitID{c2}, commitsOf(hits))

		hits, _ = w.Intersection("test.txt", 8, 1)
		assert.Empty(t, hits)

		assert.Empty(t, w.CommitDependencies[s1])
		assert.Empty(t, w.CommitDependencies[s2])
	})

	t.Run("lines removed above move the other stack up", func(t *testing.T) {
		w := Build([]InputStack{
			{StackID: s1, Commits: []InputCommit{{CommitID: c1, Files: file(hunk.Header{OldStart: 20, OldLines: 1, NewStart: 20, NewLines: 1})}}},
			{StackID: s2, Commits: []InputCommit{{CommitID: c2, Files: file(hunk.Header{OldStart: 3, OldLines: 2, NewStart: 2, NewLines: 0})}}},
		})
		require.Empty(t, w.Errors)
		assert.Equal(t, []hunk.Range{mod(2, 0, c2, s2, -2), mod(18, 1, c1, s1, 0)}, w.Ranges("test.txt"))

		hits, _ := w.Intersection("test.txt", 18, 1)
		assert.Equal(t, []hunk.CommitID{c1}, commitsOf(hits))

		hits, _ = w.Intersection("test.txt", 3, 1)
		assert.Equal(t, []hunk.CommitID{c2}, commitsOf(hits))

		hits, _ = w.Intersection("test.txt", 20, 1)
		assert.Empty(t, hits)
	})
}

func TestBuild_FailureStaysInItsStack(t *testing.T) {
	s1, s2 := hunk.NewStackID(), hunk.NewStackID()
	a, b, c := cid('a'), cid('b'), cid('c')
	h := hunk.Header{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}

	w := Build([]InputStack{
		{StackID: s1, Commits: []InputCommit{
			{CommitID: a, Files: []InputFile{{Path: "f.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{h}}}},
			{CommitID: a, Files: []InputFile{{Path: "f.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{h}}}},
		}},
		{StackID: s2, Commits: []InputCommit{
			{CommitID: b, Files: []InputFile{{Path: "f.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{{OldStart: 9, OldLines: 1, NewStart: 9, NewLines: 1}}}}},
			{CommitID: c, Files: []InputFile{{Path: "g.txt", ChangeKind: hunk.Modification, Hunks: []hunk.Header{h}}}},
		}},
	})

	require.Len(t, w.Errors, 1)
	assert.Equal(t, s1, w.Errors[0].StackID)
	assert.Equal(t, []hunk.Range{mod(9, 1, b, s2, 0)}, w.Ranges("f.txt"))
	assert.Equal(t, []string{"f.txt", "g.txt"}, w.Paths())
}

func TestBuild_UntrackedPath(t *testing.T) {
	w := Build(nil)
	hits, ok := w.Intersection("nope.txt", 1, 1)
	assert.False(t, ok)
	assert.Nil(t, hits)
	assert.Empty(t, w.Paths())
}

func TestBuild_AddedLinesLockLiveHunk(t *testing.T) {
	s1 := hunk.NewStackID()
	c1 := cid('1')

	w := Build([]InputStack{{StackID: s1, Commits: []InputCommit{{
		CommitID: c1,
		Files: []InputFile{{
			Path:       "file.txt",
			ChangeKind: hunk.Modification,
			Hunks:      []hunk.Header{{OldStart: 9, OldLines: 0, NewStart: 10, NewLines: 3}},
		}},
	}}}})

	assert.Equal(t, []hunk.Range{mod(10, 3, c1, s1, 3)}, w.Ranges("file.txt"))

	hits, ok := w.Intersection("file.txt", 11, 1)
	require.True(t, ok)
	assert.Equal(t, []hunk.CommitID{c1}, commitsOf(hits))

	hits, _ = w.Intersection("file.txt", 20, 2)
	assert.Empty(t, hits)
}

func TestBuild_FailedPathIsExcluded(t *testing.T) {
	stack := hunk.NewStackID()
	a, b, c := cid('a'), cid('b'), cid('c')
	deleteFile := InputFile{
		Path:       "test.txt",
		ChangeKind: hunk.Deletion,
		Hunks:      []hunk.Header{{OldStart: 1, OldLines: 2, NewStart: 0, NewLines: 0}},
	}
	other := func(start uint32) InputFile {
		return InputFile{
			Path:       "other.txt",
			ChangeKind: hunk.Modification,
			Hunks:      []hunk.Header{{OldStart: start, OldLines: 1, NewStart: start, NewLines: 1}},
		}
	}

	w := Build([]InputStack{{StackID: stack, Commits: []InputCommit{
		{CommitID: a, Files: []InputFile{deleteFile, other(1)}},
		{CommitID: b, Files: []InputFile{deleteFile, other(5)}},
		{CommitID: c, Files: []InputFile{{
			Path:       "test.txt",
			ChangeKind: hunk.Addition,
			Hunks:      []hunk.Header{{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 5}},
		}}},
	}}})

	require.Len(t, w.Errors, 1)
	assert.Equal(t, CalculationError{
		Message:  "file recreation must be an addition",
		StackID:  stack,
		CommitID: b,
		Path:     "test.txt",
	}, w.Errors[0])

	_, ok := w.Intersection("test.txt", 1, 1)
	assert.False(t, ok)

	hits, ok := w.Intersection("other.txt", 5, 1)
	require.True(t, ok)
	assert.Equal(t, []hunk.CommitID{b}, commitsOf(hits))
	assert.Equal(t, []string{"other.txt"}, w.Paths())
}

func TestBuild_CommitDependencies(t *testing.T) {
	stack := hunk.NewStackID()
	a, b, c := cid('a'), cid('b'), cid('c')
	file := func(h hunk.Header, kind hunk.ChangeKind) []InputFile {
		return []InputFile{{Path: "f.txt", ChangeKind: kind, Hunks: []hunk.Header{h}}}
	}

	w := Build([]InputStack{{StackID: stack, Commits: []InputCommit{
		{CommitID: a, Files: file(hunk.Header{NewStart: 1, NewLines: 10}, hunk.Addition)},
		{CommitID: b, Files: file(hunk.Header{OldStart: 2, OldLines: 1, NewStart: 2, NewLines: 1}, hunk.Modification)},
		{CommitID: c, Files: file(hunk.Header{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3}, hunk.Modification)},
	}}})
	require.Empty(t, w.Errors)

	deps := w.CommitDependencies[stack]
	assert.Equal(t, []hunk.CommitID{a}, deps[b])
	assert.Equal(t, []hunk.CommitID{a, b}, deps[c])

	inverse := w.InverseCommitDependencies[stack]
	assert.Equal(t, []hunk.CommitID{b, c}, inverse[a])
	assert.Equal(t, []hunk.CommitID{c}, inverse[b])
}
