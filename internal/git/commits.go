package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-hunklock/internal/hunk"
	"github.com/jensroland/git-hunklock/internal/ranges"
)

// StackRef names the commits of one stack: everything reachable from Tip
// but not from Base, along the first-parent chain.
type StackRef struct {
	ID   hunk.StackID
	Base string
	Tip  string
}

// StackCommits lists the non-merge commits of a stack, base to tip.
func StackCommits(ctx context.Context, root, base, tip string) ([]hunk.CommitID, error) {
	spec := tip
	if base != "" {
		spec = base + ".." + tip
	}
	out, err := run(ctx, root, "rev-list", "--reverse", "--first-parent", "--no-merges", spec)
	if err != nil {
		return nil, err
	}
	var ids []hunk.CommitID
	for _, line := range strings.Fields(string(out)) {
		id, err := hunk.ParseCommitID(line)
		if err != nil {
			return nil, fmt.Errorf("rev-list %s: %w", spec, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CommitDiff returns the zero-context changes a commit makes against its
// first parent, or against the empty tree for a root commit. Files without
// hunks (binary files, pure renames and mode changes) are left out.
func CommitDiff(ctx context.Context, root string, commit hunk.CommitID) ([]ranges.InputFile, error) {
	out, err := run(ctx, root, "diff-tree", "-p", "-r", "-M", "-U0", "--root",
		"--no-commit-id", "--no-color", "--no-ext-diff", commit.String())
	if err != nil {
		return nil, err
	}
	files, err := parseCommitDiff(out)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", commit.Short(), err)
	}
	return files, nil
}

func parseCommitDiff(out []byte) ([]ranges.InputFile, error) {
	fds, err := diff.NewMultiFileDiffReader(bytes.NewReader(out)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	var files []ranges.InputFile
	for _, fd := range fds {
		if len(fd.Hunks) == 0 {
			continue
		}
		f := ranges.InputFile{Path: fileDiffPath(fd), ChangeKind: changeKind(fd)}
		for _, h := range fd.Hunks {
			f.Hunks = append(f.Hunks, hunk.Header{
				OldStart: uint32(h.OrigStartLine),
				OldLines: uint32(h.OrigLines),
				NewStart: uint32(h.NewStartLine),
				NewLines: uint32(h.NewLines),
			})
		}
		files = append(files, f)
	}
	return files, nil
}

func changeKind(fd *diff.FileDiff) hunk.ChangeKind {
	for _, line := range fd.Extended {
		switch {
		case strings.HasPrefix(line, "new file mode"):
			return hunk.Addition
		case strings.HasPrefix(line, "deleted file mode"):
			return hunk.Deletion
		case strings.HasPrefix(line, "rename from"):
			return hunk.Rename
		}
	}
	switch {
	case fd.OrigName == "/dev/null":
		return hunk.Addition
	case fd.NewName == "/dev/null":
		return hunk.Deletion
	}
	return hunk.Modification
}

// fileDiffPath returns the post-image path, or the pre-image path of a
// deleted file.
func fileDiffPath(fd *diff.FileDiff) string {
	if fd.NewName != "" && fd.NewName != "/dev/null" {
		return strings.TrimPrefix(fd.NewName, "b/")
	}
	if fd.OrigName != "" && fd.OrigName != "/dev/null" {
		return strings.TrimPrefix(fd.OrigName, "a/")
	}
	for _, line := range fd.Extended {
		if name, ok := strings.CutPrefix(line, "rename to "); ok {
			return name
		}
	}
	if len(fd.Extended) > 0 {
		header := strings.TrimPrefix(fd.Extended[0], "diff --git a/")
		if i := strings.LastIndex(header, " b/"); i >= 0 {
			return header[i+3:]
		}
	}
	return ""
}

// CollectStacks lists every stack's commits and diffs them, running at most
// workers git processes at a time. The result keeps the order of refs. A
// stack whose commits cannot be listed or diffed is left out and reported as
// a calculation error; only a cancelled ctx fails the whole call.
func CollectStacks(ctx context.Context, root string, refs []StackRef, workers int) ([]ranges.InputStack, []ranges.CalculationError, error) {
	stacks := make([]ranges.InputStack, len(refs))
	stackErrs := make([]error, len(refs))
	commitErrs := make([][]error, len(refs))
	for i, ref := range refs {
		stacks[i].StackID = ref.ID
		commits, err := StackCommits(ctx, root, ref.Base, ref.Tip)
		if err != nil {
			stackErrs[i] = fmt.Errorf("listing commits of %s: %w", ref.Tip, err)
			continue
		}
		stacks[i].Commits = make([]ranges.InputCommit, len(commits))
		commitErrs[i] = make([]error, len(commits))
		for j, c := range commits {
			stacks[i].Commits[j].CommitID = c
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers))
	for i := range stacks {
		for j := range stacks[i].Commits {
			i, j := i, j
			c := &stacks[i].Commits[j]
			g.Go(func() error {
				files, err := CommitDiff(gctx, root, c.CommitID)
				if err != nil {
					commitErrs[i][j] = err
					return nil
				}
				c.Files = files
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var out []ranges.InputStack
	var failures []ranges.CalculationError
	for i, stack := range stacks {
		err := stackErrs[i]
		if err == nil {
			err = errors.Join(commitErrs[i]...)
		}
		if err != nil {
			failures = append(failures, ranges.CalculationError{Message: err.Error(), StackID: stack.StackID})
			continue
		}
		out = append(out, stack)
	}
	return out, failures, nil
}
