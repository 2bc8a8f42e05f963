package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// Hunk is one zero-context hunk of the worktree diff. Body holds the
// removed lines prefixed with '-' followed by the added lines prefixed with
// '+'.
type Hunk struct {
	Header hunk.Header
	Body   string
}

// FileChange is the uncommitted change of one path against HEAD.
type FileChange struct {
	Path     string
	Kind     hunk.ChangeKind
	Binary   bool
	TooLarge bool
	Hunks    []Hunk
}

// Headers returns the hunk headers of the change.
func (c FileChange) Headers() []hunk.Header {
	out := make([]hunk.Header, len(c.Hunks))
	for i, h := range c.Hunks {
		out[i] = h.Header
	}
	return out
}

// WorktreeOptions bounds the work WorktreeChanges does.
type WorktreeOptions struct {
	Workers int
	// MaxBytes marks files larger than this as TooLarge. 0 disables the check.
	MaxBytes int64
}

// WorktreeChanges diffs every changed path (staged, unstaged or untracked)
// against HEAD with zero context lines. The result is ordered by path.
func WorktreeChanges(ctx context.Context, root string, opts WorktreeOptions) ([]FileChange, error) {
	out, err := run(ctx, root, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--no-renames")
	if err != nil {
		return nil, err
	}
	paths := parseStatus(out)
	hasHead := HasHead(ctx, root)

	changes := make([]*FileChange, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(opts.Workers))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			c, err := diffPath(gctx, root, p, hasHead, opts.MaxBytes)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			changes[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []FileChange
	for _, c := range changes {
		if c != nil {
			result = append(result, *c)
		}
	}
	return result, nil
}

// parseStatus extracts the paths from `git status --porcelain -z` output.
func parseStatus(out []byte) []string {
	var paths []string
	for _, entry := range strings.Split(string(out), "\x00") {
		if len(entry) < 4 {
			continue
		}
		paths = append(paths, entry[3:])
	}
	slices.Sort(paths)
	return slices.Compact(paths)
}

var errDirectory = errors.New("is a directory")

// readWorktree returns the content git would record for file: the link
// text of a symlink, the bytes of a regular file.
func readWorktree(file string) ([]byte, bool, error) {
	info, err := os.Lstat(file)
	switch {
	case os.IsNotExist(err):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case info.IsDir():
		return nil, false, errDirectory
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(file)
		if err != nil {
			return nil, false, err
		}
		return []byte(filepath.ToSlash(target)), true, nil
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}

// diffPath returns nil when the path has no content change against HEAD.
// Directories (nested repositories, submodules) are skipped.
func diffPath(ctx context.Context, root, path string, hasHead bool, maxBytes int64) (*FileChange, error) {
	current, inWorktree, err := readWorktree(filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(path, "/"))))
	if err != nil {
		if errors.Is(err, errDirectory) {
			return nil, nil
		}
		return nil, err
	}

	var old []byte
	inHead := false
	if hasHead {
		content, err := ShowFile(ctx, root, "HEAD", path)
		switch {
		case err == nil:
			old, inHead = content, true
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}


	c := &FileChange{Path: path, Kind: hunk.Modification}
	switch {
	case !inHead && !inWorktree:
		return nil, nil
	case !inHead:
		c.Kind = hunk.Addition
	case !inWorktree:
		c.Kind = hunk.Deletion
	case bytes.Equal(old, current):
		return nil, nil
	}

	switch {
	case maxBytes > 0 && (int64(len(old)) > maxBytes || int64(len(current)) > maxBytes):
		c.TooLarge = true
	case isBinary(old) || isBinary(current):
		c.Binary = true
	default:
		c.Hunks = ZeroContextHunks(string(old), string(current))
	}
	return c, nil
}

// isBinary applies git's heuristic: a NUL byte within the first 8000 bytes.
func isBinary(b []byte) bool {
	return bytes.IndexByte(b[:min(len(b), 8000)], 0) >= 0
}

// ZeroContextHunks computes the line diff of before and after as
// `git diff -U0` would print it: a side without lines names the line before
// the change.
func ZeroContextHunks(before, after string) []Hunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var hunks []Hunk
	oldLine, newLine := uint32(1), uint32(1)
	var removed, added []string
	flush := func() {
		if len(removed) == 0 && len(added) == 0 {
			return
		}
		h := hunk.Header{OldLines: uint32(len(removed)), NewLines: uint32(len(added))}
		h.OldStart = oldLine - h.OldLines
		if h.OldLines == 0 {
			h.OldStart = oldLine - 1
		}
		h.NewStart = newLine - h.NewLines
		if h.NewLines == 0 {
			h.NewStart = newLine - 1
		}
		var body strings.Builder
		for _, l := range removed {
			body.WriteString("-" + l + "\n")
		}
		for _, l := range added {
			body.WriteString("+" + l + "\n")
		}
		hunks = append(hunks, Hunk{Header: h, Body: body.String()})
		removed, added = nil, nil
	}

	for _, d := range diffs {
		text := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			oldLine += uint32(len(text))
			newLine += uint32(len(text))
		case diffmatchpatch.DiffDelete:
			removed = append(removed, text...)
			oldLine += uint32(len(text))
		case diffmatchpatch.DiffInsert:
			added = append(added, text...)
			newLine += uint32(len(text))
		}
	}
	flush()
	return hunks
}

// splitLines splits text into lines without their terminators. A final line
// without a newline still counts.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func limit(workers int) int {
	if workers <= 0 {
		return runtime.NumCPU()
	}
	return workers
}
