// Package git runs git to collect the stacks' commit diffs and the
// uncommitted worktree diff.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jensroland/git-hunklock/internal/hunk"
)

// ErrNotFound is returned by ShowFile when the file does not exist at ref.
var ErrNotFound = errors.New("not found")

// run executes git in dir and returns stdout. Stderr becomes part of the
// error.
func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-c", "core.quotePath=false"}, args...)...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("git %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return out, nil
}

// ResolveCommit resolves ref to a commit id.
func ResolveCommit(ctx context.Context, root, ref string) (hunk.CommitID, error) {
	out, err := run(ctx, root, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return hunk.CommitID{}, fmt.Errorf("unknown revision %q", ref)
	}
	return hunk.ParseCommitID(strings.TrimSpace(string(out)))
}

// HasHead reports whether HEAD points to a commit.
func HasHead(ctx context.Context, root string) bool {
	_, err := ResolveCommit(ctx, root, "HEAD")
	return err == nil
}

// ShowFile retrieves file content at a given ref (e.g., "HEAD"). It returns
// ErrNotFound if the file does not exist there.
func ShowFile(ctx context.Context, root, ref, file string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "cat-file", "blob", ref+":"+file)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s:%s: %w", ref, file, ErrNotFound)
		}
		return nil, fmt.Errorf("git cat-file %s:%s: %w", ref, file, err)
	}
	return out, nil
}
